package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/repository"
	"github.com/iliyamo/recipe-app-api/internal/utils"
)

// UserService owns account creation and authentication.
type UserService struct {
	users      *repository.UserRepo
	bcryptCost int
}

func NewUserService(db database.Querier, bcryptCost int) *UserService {
	return &UserService{users: repository.NewUserRepo(db), bcryptCost: bcryptCost}
}

// NormalizeEmail lowercases the domain part of an address and leaves the
// local part as typed.  Surrounding whitespace is dropped.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateUser stores a regular, active account.
func (s *UserService) CreateUser(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.create(ctx, email, password, name, false)
}

// CreateSuperuser stores an account with staff and superuser flags set.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*model.User, error) {
	return s.create(ctx, email, password, "", true)
}

func (s *UserService) create(ctx context.Context, email, password, name string, super bool) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, NewValidationError("email", "is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      super,
		IsSuperuser:  super,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// hash applies the password policy, reporting violations against the
// "password" field.
func (s *UserService) hash(password string) (string, error) {
	h, err := utils.HashPassword(password, s.bcryptCost)
	if utils.IsPolicyError(err) {
		return "", NewValidationError("password", err.Error())
	}
	return h, err
}

// Authenticate returns the account matching email and password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile changes name and/or password; nil leaves a field as is.
// A new password is hashed before it is stored.
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, name, password *string) (*model.User, error) {
	var hash *string
	if password != nil {
		h, err := s.hash(*password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
	}
	if err := s.users.UpdateProfile(ctx, id, name, hash); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}
