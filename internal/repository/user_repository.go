package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/recipe-app-api/internal/database"
	"github.com/iliyamo/recipe-app-api/internal/model"
)

const userColumns = "id, email, name, password_hash, is_active, is_staff, is_superuser, created_at"

type UserRepo struct{ db database.Querier }

func NewUserRepo(db database.Querier) *UserRepo { return &UserRepo{db: db} }

// Create inserts u and sets its ID.  The email is stored exactly as given;
// normalization is the caller's job.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, is_active, is_staff, is_superuser) VALUES (?,?,?,?,?,?)",
		u.Email, u.Name, u.PasswordHash, u.IsActive, u.IsStaff, u.IsSuperuser)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the name and/or password hash of a user.  Nil
// arguments leave the column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, passwordHash *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET name = COALESCE(?, name), password_hash = COALESCE(?, password_hash), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, passwordHash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every user ordered by id.  Used by the staff-only admin API.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
