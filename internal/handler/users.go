package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/service"
)

// UserHandler serves the authenticated user's own profile and the staff
// user listing.
type UserHandler struct {
	Users *service.UserService
	Log   *slog.Logger
}

func NewUserHandler(u *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{Users: u, Log: log}
}

type profileReq struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Password *string `json:"password"`
}

type adminUserResp struct {
	ID          uint64    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

// Me handles GET /v1/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// UpdateMe handles PUT and PATCH /v1/users/me.  PUT needs both name and
// password; PATCH changes whichever is given.  The password is never
// echoed back.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req profileReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		ve := &service.ValidationError{}
		if req.Name == nil {
			ve.Add("name", "is required")
		}
		if req.Password == nil {
			ve.Add("password", "is required")
		}
		if len(ve.Fields) > 0 {
			return writeError(c, h.Log, ve)
		}
	}
	u, err := h.Users.UpdateProfile(c.Request().Context(), uid, req.Name, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// ListUsers handles GET /v1/admin/users (staff only).
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

func toAdminUser(u model.User) adminUserResp {
	return adminUserResp{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}
