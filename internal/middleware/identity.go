package middleware

// identity.go holds the context keys JWTAuth fills in and the helpers that
// read them back for handlers and the Redis-backed middleware.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id" // uint64
    CtxStaff  = "is_staff" // bool
)

// UserID returns the authenticated user's id.  ok is false when no
// identity has been resolved for the request.
func UserID(c echo.Context) (id uint64, ok bool) {
    id, ok = c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// IsStaff reports whether the authenticated user carries the staff flag.
func IsStaff(c echo.Context) bool {
    v, _ := c.Get(CtxStaff).(bool)
    return v
}

// userKey renders the user id for Redis keys, "anon" when unauthenticated.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
