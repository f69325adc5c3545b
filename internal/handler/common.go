package handler // handler defines http handlers

import (
    "errors"   // errors unwraps service and repository sentinels
    "log/slog" // slog records unexpected failures
    "net/http" // http provides status code constants
    "strconv"  // strconv parses path identifiers

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/recipe-app-api/internal/middleware" // middleware exposes the resolved identity
    "github.com/iliyamo/recipe-app-api/internal/repository" // repository sentinels
    "github.com/iliyamo/recipe-app-api/internal/service"    // service errors
)

var errNoIdentity = errors.New("invalid user_id in context")

// getUserID returns the id JWTAuth stored for the request.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errNoIdentity
    }
    return id, nil
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// bindAndValidate binds the request body into dst and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return errBadBody
    }
    return c.Validate(dst)
}

var errBadBody = errors.New("invalid request body")

// writeError maps err onto the response.  Anything unrecognised is
// logged and reported as 500 without details.
func writeError(c echo.Context, log *slog.Logger, err error) error {
    var ve *service.ValidationError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": ve.Fields})
    case errors.Is(err, errBadBody):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    case errors.Is(err, errNoIdentity), errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, repository.ErrEmailExists):
        return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "name already exists"})
    }
    log.Error("request failed",
        "method", c.Request().Method,
        "path", c.Path(),
        "request_id", c.Response().Header().Get(echo.HeaderXRequestID),
        "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
