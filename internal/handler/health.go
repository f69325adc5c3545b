package handler // declare the package name; contains HTTP handlers

import (
    "context"      // bounds the database ping
    "database/sql" // the pool being checked
    "net/http"     // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health returns a health‑check endpoint for load balancers and monitors.
// It answers 200 "ok" while the database answers a ping within two seconds
// and 503 otherwise.
func Health(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
        return c.String(http.StatusOK, "ok")
    }
}
