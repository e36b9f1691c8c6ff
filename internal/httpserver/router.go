package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/middleware"
	"github.com/Skotchmaster/userauth/internal/upload"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Auth        *middleware.Auth
	UploadDir   string

	// CSRF guards the user routes when set.
	CSRF echo.MiddlewareFunc

	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Error("not_ready", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	var groupMw []echo.MiddlewareFunc
	if d.CSRF != nil {
		groupMw = append(groupMw, d.CSRF)
	}
	users := e.Group("/api/v1/users", groupMw...)

	users.POST("/register", d.AuthHandler.Register, upload.Fields(d.UploadDir,
		upload.Field{Name: "avatar", MaxCount: 1},
		upload.Field{Name: "coverImage", MaxCount: 1},
	))
	users.POST("/login", d.AuthHandler.Login)
	users.POST("/refresh-token", d.AuthHandler.Refresh)

	users.POST("/logout", d.AuthHandler.LogOut, d.Auth.RequireAuth)
	users.GET("/current-user", d.AuthHandler.Self, d.Auth.RequireAuth)
}
