// Package middleware holds the echo middleware that guards authenticated
// routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/models"
	"github.com/Skotchmaster/userauth/internal/service"
	"github.com/Skotchmaster/userauth/internal/tokens"
)

const (
	ClaimsKey = "claims"
	UserKey   = "user"

	accessCookie = "accessToken"
)

type AccessVerifier interface {
	VerifyAccessToken(token string) (*tokens.AccessClaims, error)
}

type UserLoader interface {
	CurrentUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Auth struct {
	jwt   echo.MiddlewareFunc
	users UserLoader
}

func NewAuth(verifier AccessVerifier, users UserLoader) *Auth {
	return &Auth{
		jwt: echojwt.WithConfig(echojwt.Config{
			ContextKey:  ClaimsKey,
			TokenLookup: "cookie:" + accessCookie + ",header:Authorization:Bearer ",
			ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
				return verifier.VerifyAccessToken(auth)
			},
			ErrorHandler: func(c echo.Context, err error) error {
				l := logging.FromContext(c.Request().Context())
				if !hasToken(c) {
					l.Warn("auth_failed", "status", 401, "reason", "no access token")
					return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
				}
				l.Warn("auth_failed", "status", 401, "reason", "invalid access token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Access Token")
			},
		}),
		users: users,
	}
}

// RequireAuth verifies the access token and attaches the sanitized user.
func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return a.jwt(a.loadUser(next))
}

func (a *Auth) loadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(ClaimsKey).(*tokens.AccessClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Access Token")
		}
		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Access Token")
		}

		ctx := c.Request().Context()
		user, err := a.users.CurrentUser(ctx, id)
		if err != nil {
			l := logging.FromContext(ctx)
			if errors.Is(err, service.ErrUnauthorized) {
				l.Warn("auth_failed", "status", 401, "user_id", id.String(), "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Access Token")
			}
			l.Error("auth_failed", "status", 500, "reason", "cannot load user", "user_id", id.String(), "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
		}

		c.Set(UserKey, user)
		c.SetRequest(c.Request().WithContext(logging.With(ctx, "user_id", user.ID.String())))
		return next(c)
	}
}

// UserFromContext returns the user attached by RequireAuth.
func UserFromContext(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(UserKey).(*models.User)
	return u, ok && u != nil
}

func hasToken(c echo.Context) bool {
	if ck, err := c.Cookie(accessCookie); err == nil && ck.Value != "" {
		return true
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.HasPrefix(h, "Bearer ") && strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")) != ""
}
