package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/middleware"
	"github.com/Skotchmaster/userauth/internal/service"
	"github.com/Skotchmaster/userauth/internal/transport"
	"github.com/Skotchmaster/userauth/internal/upload"
)

type AuthHTTP struct {
	Svc           *service.AuthService
	SecureCookies bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	files := upload.FromContext(c)
	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Fullname:       c.FormValue("fullname"),
		Email:          c.FormValue("email"),
		Username:       c.FormValue("username"),
		Password:       c.FormValue("password"),
		AvatarPath:     files.First("avatar"),
		CoverImagePath: files.First("coverImage"),
	})
	if err != nil {
		l.Warn("register_failed", "error", err)
		return httpError(err)
	}

	l.Info("register_successful", "user_id", user.ID.String())
	// The envelope reports 200 while the response status is 201.
	return c.JSON(http.StatusCreated, transport.OK(http.StatusOK, user, "User registered successfully!"))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.Warn("login_failed", "error", err)
		return httpError(err)
	}

	h.setTokenCookies(c, res.Tokens)
	l.Info("login_successful", "user_id", res.User.ID.String())

	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, transport.LoginData{
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
	}, "User logged In Successfully"))
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	user, ok := middleware.UserFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}

	if err := h.Svc.LogOut(ctx, user.ID); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot clear refresh token", "error", err)
		return httpError(err)
	}

	c.SetCookie(DeleteCookie(accessCookieName, "/", h.SecureCookies))
	c.SetCookie(DeleteCookie(refreshCookieName, "/", h.SecureCookies))

	l.Info("successful_logout", "user_id", user.ID.String())
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, echo.Map{}, "User logged Out"))
}

// Refresh reads the refresh token from its cookie, falling back to the JSON
// body. Every failure is a 401 carrying the reason.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var presented string
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		presented = ck.Value
	}
	if presented == "" {
		var req transport.RefreshRequest
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.Svc.Refresh(ctx, presented)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
	}

	h.setTokenCookies(c, pair)
	l.Info("refresh_successful", "user_id", pair.UserID.String(), "rotated", pair.Rotated)

	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, transport.RefreshData{
		AccessToken: pair.AccessToken,
	}, "Access token refreshed"))
}

// Self returns the caller's public profile without the envelope.
func (h *AuthHTTP) Self(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	}
	return c.JSON(http.StatusOK, user.Profile())
}

func (h *AuthHTTP) setTokenCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(CreateCookie(accessCookieName, pair.AccessToken, "/", pair.AccessExp, h.SecureCookies))
	c.SetCookie(CreateCookie(refreshCookieName, pair.RefreshToken, "/", refreshExpiry(pair), h.SecureCookies))
}

// A refresh token kept alive by the grace window still needs a cookie that
// outlives the request.
func refreshExpiry(pair *service.TokenPair) time.Time {
	if pair.RefreshExp.Before(pair.AccessExp) {
		return pair.AccessExp
	}
	return pair.RefreshExp
}
