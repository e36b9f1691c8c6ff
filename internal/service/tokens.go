package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/userauth/internal/config"
	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/models"
	"github.com/Skotchmaster/userauth/internal/repo"
	"github.com/Skotchmaster/userauth/internal/tokens"
)

// TokenStore is the part of the credential store the token lifecycle needs.
type TokenStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
}

type TokenPair struct {
	UserID       uuid.UUID
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time

	// Rotated reports whether RefreshToken replaced the presented one.
	Rotated bool
}

// TokenManager issues, verifies and rotates access/refresh tokens. A user has
// at most one live refresh token: the value stored on the user record.
type TokenManager struct {
	Users      TokenStore
	Access     tokens.TokenSigner
	Refresh    tokens.TokenSigner
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func NewTokenManager(cfg config.Tokens, users TokenStore) *TokenManager {
	m := &TokenManager{
		Users:      users,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Now:        time.Now,
	}
	m.Access = &tokens.HMACSigner{Secret: cfg.AccessSecret, Now: m.now}
	m.Refresh = &tokens.HMACSigner{Secret: cfg.RefreshSecret, Leeway: cfg.RefreshGrace, Now: m.now}
	return m
}

func (m *TokenManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *TokenManager) IssueAccessToken(user *models.User) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.AccessTTL)
	token, err := m.Access.Sign(tokens.AccessClaims{
		Email:    user.Email,
		Username: user.Username,
		Fullname: user.Fullname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (m *TokenManager) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.RefreshTTL)
	token, err := m.Refresh.Sign(tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (m *TokenManager) VerifyAccessToken(token string) (*tokens.AccessClaims, error) {
	var claims tokens.AccessClaims
	if err := m.Access.Verify(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// IssueTokenPair mints both tokens for the user and stores the refresh token
// in place of any previous one. Failures surface as ErrTokenGeneration.
func (m *TokenManager) IssueTokenPair(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "tokens.issue_pair", "user_id", userID.String())

	user, err := m.Users.FindByID(ctx, userID)
	if err != nil {
		l.Error("token_generation_failed", "reason", "cannot load user", "error", err)
		return nil, ErrTokenGeneration
	}

	accessToken, accessExp, err := m.IssueAccessToken(user)
	if err != nil {
		l.Error("token_generation_failed", "reason", "cannot sign access token", "error", err)
		return nil, ErrTokenGeneration
	}

	refreshToken, refreshExp, err := m.IssueRefreshToken(user)
	if err != nil {
		l.Error("token_generation_failed", "reason", "cannot sign refresh token", "error", err)
		return nil, ErrTokenGeneration
	}

	if err := m.Users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		l.Error("token_generation_failed", "reason", "cannot store refresh token", "error", err)
		return nil, ErrTokenGeneration
	}

	return &TokenPair{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		Rotated:      true,
	}, nil
}

// RotateOnRefresh exchanges a refresh token for a new access token. The
// presented token must verify and must equal the stored one. It is replaced
// only once its exp has passed, which the refresh signer's grace leeway
// allows; otherwise it is handed back unchanged. Failures are *RefreshError.
func (m *TokenManager) RotateOnRefresh(ctx context.Context, presented string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "tokens.rotate")

	if presented == "" {
		return nil, &RefreshError{Reason: RefreshMissing}
	}

	var claims tokens.RefreshClaims
	if err := m.Refresh.Verify(presented, &claims); err != nil {
		return nil, &RefreshError{Reason: RefreshInvalid, Err: err}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, &RefreshError{Reason: RefreshUnknownUser, Err: err}
	}

	user, err := m.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, &RefreshError{Reason: RefreshUnknownUser, Err: err}
		}
		l.Error("refresh_failed", "reason", "cannot load user", "error", err)
		return nil, &RefreshError{Reason: RefreshIssueFailed, Err: err}
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.StoredRefreshToken())) != 1 {
		l.Warn("refresh_rejected", "reason", "superseded", "user_id", userID.String())
		return nil, &RefreshError{Reason: RefreshSuperseded}
	}

	pair := &TokenPair{UserID: user.ID, RefreshToken: presented}

	now := m.now()
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() <= now.Unix() {
		token, exp, err := m.IssueRefreshToken(user)
		if err != nil {
			l.Error("refresh_failed", "reason", "cannot sign refresh token", "error", err)
			return nil, &RefreshError{Reason: RefreshIssueFailed, Err: err}
		}
		if err := m.Users.SetRefreshToken(ctx, user.ID, token); err != nil {
			l.Error("refresh_failed", "reason", "cannot store refresh token", "error", err)
			return nil, &RefreshError{Reason: RefreshIssueFailed, Err: err}
		}
		pair.RefreshToken = token
		pair.RefreshExp = exp
		pair.Rotated = true
	} else {
		pair.RefreshExp = claims.ExpiresAt.Time
	}

	accessToken, accessExp, err := m.IssueAccessToken(user)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot sign access token", "error", err)
		return nil, &RefreshError{Reason: RefreshIssueFailed, Err: err}
	}
	pair.AccessToken = accessToken
	pair.AccessExp = accessExp

	return pair, nil
}
