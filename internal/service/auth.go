package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/userauth/internal/blob"
	"github.com/Skotchmaster/userauth/internal/events"
	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/models"
	"github.com/Skotchmaster/userauth/internal/repo"
)

type UserStore interface {
	TokenStore
	FindSanitizedByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, u *models.User) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

type PasswordVerifier interface {
	CheckPassword(hash, password string) bool
}

type PasswordHasher interface {
	PasswordVerifier
	HashPassword(password string) (string, error)
}

type AuthService struct {
	Users     UserStore
	Tokens    *TokenManager
	Blobs     blob.Uploader
	Passwords PasswordHasher
	Events    events.Publisher
}

type RegisterInput struct {
	Fullname       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

type LoginResult struct {
	User   *models.User
	Tokens *TokenPair
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	for _, field := range []string{in.Fullname, in.Email, in.Username, in.Password} {
		if strings.TrimSpace(field) == "" {
			return nil, newError(ErrBadRequest, "All fields are required!")
		}
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	exists, err := s.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot check duplicates", "error", err)
		return nil, newError(ErrInternal, "Error to register user!")
	}
	if exists {
		l.Warn("register_error", "status", 409, "reason", "user already exist")
		return nil, newError(ErrConflict, "User with email or username already exists")
	}

	if in.AvatarPath == "" {
		return nil, newError(ErrBadRequest, "Avatar file is required!")
	}

	avatar := s.Blobs.Upload(ctx, in.AvatarPath)
	coverImage := s.Blobs.Upload(ctx, in.CoverImagePath)
	if avatar == nil {
		l.Warn("register_error", "status", 400, "reason", "avatar upload failed")
		return nil, newError(ErrBadRequest, "Failed to upload")
	}

	pwHash, err := s.Passwords.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, newError(ErrInternal, "Error to register user!")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Fullname:     strings.TrimSpace(in.Fullname),
		AvatarURL:    avatar.URL,
		PasswordHash: pwHash,
	}
	if coverImage != nil {
		user.CoverImageURL = coverImage.URL
	}

	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, newError(ErrConflict, "User with email or username already exists")
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, newError(ErrInternal, "Error to register user!")
	}

	created, err := s.Users.FindSanitizedByID(ctx, user.ID)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot load created user", "error", err)
		return nil, newError(ErrInternal, "Error to register user!")
	}

	s.publish(ctx, events.UserRegistered, created)
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" {
		return nil, newError(ErrNotFound, "Email is required")
	}
	if password == "" {
		return nil, newError(ErrNotFound, "Password is required")
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, newError(ErrNotFound, "User not exist")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, newError(ErrInternal, "Something went wrong while logging in")
	}

	if !s.Passwords.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials", "user_id", user.ID.String())
		return nil, newError(ErrUnauthorized, "Invalid user credentials")
	}

	pair, err := s.Tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	loggedIn, err := s.Users.FindSanitizedByID(ctx, user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot load user", "error", err)
		return nil, newError(ErrInternal, "Something went wrong while logging in")
	}

	s.publish(ctx, events.UserLoggedIn, loggedIn)
	return &LoginResult{User: loggedIn, Tokens: pair}, nil
}

// LogOut drops the user's stored refresh token, whatever it was.
func (s *AuthService) LogOut(ctx context.Context, userID uuid.UUID) error {
	if err := s.Users.ClearRefreshToken(ctx, userID); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "svc", "auth.logout", "status", 500, "error", err)
		return newError(ErrInternal, "Something went wrong while logging out")
	}
	s.publishID(ctx, events.UserLoggedOut, userID)
	return nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.Tokens.RotateOnRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if pair.Rotated {
		s.publishID(ctx, events.RefreshTokenRotated, pair.UserID)
	}
	return pair, nil
}

// CurrentUser loads the sanitized record behind an access token subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Users.FindSanitizedByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid Access Token")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	s.send(ctx, eventType, user.ID, map[string]any{
		"type":     eventType,
		"userID":   user.ID.String(),
		"username": user.Username,
	})
}

func (s *AuthService) publishID(ctx context.Context, eventType string, userID uuid.UUID) {
	s.send(ctx, eventType, userID, map[string]any{
		"type":   eventType,
		"userID": userID.String(),
	})
}

func (s *AuthService) send(ctx context.Context, eventType string, userID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Events.PublishEvent(ctx, events.TopicUserEvents, userID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", eventType, "error", err)
	}
}
