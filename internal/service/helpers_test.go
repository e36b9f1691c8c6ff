package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/userauth/internal/blob"
	"github.com/Skotchmaster/userauth/internal/config"
	"github.com/Skotchmaster/userauth/internal/hash"
	"github.com/Skotchmaster/userauth/internal/models"
	"github.com/Skotchmaster/userauth/internal/repo"
	"github.com/Skotchmaster/userauth/internal/testdb"
)

var testTokens = config.Tokens{
	AccessSecret:  []byte("test-access-secret"),
	AccessTTL:     15 * time.Minute,
	RefreshSecret: []byte("test-refresh-secret"),
	RefreshTTL:    10 * 24 * time.Hour,
	RefreshGrace:  time.Hour,
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBlobs struct {
	fail  bool
	calls []string
}

func (f *fakeBlobs) Upload(_ context.Context, localPath string) *blob.UploadResult {
	f.calls = append(f.calls, localPath)
	if localPath == "" || f.fail {
		return nil
	}
	return &blob.UploadResult{URL: "https://cdn.test/" + filepath.Base(localPath)}
}

type sentEvent struct {
	topic string
	key   string
	event map[string]any
}

type fakePublisher struct {
	sent []sentEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.sent = append(f.sent, sentEvent{topic: topic, key: key, event: event.(map[string]any)})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []string {
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.event["type"].(string))
	}
	return out
}

type testEnv struct {
	repo   *repo.GormRepo
	tokens *TokenManager
	clock  *clock
	blobs  *fakeBlobs
	events *fakePublisher
	svc    *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := repo.New(testdb.Open(t))
	clk := newClock()
	tm := NewTokenManager(testTokens, r)
	tm.Now = clk.Now

	env := &testEnv{
		repo:   r,
		tokens: tm,
		clock:  clk,
		blobs:  &fakeBlobs{},
		events: &fakePublisher{},
	}
	env.svc = &AuthService{
		Users:     r,
		Tokens:    tm,
		Blobs:     env.blobs,
		Passwords: hash.Bcrypt{Cost: bcrypt.MinCost},
		Events:    env.events,
	}
	return env
}

func (env *testEnv) createUser(t *testing.T, username, email, password string) *models.User {
	t.Helper()

	pwHash, err := env.svc.Passwords.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        email,
		Fullname:     "Test " + username,
		AvatarURL:    "https://cdn.test/" + username + ".png",
		PasswordHash: pwHash,
	}
	require.NoError(t, env.repo.Create(context.Background(), u))
	return u
}

func (env *testEnv) storedRefresh(t *testing.T, u *models.User) string {
	t.Helper()

	got, err := env.repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.StoredRefreshToken()
}
