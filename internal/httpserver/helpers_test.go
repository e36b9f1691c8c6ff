package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/userauth/internal/blob"
	"github.com/Skotchmaster/userauth/internal/config"
	"github.com/Skotchmaster/userauth/internal/events"
	"github.com/Skotchmaster/userauth/internal/hash"
	"github.com/Skotchmaster/userauth/internal/middleware"
	"github.com/Skotchmaster/userauth/internal/models"
	"github.com/Skotchmaster/userauth/internal/repo"
	"github.com/Skotchmaster/userauth/internal/service"
	"github.com/Skotchmaster/userauth/internal/testdb"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
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

// diskBlobs behaves like the S3 store towards local files: it always removes
// the staged file it was handed.
type diskBlobs struct {
	uploaded []string
}

func (d *diskBlobs) Upload(_ context.Context, localPath string) *blob.UploadResult {
	if localPath == "" {
		return nil
	}
	defer os.Remove(localPath)
	d.uploaded = append(d.uploaded, localPath)
	return &blob.UploadResult{URL: "https://cdn.test/" + filepath.Base(localPath)}
}

type server struct {
	e         *echo.Echo
	repo      *repo.GormRepo
	clock     *clock
	blobs     *diskBlobs
	uploadDir string
}

func newServer(t *testing.T) *server {
	t.Helper()

	r := repo.New(testdb.Open(t))
	clk := &clock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}

	tm := service.NewTokenManager(config.Tokens{
		AccessSecret:  []byte("http-access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("http-refresh-secret"),
		RefreshTTL:    10 * 24 * time.Hour,
		RefreshGrace:  time.Hour,
	}, r)
	tm.Now = clk.Now

	blobs := &diskBlobs{}
	svc := &service.AuthService{
		Users:     r,
		Tokens:    tm,
		Blobs:     blobs,
		Passwords: hash.Bcrypt{Cost: bcrypt.MinCost},
		Events:    events.Nop{},
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	uploadDir := t.TempDir()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc, SecureCookies: true},
		Auth:        middleware.NewAuth(tm, svc),
		UploadDir:   uploadDir,
	})

	return &server{e: e, repo: r, clock: clk, blobs: blobs, uploadDir: uploadDir}
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) createUser(t *testing.T, username, email, password string) *models.User {
	t.Helper()

	pwHash, err := hash.Bcrypt{Cost: bcrypt.MinCost}.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        email,
		Fullname:     "Test " + username,
		AvatarURL:    "https://cdn.test/" + username + ".png",
		PasswordHash: pwHash,
	}
	require.NoError(t, s.repo.Create(context.Background(), u))
	return u
}

func (s *server) storedRefresh(t *testing.T, u *models.User) string {
	t.Helper()

	got, err := s.repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.StoredRefreshToken()
}

func (s *server) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    email,
		"password": password,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}

func (s *server) stagedFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
