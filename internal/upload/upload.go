// Package upload stages multipart files on local disk for the duration of a
// request.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/userauth/internal/logging"
)

const ctxKey = "upload.files"

type Field struct {
	Name     string
	MaxCount int
}

// Files maps a form field to the local paths of its staged files.
type Files map[string][]string

// First returns the first staged path for field, or "".
func (f Files) First(field string) string {
	if paths := f[field]; len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// Cleanup removes staged files that are still on disk.
func (f Files) Cleanup(ctx context.Context) {
	for _, paths := range f {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.FromContext(ctx).Warn("cleanup_failed", "path", p, "error", err)
			}
		}
	}
}

func FromContext(c echo.Context) Files {
	if f, ok := c.Get(ctxKey).(Files); ok {
		return f
	}
	return Files{}
}

// Fields stages the named multipart file fields into dir before the handler
// runs and removes whatever is left once it returns.
func Fields(dir string, fields ...Field) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			files := Files{}
			defer files.Cleanup(ctx)

			if isMultipart(c.Request()) {
				form, err := c.MultipartForm()
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
				}
				for _, f := range fields {
					for i, fh := range form.File[f.Name] {
						if f.MaxCount > 0 && i >= f.MaxCount {
							break
						}
						path, err := save(fh, dir)
						if err != nil {
							logging.FromContext(ctx).Error("upload_stage_failed", "field", f.Name, "error", err)
							return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store uploaded file")
						}
						files[f.Name] = append(files[f.Name], path)
					}
				}
			}

			c.Set(ctxKey, files)
			return next(c)
		}
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func save(fh *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(fh.Filename))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return path, nil
}
