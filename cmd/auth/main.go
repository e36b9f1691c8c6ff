package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/userauth/internal/blob"
	"github.com/Skotchmaster/userauth/internal/config"
	"github.com/Skotchmaster/userauth/internal/db"
	"github.com/Skotchmaster/userauth/internal/events"
	"github.com/Skotchmaster/userauth/internal/hash"
	"github.com/Skotchmaster/userauth/internal/httpserver"
	"github.com/Skotchmaster/userauth/internal/logging"
	"github.com/Skotchmaster/userauth/internal/middleware"
	loggingmw "github.com/Skotchmaster/userauth/internal/middleware/logging"
	"github.com/Skotchmaster/userauth/internal/repo"
	"github.com/Skotchmaster/userauth/internal/service"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(initCtx, gdb)
	}
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}

	store, err := blob.NewS3Store(initCtx, cfg.Blob)
	cancel()
	if err != nil {
		log.Fatalf("blob store init error: %v", err)
	}

	prod := events.New(cfg.KafkaBrokers)

	users := repo.New(gdb)
	tm := service.NewTokenManager(cfg.Tokens, users)
	svc := &service.AuthService{
		Users:     users,
		Tokens:    tm,
		Blobs:     store,
		Passwords: hash.Bcrypt{Cost: bcrypt.DefaultCost},
		Events:    prod,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.BodyLimit("16M"))
	if cfg.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowCredentials: true,
		}))
	}

	var csrf echo.MiddlewareFunc
	if cfg.CSRF {
		csrfCfg := middleware.DefaultCSRFConfig()
		csrfCfg.Secure = cfg.CookieSecure
		csrf = middleware.CSRF(csrfCfg)
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc, SecureCookies: cfg.CookieSecure},
		Auth:        middleware.NewAuth(tm, svc),
		UploadDir:   cfg.UploadDir,
		CSRF:        csrf,
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx, gdb)
		},
	})

	go func() {
		logger.Info("server_starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	closeAll(logger, gdb, prod)

	logger.Info("shutdown_complete")
}

func closeAll(logger *slog.Logger, gdb *gorm.DB, prod events.Publisher) {
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
}
