package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/parishkit/parish-idm/pkg/account"
	accountapi "github.com/parishkit/parish-idm/pkg/account/api"
	"github.com/parishkit/parish-idm/pkg/audit"
	"github.com/parishkit/parish-idm/pkg/cache"
	"github.com/parishkit/parish-idm/pkg/config"
	"github.com/parishkit/parish-idm/pkg/identity"
	"github.com/parishkit/parish-idm/pkg/login"
	loginapi "github.com/parishkit/parish-idm/pkg/login/api"
	"github.com/parishkit/parish-idm/pkg/notification"
	"github.com/parishkit/parish-idm/pkg/permission"
	"github.com/parishkit/parish-idm/pkg/tokens"
)

// loadEnvFile loads environment variables from a .env file if one exists.
// Only sets variables that are not already set in the environment.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get current working directory", "error", err)
		return
	}

	envFile := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(-1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Database.Database,
			"host", cfg.Database.Host, "port", cfg.Database.Port, "user", cfg.Database.User)
		os.Exit(-1)
	}
	defer pool.Close()

	var idCache cache.IDCache = cache.NoopIDCache{}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		idCache = cache.NewRedisIDCache(client, cfg.Redis.TTL)
		slog.Info("Redis id cache enabled", "addr", cfg.Redis.Addr)
	}

	recorder := audit.NewSlogRecorder(1024)
	defer recorder.Close()

	notifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		TLS:      cfg.Email.TLS,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
	if err != nil {
		slog.Error("Failed to initialize email notifier", "err", err)
		os.Exit(-1)
	}
	notificationManager := notification.NewNotificationManager(cfg.Email.BaseUrl, notifier)

	userRepo := account.NewPostgresUserRepository(pool)
	permissionRepo := permission.NewPostgresRepository(pool)
	hasher := account.NewPbkdf2Hasher()

	tokenService := tokens.NewTokenService(
		tokens.NewAccessTokenGenerator(cfg.Jwt.AccessSecret, cfg.Jwt.Issuer, cfg.Jwt.Audience),
		tokens.NewRefreshTokenGenerator(cfg.Jwt.RefreshBaseSecret, cfg.Jwt.Issuer, cfg.Jwt.Audience),
		tokens.WithAccessTokenExpiry(cfg.Jwt.AccessExpiry),
		tokens.WithRefreshTokenExpiry(cfg.Jwt.RefreshExpiry),
	)

	accountService := account.NewAccountService(userRepo, recorder)
	loginService := login.NewLoginService(userRepo, permissionRepo, hasher,
		login.NewLockoutPolicy(cfg.Login.MaxFailedAttempts), tokenService, recorder, idCache)
	resetService := login.NewPasswordResetService(userRepo, hasher,
		notificationManager, recorder, cfg.Login.ResetTokenExpiry)

	cookieSetter := tokens.NewCookieSetter(true, cfg.Server.CookieSecure)
	loginHandle := loginapi.NewHandle(loginService, resetService, cookieSetter)
	accountHandle := accountapi.NewHandle(accountService, userRepo, permissionRepo)

	verifier := identity.NewVerifier(cfg.Jwt.AccessSecret, cfg.Jwt.Issuer, cfg.Jwt.Audience)
	loader := identity.NewLoader(userRepo, permissionRepo, idCache)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/auth", func(r chi.Router) {
		loginHandle.Routes(r)
	})

	r.Route("/idm", func(r chi.Router) {
		r.Use(identity.Verifier(verifier))
		r.Use(identity.Middleware(loader))
		accountHandle.Routes(r)
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "err", err)
	}
}
