package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/studioworks/backend/internal/config"
	"github.com/studioworks/backend/internal/database"
	"github.com/studioworks/backend/internal/handler"
	"github.com/studioworks/backend/internal/logging"
	"github.com/studioworks/backend/internal/repository"
	"github.com/studioworks/backend/internal/service"
	"github.com/studioworks/backend/pkg/auth"
)

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		logging.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "driver", cfg.DatabaseDriver, "auth_required", cfg.AuthRequired)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired HTTP handler and the resources it must release.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// store is the persistence selected by DATABASE_DRIVER.
type store struct {
	db       repository.DB
	requests repository.RequestRepository
	events   repository.StatusEventRepository
	close    func()
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	switch cfg.DatabaseDriver {
	case database.DriverSQLite:
		// Local mode owns its database file, so keep the schema current.
		if err := database.Migrate(database.DriverSQLite, cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			db:       repository.SQLiteDB{DB: db},
			requests: repository.NewSQLiteRequestRepository(db),
			events:   repository.NewSQLiteStatusEventRepository(db),
			close:    func() { _ = db.Close() },
		}, nil
	case database.DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &store{
			db:       pool,
			requests: repository.NewPgRequestRepository(pool),
			events:   repository.NewPgStatusEventRepository(pool),
			close:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func(){st.close}}

	requestService := service.NewRequestService(st.requests)
	lifecycleService := service.NewLifecycleService(st.requests, st.events)

	admins := auth.NewAdminAllowList(auth.ParseAdminEmails(cfg.AdminEmails))
	sessionSecret := auth.SessionSecretBytes(cfg.SessionSecret)

	h := handler.New(st.db, cfg.FrontendURL)
	requestHandler := handler.NewRequestHandler(requestService, lifecycleService)
	authHandler := handler.NewAuthHandler(admins, handler.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		GoogleRedirectPath: "/api/auth/google/callback",
		GitHubRedirectPath: "/api/auth/github/callback",
		SessionSecret:      cfg.SessionSecret,
		FrontendURL:        cfg.FrontendURL,
		BackendURL:         cfg.BackendURL,
		SecureCookies:      cfg.IsProduction(),
	})
	providersHandler := handler.NewProvidersHandler(handler.ProvidersConfig{
		GoogleClientID: cfg.GoogleClientID,
		GitHubClientID: cfg.GitHubClientID,
	})
	submitLimiter := handler.NewRateLimiter(cfg.RateLimitPerMinute)
	a.closers = append(a.closers, submitLimiter.Stop)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/auth/providers", providersHandler.Providers)
	mux.HandleFunc("GET /api/auth/google/login", authHandler.GoogleLoginURL)
	mux.HandleFunc("GET /api/auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("GET /api/auth/github/login", authHandler.GitHubLoginURL)
	mux.HandleFunc("GET /api/auth/github/callback", authHandler.GitHubCallback)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// 問い合わせフォーム（認証不要、IP ごとにレート制限）
	mux.Handle("POST /api/requests", submitLimiter.Middleware(http.HandlerFunc(requestHandler.Submit)))
	mux.HandleFunc("GET /api/requests/options", requestHandler.Options)

	// 認証必要エンドポイント
	wrapAuth := func(next http.Handler) http.Handler {
		if cfg.AuthRequired {
			return auth.RequireAuth(sessionSecret)(auth.AdminMiddleware(admins)(next))
		}
		return auth.DevAuth(next)
	}
	mux.Handle("GET /api/me", wrapAuth(http.HandlerFunc(handler.Me)))

	// Admin routes (operator-only; handlers enforce IsAdminFromContext)
	mux.Handle("GET /api/admin/requests", wrapAuth(http.HandlerFunc(requestHandler.List)))
	mux.Handle("GET /api/admin/requests/summary", wrapAuth(http.HandlerFunc(requestHandler.Summary)))
	mux.Handle("GET /api/admin/requests/{id}", wrapAuth(http.HandlerFunc(requestHandler.Get)))
	mux.Handle("PATCH /api/admin/requests/{id}", wrapAuth(http.HandlerFunc(requestHandler.PatchStatus)))
	mux.Handle("DELETE /api/admin/requests/{id}", wrapAuth(http.HandlerFunc(requestHandler.Delete)))
	mux.Handle("GET /api/admin/requests/{id}/history", wrapAuth(http.HandlerFunc(requestHandler.History)))

	a.handler = handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux)))
	return a, nil
}
