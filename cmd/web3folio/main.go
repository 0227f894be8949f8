// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"

	"web3folio/internal/cache"
	"web3folio/internal/config"
	"web3folio/internal/handler"
	"web3folio/internal/handler/api"
	"web3folio/internal/logging"
	"web3folio/internal/middleware"
	"web3folio/internal/scheduler"
	"web3folio/internal/seed"
	"web3folio/internal/service"
	"web3folio/internal/store"
	"web3folio/internal/token"
	"web3folio/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "web3folio - Web3 portfolio and blog backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_AUTH_SECRET        Token signing secret (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_DB_PATH            SQLite database path (default: ./data/web3folio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_REDIS_URL          Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_CORS_ORIGINS       Allowed CORS origins, comma-separated\n")
		_, _ = fmt.Fprintf(os.Stderr, "  W3F_DO_SEED            Seed a development database (default: false)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("web3folio %s\n", version.String())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := seed.Run(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Post list cache, backed by Redis when configured
	listCache := cache.New(cfg)
	defer func() {
		if err := listCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	postCache := cache.NewPostListCache(listCache)

	tokens := token.NewManager(cfg.AuthSecret, time.Duration(cfg.TokenLifetimeMinutes)*time.Minute)
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	events := service.NewEventService(db)

	sched := scheduler.New(logger, events, loginProtection,
		time.Duration(cfg.EventRetentionDays)*24*time.Hour)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	apiHandler := api.NewHandler(db, tokens, events, loginProtection, postCache, cfg)
	pages := handler.NewPages(db, cfg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Cache"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestPath)
	r.Use(middleware.Session(tokens, !cfg.IsDevelopment()))

	// HTML pages, behind the route gate
	pageLimiter := middleware.NewGlobalRateLimiter(10, 20)
	r.Group(func(r chi.Router) {
		r.Use(pageLimiter.Middleware())
		r.Use(middleware.Gate())

		r.Get("/", pages.Home)
		r.Get("/dashboard", pages.Dashboard)
		r.Get("/admin", pages.Admin)
		r.Get("/auth/signin", pages.SignIn)
		r.Get("/auth/signup", pages.SignUp)
		r.Get("/auth/signout", pages.SignOut)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Minute))

		r.Get("/status", apiHandler.Status)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", apiHandler.Signup)
			r.With(loginProtection.Middleware()).Post("/signin", apiHandler.Signin)
			r.Post("/signout", apiHandler.Signout)
			r.Get("/session", apiHandler.Session)
		})

		r.Route("/blog", func(r chi.Router) {
			r.Get("/posts", apiHandler.ListPosts)
			r.Post("/posts", apiHandler.CreatePost)
			r.Get("/posts/{slug}", apiHandler.GetPost)
			r.Get("/tags", apiHandler.ListTags)
			r.Get("/categories", apiHandler.ListCategories)
			r.Post("/categories", apiHandler.CreateCategory)
		})

		r.Route("/user", func(r chi.Router) {
			r.Post("/wallet", apiHandler.LinkWallet)
			r.Delete("/wallet", apiHandler.UnlinkWallet)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", apiHandler.ListUsers)
			r.Get("/events", apiHandler.ListEvents)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
