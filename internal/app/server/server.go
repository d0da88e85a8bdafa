package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"attendance/internal/app/reporting"
	"attendance/internal/auth"
	"attendance/internal/platform/config"
	"attendance/internal/platform/logging"
	"attendance/internal/transport/http/api"
	authhandler "attendance/internal/transport/http/handlers/auth"
	reportshandler "attendance/internal/transport/http/handlers/reports"
	"attendance/internal/transport/http/middleware"
)

// Run serves the report API until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg)
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return err
	}

	app, err := reporting.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	defer app.Close()
	app.Jobs.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("attendance report server listening", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		return err
	}
	return nil
}

func NewRouter(app *reporting.App) http.Handler {
	cfg := app.Config
	logger := app.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.DB.Ping(ctx); err != nil {
			http.Error(w, "run history not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.With(middleware.RequireAuth, middleware.RequireRole(auth.RoleAdmin)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, app.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(cfg.JWTSecret, cfg.TokenTTL, cfg.AdminUsername, cfg.AdminPasswordHash)
		r.With(middleware.LoginRateLimit(10, time.Minute)).Post("/auth/login", authHandler.HandleLogin)

		loc, err := cfg.Location()
		if err != nil {
			loc = time.Local
		}
		reportsHandler := reportshandler.NewHandler(app.Jobs, app.Runs, app.Sealer, loc)
		reportsHandler.RegisterRoutes(r)
	})

	return router
}
