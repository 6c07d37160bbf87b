// Package app provides application initialization and lifecycle management
// for the campuswatch daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alerta-utec/campuswatch/internal/auth"
	"github.com/alerta-utec/campuswatch/internal/config"
	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/pkg/httputil"
	"github.com/alerta-utec/campuswatch/internal/realtime"
	realtimesim "github.com/alerta-utec/campuswatch/internal/realtime/sim"
	"github.com/alerta-utec/campuswatch/internal/realtime/ws"
	"github.com/alerta-utec/campuswatch/internal/repository"
	"github.com/alerta-utec/campuswatch/internal/repository/remote"
	repositorysim "github.com/alerta-utec/campuswatch/internal/repository/sim"
	"github.com/alerta-utec/campuswatch/internal/store"
	"github.com/alerta-utec/campuswatch/internal/syncer"
	"github.com/alerta-utec/campuswatch/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config     *config.Config
	logger     *slog.Logger
	session    *auth.Session
	store      *store.Store
	repo       repository.Repository
	channel    realtime.Channel
	controller *syncer.Controller
	httpServer *http.Server

	simRepo *repositorysim.Repository
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	session := auth.NewSession(cfg.Auth.StatePath, logger)
	st := store.New()

	app := &App{
		config:  cfg,
		logger:  logger,
		session: session,
		store:   st,
	}

	switch cfg.Mode {
	case config.ModeSim:
		app.simRepo = repositorysim.New(repositorysim.Config{
			MinLatency:    cfg.Sim.MinLatency,
			MaxLatency:    cfg.Sim.MaxLatency,
			AutoReply:     cfg.Sim.AutoReply,
			ReplyMinDelay: 2 * time.Second,
			ReplyMaxDelay: 4 * time.Second,
		}, st, session, logger)
		app.repo = app.simRepo

		app.channel = realtimesim.New(realtimesim.Config{
			EventInterval:    cfg.Sim.EventInterval,
			EventJitter:      cfg.Sim.EventJitter,
			WatchdogInterval: cfg.Sim.WatchdogInterval,
		}, logger)

	case config.ModeRemote:
		app.repo = remote.New(remote.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			RateLimit: cfg.API.RateLimit,
			Burst:     cfg.API.Burst,
		}, session)

		app.channel = ws.New(ws.Config{
			URL:                  cfg.WS.URL,
			ReconnectInterval:    cfg.WS.ReconnectInterval,
			MaxReconnectAttempts: cfg.WS.MaxReconnectAttempts,
			HandshakeTimeout:     10 * time.Second,
		}, session, logger)

	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.router(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run logs in if needed, starts the sync controller, and serves the local
// metrics listener until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	a.controller = syncer.New(a.store, a.repo, a.channel, a.scopePolicy(), a.logger)
	a.controller.SetNotifier(newLogNotifier(a.logger))

	if err := a.controller.Start(ctx); err != nil {
		return fmt.Errorf("start sync controller: %w", err)
	}

	go func() {
		a.logger.Info("starting metrics listener",
			"host", a.config.HTTP.Host,
			"port", a.config.HTTP.Port,
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics listener error", "error", err)
		}
	}()

	<-ctx.Done()
	return nil
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	if a.controller != nil {
		a.controller.Stop()
	}
	if a.simRepo != nil {
		a.simRepo.Close()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics listener: %w", err)
	}
	return nil
}

// Controller returns the sync controller. Used by embedding UIs and tests.
func (a *App) Controller() *syncer.Controller {
	return a.controller
}

// Session returns the auth session.
func (a *App) Session() *auth.Session {
	return a.session
}

func (a *App) ensureSession(ctx context.Context) error {
	if a.session.Authenticated() {
		return nil
	}

	var authenticator auth.Authenticator
	email := a.config.Auth.Email
	password := a.config.Auth.Password

	if a.config.Mode == config.ModeSim {
		sim := auth.NewSimAuthenticator()
		if err := sim.SeedDemoAccounts(a.config.Sim.DemoPassword); err != nil {
			return fmt.Errorf("seed demo accounts: %w", err)
		}
		authenticator = sim
		if email == "" {
			email = "student@utec.edu.pe"
			password = a.config.Sim.DemoPassword
		}
	} else {
		if email == "" || password == "" {
			return fmt.Errorf("no stored session and no auth credentials configured")
		}
		authenticator = auth.NewRemoteAuthenticator(a.config.API.BaseURL, a.config.API.Timeout)
	}

	if err := a.session.Login(ctx, authenticator, email, password); err != nil {
		return err
	}

	user, _ := a.session.CurrentUser()
	a.logger.Info("logged in", "email", user.Email, "role", user.Role)
	return nil
}

func (a *App) scopePolicy() syncer.ScopePolicy {
	if a.config.Scope == config.ScopeAll {
		return syncer.ScopeAll()
	}
	user, ok := a.session.CurrentUser()
	if !ok {
		return syncer.ScopeAll()
	}
	// Supervisors and workers see everything even in owned scope; only
	// students are limited to their own reports.
	if user.Role != domain.RoleStudent {
		return syncer.ScopeAll()
	}
	return syncer.ScopeOwnedBy(user.Email)
}

func (a *App) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", a.healthzHandler)
	r.Get("/version", a.versionHandler)

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
