package app

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

	"auth-service/internal/config"
	"auth-service/internal/database"
	"auth-service/internal/event"
	"auth-service/internal/handler"
	"auth-service/internal/logger"
	"auth-service/internal/middleware"
	"auth-service/internal/repository"
	"auth-service/internal/router"
	"auth-service/internal/security"
	"auth-service/internal/service"
	"auth-service/internal/validation"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

// Connect opens the credential store and applies pending migrations.
func Connect(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return db, nil
}

// NewAuthService builds the credential core over an open store. Revocation
// is attached only when enabled in cfg.
func NewAuthService(cfg *config.Config, db *database.DB, events event.Publisher) (*service.AuthService, *security.TokenManager, error) {
	hasher, err := security.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.UserJWTSecret, cfg.AdminJWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	authService := service.NewAuthService(cfg, repository.NewUserRepository(db.Pool), hasher, tokens, events)
	if cfg.TokenRevocation {
		authService.WithRevocations(repository.NewRevocationRepository(db.Pool))
	}

	return authService, tokens, nil
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))

	db, err := Connect(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("database ready", "token_revocation", cfg.TokenRevocation)

	bus := event.NewBus()

	authService, tokens, err := NewAuthService(cfg, db, bus)
	if err != nil {
		db.Close()
		return nil, err
	}

	userService := service.NewUserService(repository.NewUserRepository(db.Pool), bus)
	auditService := service.NewAuditService(repository.NewAuditRepository(db.Pool))

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	auditDone := auditService.Start(backgroundCtx, bus)
	go authService.RunRevocationCleanup(backgroundCtx, cfg.RevocationCleanupInterval)

	v := validation.New()
	authMiddleware := middleware.NewAuthMiddleware(tokens, authService, handler.WriteError)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, v),
		User:   handler.NewUserHandler(userService, v),
		Admin:  handler.NewAdminHandler(userService, v),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(db),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				backgroundCancel()
				<-auditDone
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup runs in registration order: background workers stop before the
// pool they write to is closed.
func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
