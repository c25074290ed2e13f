package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/konohovalex/MachineNotesServer/internal/infra/config"
	"github.com/konohovalex/MachineNotesServer/internal/infra/database"
	"github.com/konohovalex/MachineNotesServer/internal/infra/logger"
	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
	"github.com/konohovalex/MachineNotesServer/internal/migrations"
	postgresrepo "github.com/konohovalex/MachineNotesServer/internal/repository/postgres"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/middleware"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/routes"
	"github.com/konohovalex/MachineNotesServer/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := migrations.Up(ctx, database.DSN(cfg.Postgres)); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT.Secret,
		security.WithAccessTokenTTL(cfg.JWT.AccessTokenTTL),
		security.WithRefreshTokenTTL(cfg.JWT.RefreshTokenTTL),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	passwordPolicy := security.NewPasswordPolicy()
	passwordPolicy.Enabled = cfg.Password.PolicyEnabled
	if cfg.Password.MinLength > 0 {
		passwordPolicy.MinLength = cfg.Password.MinLength
	}
	if cfg.Password.MaxLength > 0 {
		passwordPolicy.MaxLength = cfg.Password.MaxLength
	}
	if cfg.Password.MinZxcvbnScore > 0 {
		passwordPolicy.MinZxcvbnScore = cfg.Password.MinZxcvbnScore
	}

	repos := postgresrepo.NewRepositories(pool)

	accountService := usecase.NewAccountService(repos, tokenIssuer, passwordPolicy).WithLogger(log)
	notesService := usecase.NewNotesService().WithLogger(log)

	metrics, err := middleware.NewHTTPMetrics(nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		TokenIssuer: tokenIssuer,
		Metrics:     metrics,
		Database:    pool,
		Services: routes.ServiceSet{
			Accounts: accountService,
			Notes:    notesService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting notes API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownTimeout := a.cfg.App.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
