package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/konohovalex/MachineNotesServer/internal/infra/config"
	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/handlers"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/middleware"
	"github.com/konohovalex/MachineNotesServer/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Accounts *usecase.AccountService
	Notes    *usecase.NotesService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	TokenIssuer *security.TokenIssuer
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.TokenIssuer)

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		accountGroup := api.Group("/account")
		accountHandler := handlers.NewAccountHandler(deps.Services.Accounts)
		accountHandler.RegisterRoutes(accountGroup, authMiddleware)

		notesGroup := api.Group("/notes")
		notesGroup.Use(authMiddleware)
		notesHandler := handlers.NewNotesHandler(deps.Services.Notes)
		notesHandler.RegisterRoutes(notesGroup)
	}

	return r
}
