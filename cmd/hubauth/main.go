package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"hubauth/config"
	"hubauth/internal/delivery"
	"hubauth/internal/delivery/api"
	"hubauth/internal/delivery/api/middleware"
	"hubauth/internal/delivery/api/router/handler"
	"hubauth/internal/domain/repository"
	"hubauth/internal/domain/service"
	"hubauth/internal/errors"
	"hubauth/internal/infra/auth"
	logs "hubauth/internal/infra/log"
	"hubauth/internal/infra/metrics"
	"hubauth/internal/infra/persistence/memory"
	"hubauth/internal/infra/persistence/postgres"
	"hubauth/internal/infra/pubsub"
	"hubauth/internal/usecase/impl"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		metrics.NewRegistry,
	)
}

type storeParams struct {
	fx.In

	Lc       fx.Lifecycle
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

type storeResult struct {
	fx.Out

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	ResetRepo   repository.PasswordResetRepository
}

// newStore selects the account store named by store.driver.
func newStore(params storeParams) (storeResult, error) {
	switch params.Config.Store.Driver {
	case config.StoreDriverMemory:
		params.Logger.Warn("Using in-memory account store, accounts are lost on restart")
		store := memory.NewStore()

		return storeResult{
			TxManager:   store.TransactionManager(),
			AccountRepo: store.AccountRepository(),
			ResetRepo:   store.PasswordResetRepository(),
		}, nil

	case config.StoreDriverPostgres, "":
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lc,
			Config:    params.Config,
			Logger:    params.Logger,
			Registry:  params.Registry,
		})
		if err != nil {
			return storeResult{}, err
		}

		return storeResult{
			TxManager:   postgres.NewTransactionManager(db),
			AccountRepo: postgres.NewAccountRepository(db),
			ResetRepo:   postgres.NewPasswordResetRepository(db),
		}, nil

	default:
		return storeResult{}, errors.Errorf("unknown store driver: %s", params.Config.Store.Driver)
	}
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			newStore,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewSigningSecret,
			auth.NewBcryptHasher,
			auth.NewJWTService,
			pubsub.NewEventPublisher,
			newAuthMetrics,
			fx.Annotate(
				newMetricsHandler,
				fx.ResultTags(`name:"metrics"`),
			),
		),
	)
}

func newAuthMetrics(registry *prometheus.Registry) service.AuthMetrics {
	return metrics.NewCollector(registry)
}

func newMetricsHandler(registry *prometheus.Registry) http.Handler {
	return metrics.Handler(registry)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewPasswordResetService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
			newRateLimiter,
		),
	)
}

// newRateLimiter returns nil when rate limiting is disabled; the router then mounts no limiter.
func newRateLimiter(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) *middleware.RateLimiter {
	if cfg.RateLimit == nil || !cfg.RateLimit.Enabled {
		return nil
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			limiter.Stop()

			return nil
		},
	})

	return limiter
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAccountHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
