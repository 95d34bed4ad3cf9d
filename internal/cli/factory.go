package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/config"
	"github.com/aretw0/stateflow/pkg/adapters/file"
	httpadapter "github.com/aretw0/stateflow/pkg/adapters/http"
	"github.com/aretw0/stateflow/pkg/adapters/memory"
	"github.com/aretw0/stateflow/pkg/adapters/postgres"
	redisadapter "github.com/aretw0/stateflow/pkg/adapters/redis"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/observability"
	"github.com/aretw0/stateflow/pkg/persistence/middleware"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/service"
	"go.opentelemetry.io/otel"
)

// App is the wired orchestrator plus everything the transports share.
type App struct {
	Service *service.Service
	Streams *httpadapter.StreamManager
	Metrics *observability.Metrics // nil when metrics are disabled
	Logger  *slog.Logger

	closers []func(context.Context) error
}

type backend struct {
	defs      ports.DefinitionStore
	insts     ports.InstanceStore
	locker    ports.DistributedLocker
	publisher ports.EventPublisher
}

// NewApp builds the orchestrator described by cfg.
// Callers must Close the App to release connections and flush traces.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Logger: logger}
	if err := app.build(ctx, cfg); err != nil {
		if cerr := app.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("Cleanup after failed setup", "err", cerr)
		}
		return nil, err
	}
	logger.Debug("Orchestrator ready", "storage", cfg.Storage.Driver)
	return app, nil
}

func (app *App) build(ctx context.Context, cfg *config.Config) error {
	logger := app.Logger
	b, err := app.openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.SetupTracing(ctx, cfg.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		app.closers = append(app.closers, shutdown)

		tracer := otel.Tracer("github.com/aretw0/stateflow/store")
		b.defs = middleware.ChainDefinitions(b.defs, middleware.TraceDefinitions(tracer))
		b.insts = middleware.ChainInstances(b.insts, middleware.TraceInstances(tracer))
	}

	app.Streams = httpadapter.NewStreamManager(logger)
	hooks := []domain.LifecycleHooks{app.Streams.Hooks(), debugHooks(logger)}
	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics(nil)
		hooks = append(hooks, app.Metrics.Hooks())
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithEngine(stateflow.New(stateflow.WithLogger(logger))),
		service.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
		service.WithLockTTL(cfg.Lock.TTL),
	}
	if b.locker != nil {
		opts = append(opts, service.WithLocker(b.locker))
	}
	if b.publisher != nil {
		opts = append(opts, service.WithPublisher(b.publisher))
	}

	app.Service = service.New(b.defs, b.insts, opts...)
	return nil
}

func (app *App) openStorage(ctx context.Context, cfg config.StorageConfig) (backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return backend{defs: memory.NewDefinitionStore(), insts: memory.NewInstanceStore()}, nil

	case config.DriverFile:
		return backend{defs: file.NewDefinitionStore(cfg.Dir), insts: file.NewInstanceStore(cfg.Dir)}, nil

	case config.DriverRedis:
		client := redisadapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return backend{}, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		prefix := redisadapter.WithPrefix(cfg.Redis.Prefix)
		b := backend{
			defs:   redisadapter.NewDefinitionStore(client, prefix),
			insts:  redisadapter.NewInstanceStore(client, prefix),
			locker: redisadapter.NewLocker(client, prefix),
		}
		if cfg.Redis.PublishEvents {
			b.publisher = redisadapter.NewPublisher(client, app.Logger, prefix)
		}
		return b, nil

	case config.DriverPostgres:
		db, err := postgres.Open(cfg.Postgres.DSN)
		if err != nil {
			return backend{}, err
		}
		app.closers = append(app.closers, func(context.Context) error { return postgres.Close(db) })
		if err := postgres.Migrate(ctx, db); err != nil {
			return backend{}, err
		}
		return backend{defs: postgres.NewDefinitionStore(db), insts: postgres.NewInstanceStore(db)}, nil

	default:
		return backend{}, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDefinitionCreated: func(ctx context.Context, e *domain.DefinitionEvent) {
			logger.Debug("Definition created", "definition_id", e.DefinitionID, "name", e.Name)
		},
		OnInstanceStarted: func(ctx context.Context, e *domain.InstanceEvent) {
			logger.Debug("Instance started", "instance_id", e.InstanceID, "definition_id", e.DefinitionID, "state", e.ToStateID)
		},
		OnActionExecuted: func(ctx context.Context, e *domain.InstanceEvent) {
			logger.Debug("Action executed", "instance_id", e.InstanceID, "action", e.Action, "from", e.FromStateID, "to", e.ToStateID)
		},
		OnActionRejected: func(ctx context.Context, e *domain.InstanceEvent) {
			logger.Debug("Action rejected", "instance_id", e.InstanceID, "action", e.Action, "kind", e.Kind, "err", e.Error)
		},
	}
}
