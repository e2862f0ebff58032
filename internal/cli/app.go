package cli

import (
	"context"
	"fmt"

	"bommel/internal/amqp"
	"bommel/internal/backend"
	"bommel/internal/config"
	"bommel/internal/core"
	"bommel/internal/log"
	"bommel/internal/services"
)

// App holds the configuration and the lazily opened backend shared by
// every command of one process.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Factory backend.Factory

	backend   *backend.BackendResult
	coord     *services.Coordinator
	publisher *amqp.Client
}

func NewApp(cfg *config.Config, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Discard()
	}
	return &App{
		Config:  cfg,
		Logger:  logger,
		Factory: backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger),
	}
}

// Backend opens the configured collaborator once.
func (a *App) Backend(ctx context.Context) (*backend.BackendResult, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	bcfg, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return nil, err
	}
	res, err := a.Factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	a.backend = res
	return res, nil
}

// Coordinator returns a loaded coordinator. Change events go to AMQP when
// configured; a broker that cannot be reached only disables events.
func (a *App) Coordinator(ctx context.Context) (*services.Coordinator, error) {
	if a.coord != nil {
		return a.coord, nil
	}
	res, err := a.Backend(ctx)
	if err != nil {
		return nil, err
	}

	mode := core.StatisticsMode{IncludeDrafts: a.Config.IncludeDrafts, Aggregate: a.Config.Aggregate}
	coord := services.NewCoordinator(res.Backend, a.Config.OrganizationID, mode, a.Logger)
	if a.Config.EventsEnabled() {
		client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
		if err != nil {
			a.Logger.Warn("AMQP unavailable, tree changes will not be announced", log.FieldError, err)
		} else {
			a.publisher = client
			coord.SetPublisher(client)
		}
	}
	if err := coord.Reload(ctx); err != nil {
		return nil, err
	}
	a.coord = coord
	return coord, nil
}

// Close releases the broker connection and the backend.
func (a *App) Close() error {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
		a.publisher = nil
	}
	err := a.backend.Close()
	a.backend = nil
	a.coord = nil
	return err
}
