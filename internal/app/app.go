// Package app wires configuration into agents, sinks and the orchestrator
// for both the CLI and the worker manager.
package app

import (
	"context"
	"errors"
	"fmt"

	"company-intel/internal/agents/analyst"
	"company-intel/internal/agents/collector"
	"company-intel/internal/common/aws"
	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/observability"
	"company-intel/internal/llm"
	"company-intel/internal/orchestrator"
	"company-intel/internal/search"
	"company-intel/internal/store"
)

// ConnectFunc runs op, possibly several times, before giving up on name.
type ConnectFunc func(name string, op func() error) error

// Once is a ConnectFunc that tries exactly once.
func Once(name string, op func() error) error {
	if err := op(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type Options struct {
	ServiceName string
	Connect     ConnectFunc
	Observe     []observability.Option
}

// App holds every long-lived dependency. Optional backends stay nil when
// disabled in config.
type App struct {
	Config       *config.Config
	Obs          *observability.Observability
	LLM          *llm.Client
	Redis        *database.RedisClient
	Postgres     *database.PostgresClient
	Elastic      *database.ElasticsearchClient
	Reports      *store.PostgresStore
	Index        *store.ElasticsearchIndexer
	Collector    *collector.Agent
	Analyst      *analyst.Agent
	Orchestrator *orchestrator.Orchestrator

	logger  logger.Logger
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if opts.Connect == nil {
		opts.Connect = Once
	}
	if opts.ServiceName == "" {
		opts.ServiceName = cfg.App.Name
	}

	a := &App{Config: cfg, logger: log}
	if err := a.build(ctx, opts); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	obs, err := observability.New(opts.ServiceName, cfg.Tracing, opts.Observe...)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	a.Obs = obs
	a.closers = append(a.closers, func() error { return obs.Shutdown(context.Background()) })

	a.LLM = llm.NewClient(llm.ConfigFrom(cfg.LLM), a.logger)

	var collectorOpts []collector.Option
	if cfg.Search.Enabled {
		collectorOpts = append(collectorOpts, collector.WithSearcher(search.NewClient(search.ConfigFrom(cfg.Search), a.logger)))
	}

	if cfg.Cache.Enabled {
		err := opts.Connect("Redis connection", func() error {
			rc, err := database.NewRedis(cfg.Cache.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				_ = rc.Close()
				return err
			}
			a.Redis = rc
			return nil
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Redis.Close)
		collectorOpts = append(collectorOpts, collector.WithCache(a.Redis))
		a.logger.Info("Redis connected successfully", nil)
	}

	a.Collector = collector.New(collector.Config{
		CacheTTL: config.GetDuration(cfg.Cache.TTL * 1000),
	}, a.LLM, a.logger, collectorOpts...)
	a.Analyst = analyst.New(a.LLM, a.logger)

	sinks, err := a.buildSinks(ctx, opts)
	if err != nil {
		return err
	}

	a.Orchestrator = orchestrator.New(a.Collector, a.Analyst, a.logger,
		orchestrator.WithTracer(obs.Tracer()),
		orchestrator.WithSinks(sinks...),
	)
	return nil
}

func (a *App) buildSinks(ctx context.Context, opts Options) ([]store.ReportSink, error) {
	cfg := a.Config
	var sinks []store.ReportSink

	if cfg.Database.Postgres.Enabled {
		err := opts.Connect("PostgreSQL connection", func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			a.Postgres = pg
			return nil
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Postgres.Close)
		if err := a.Postgres.Migrate(ctx); err != nil {
			return nil, err
		}
		a.Reports = store.NewPostgresStore(a.Postgres)
		sinks = append(sinks, a.Reports)
		a.logger.Info("PostgreSQL connected successfully", nil)
	}

	if cfg.Database.Elasticsearch.Enabled {
		err := opts.Connect("Elasticsearch connection", func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			a.Elastic = es
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := a.Elastic.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		a.Index = store.NewElasticsearchIndexer(a.Elastic)
		sinks = append(sinks, a.Index)
		a.logger.Info("Elasticsearch connected successfully", map[string]interface{}{"index": a.Elastic.Index})
	}

	notify := cfg.Notifications
	if notify.SNS.Enabled || notify.Email.Enabled {
		var (
			snsClient *aws.SNSClient
			sesClient *aws.SESClient
			err       error
		)
		if notify.SNS.Enabled {
			if snsClient, err = aws.NewSNSClient(ctx, notify.AWS.Region); err != nil {
				return nil, fmt.Errorf("sns client: %w", err)
			}
		}
		if notify.Email.Enabled {
			if sesClient, err = aws.NewSESClient(ctx, notify.AWS.Region); err != nil {
				return nil, fmt.Errorf("ses client: %w", err)
			}
		}
		sinks = append(sinks, store.NewNotifier(store.NotifierConfig{
			TopicARN:   notify.SNS.TopicARN,
			FromEmail:  notify.Email.FromEmail,
			Recipients: notify.Email.Recipients,
		}, snsClient, sesClient, a.logger))
	}

	return sinks, nil
}

// Close releases everything New opened, last opened first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
