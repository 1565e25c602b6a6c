package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FollowFeed/internal/domain/repository"
	"FollowFeed/internal/handler/ws"
	"FollowFeed/internal/middleware"
	"FollowFeed/internal/usecase"
	"FollowFeed/pkg/config"
	xhttp "FollowFeed/pkg/http"
	pkgkafka "FollowFeed/pkg/kafka"
	applogger "FollowFeed/pkg/logger"
	"FollowFeed/pkg/queue"
)

// Components are the long-lived parts the App starts and stops. Optional ones are nil when disabled.
type Components struct {
	Bus        *usecase.EventBus
	Engine     *usecase.FollowEngine
	Feed       *usecase.MarketFeed
	HTTP       *xhttp.Server
	LiveFeed   *ws.FeedHandler
	Pipeline   *middleware.EventPipeline
	Publisher  repository.EventPublisher
	Consumer   *pkgkafka.Consumer
	Jobs       *queue.RedisQueue
	DigestSink *queue.RedisQueue
}

// App owns the service lifecycle.
type App struct {
	cfg     *config.Config
	log     *applogger.Logger
	c       Components
	cleanup func()

	stopPipeline func()
}

func New(cfg *config.Config, log *applogger.Logger, c Components, cleanup func()) *App {
	if cleanup == nil {
		cleanup = func() {}
	}
	return &App{cfg: cfg, log: log, c: c, cleanup: cleanup, stopPipeline: func() {}}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start brings components up in dependency order: sinks first, producers last.
func (a *App) Start(ctx context.Context) error {
	if a.c.DigestSink != nil {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.LogDigest.Interval,
			CountThreshold: a.cfg.LogDigest.Threshold,
			Publisher:      a.c.DigestSink,
		})
	}

	if a.c.Jobs != nil {
		if err := a.c.Jobs.Start(); err != nil {
			return err
		}
		a.log.Info("notification queue started")
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("event sink consumer started")
	}

	if a.c.Pipeline != nil {
		events, unsubscribe := a.c.Bus.Subscribe(a.cfg.Kafka.Pipeline.BufferSize)
		pctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			a.c.Pipeline.Run(pctx, events)
		}()
		a.stopPipeline = func() {
			unsubscribe()
			<-done
			a.c.Pipeline.Stop()
			cancel()
		}
		a.log.Info("event pipeline started", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	a.c.Feed.Start(context.Background(), a.cfg.Market.Symbols)

	if err := a.c.HTTP.Start(); err != nil {
		return err
	}
	return nil
}

// Shutdown stops producers before sinks so in-flight events still reach Kafka.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	var errs []error

	if err := a.c.HTTP.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.c.LiveFeed != nil {
		a.c.LiveFeed.Close()
	}

	a.c.Feed.Stop()
	a.c.Engine.Close()

	a.stopPipeline()
	if a.c.Publisher != nil {
		if err := a.c.Publisher.Close(); err != nil {
			a.log.Warn("event publisher close failed", applogger.Error(err))
		}
	}
	a.c.Bus.Close()

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.c.Jobs != nil {
		if err := a.c.Jobs.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.log.RemoveCollector()
	if a.c.DigestSink != nil {
		_ = a.c.DigestSink.Stop(ctx)
	}
	a.cleanup()

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
