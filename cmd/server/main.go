package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bestdog-pos/api/internal/config"
	"github.com/bestdog-pos/api/internal/database"
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/idempotency"
	"github.com/bestdog-pos/api/internal/inventory"
	"github.com/bestdog-pos/api/internal/logger"
	"github.com/bestdog-pos/api/internal/notify"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/bestdog-pos/api/internal/router"
	"github.com/bestdog-pos/api/internal/service"
	"github.com/bestdog-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	loc := cfg.Location()
	ledger := inventory.NewLedger(domain.Catalog{})
	repo := orders.NewRepository(ledger, time.Now, loc)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, repo, ledger, service.Defaults{
		PrepMinutes:   cfg.DefaultPrepMinutes,
		TravelMinutes: cfg.DefaultTravelMinutes,
	}, log)
	catalogService := service.NewCatalogService(pool, func(db database.DBTX) service.CatalogStore {
		return database.New(db)
	}, ledger, log)

	if err := orderService.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	hub := ws.NewHub()
	hooks := []notify.Hook{hub.Notify}
	if cfg.AMQPURL != "" {
		publisher, err := notify.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer publisher.Close() //nolint:errcheck
		publish := notify.Hook(publisher.Publish)
		if len(cfg.AMQPEvents) > 0 {
			publish = notify.Only(publish, cfg.AMQPEvents...)
		}
		hooks = append(hooks, publish)
		log.WithFields(logrus.Fields{
			"exchange": cfg.AMQPExchange,
			"events":   cfg.AMQPEvents,
		}).Info("publishing order events")
	}
	orderService.Notify(hooks...)
	catalogService.Notify(hooks...)

	var store idempotency.Store = idempotency.NewMemory()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close() //nolint:errcheck
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		store = idempotency.NewRedisStore(client)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(cfg, router.Deps{
			Orders:      orderService,
			Catalog:     catalogService,
			Idempotency: store,
			Hub:         hub,
			Log:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
