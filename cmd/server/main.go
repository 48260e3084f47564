// main wires the document fulfillment pipeline: HTTP API, postgres-backed
// stores, the redis consumed-token list, and the outbox delivery worker.
// Business logic lives in the internal services.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"lingkod/internal/catalog"
	"lingkod/internal/claim"
	"lingkod/internal/directory"
	"lingkod/internal/outbox"
	outboxworker "lingkod/internal/outbox/worker"
	"lingkod/internal/platform/config"
	"lingkod/internal/platform/httpserver"
	"lingkod/internal/platform/logger"
	"lingkod/internal/platform/metrics"
	platformredis "lingkod/internal/platform/redis"
	"lingkod/internal/request/service"
	"lingkod/internal/request/store"
	httptransport "lingkod/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PostgresURL == "" {
		return errors.New("LINGKOD_POSTGRES_URL is required")
	}
	if cfg.ClaimSigningKey == "" || cfg.ClaimCodeKey == "" {
		return errors.New("LINGKOD_CLAIM_SIGNING_KEY and LINGKOD_CLAIM_CODE_KEY are required")
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := platformredis.New(cfg.RedisAddr)
	if err != nil {
		return err
	}
	var consumed claim.ConsumedStore = claim.NewInMemoryConsumedStore()
	if redisClient != nil {
		defer redisClient.Close()
		consumed = claim.NewRedisConsumedStore(redisClient.Client)
	}

	cipher, err := claim.NewCipher(cfg.ClaimCodeKey)
	if err != nil {
		return err
	}
	tokens := claim.NewTokenService(cfg.ClaimSigningKey, "lingkod", cfg.ClaimTokenTTL)
	claims, err := claim.NewService(tokens, cipher, consumed)
	if err != nil {
		return err
	}

	residents := directory.NewPostgresDirectory(db)
	outboxStore := outbox.NewPostgresStore(pool)
	notifications, err := outbox.NewService(outboxStore, residents)
	if err != nil {
		return err
	}

	m := metrics.New()
	requests, err := service.NewService(
		store.NewPostgresStore(db),
		catalog.NewPostgresStore(db),
		residents,
		notifications,
		claims,
		log,
		service.NewMetrics(m.Registry),
	)
	if err != nil {
		return err
	}

	requestHandler := httptransport.NewRequestHandler(requests, log)
	claimHandler := httptransport.NewClaimHandler(requests, log)
	announceHandler := httptransport.NewAnnouncementHandler(notifications, log)

	health := func(r *http.Request) error {
		if err := db.PingContext(r.Context()); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Health(r.Context())
		}
		return nil
	}
	router := httptransport.NewRouter(log, m, health, requestHandler, claimHandler, announceHandler)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := outboxworker.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		worker := outboxworker.New(outboxStore, publisher, log, outboxworker.Options{
			BatchSize:    cfg.OutboxBatchSize,
			PollInterval: cfg.OutboxPollInterval,
		})
		group.Go(func() error {
			log.Info("starting outbox worker", "topic", cfg.KafkaTopic)
			return worker.Run(ctx)
		})
	} else {
		log.Warn("no kafka brokers configured, notifications stay queued")
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
