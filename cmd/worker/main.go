package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/tripmates/config"
	"github.com/Domenick1991/tripmates/internal/cache"
	"github.com/Domenick1991/tripmates/internal/email"
	"github.com/Domenick1991/tripmates/internal/kafka"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/Domenick1991/tripmates/internal/service/plans"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Fatalf("worker requires storage.driver=postgres, got %q", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	var invalidator plans.CacheInvalidator
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Matching.PlansCacheTTL())
		defer redisCache.Close()
		invalidator = redisCache
	}

	planService := plans.NewPlanService(repository.NewPlanRepository(pool), invalidator)

	if cfg.Kafka.Enabled() && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()

		emailSender := email.NewSender(cfg.SMTP)

		go func() {
			if err := consumer.ConsumeEvents(ctx, func(ctx context.Context, event kafka.ConnectionEvent) error {
				if err := emailSender.Send(ctx, event); err != nil {
					log.Printf("WARNING: notify %s about %s: %v", event.UserID, event.ConnectionID, err)
				}
				return nil
			}); err != nil {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	}

	sweeper, err := plans.NewStatusSweeper(planService, cfg.Worker.PlanStatusSchedule)
	if err != nil {
		log.Fatalf("plan status sweeper: %v", err)
	}
	sweeper.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	s := <-sig
	log.Printf("received signal %v, shutting down", s)
	cancel()
	sweeper.Stop()
}
