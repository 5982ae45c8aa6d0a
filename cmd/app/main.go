package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aerohive/missions/config"
	"github.com/aerohive/missions/internal/bootstrap"
	"github.com/aerohive/missions/internal/cache"
	"github.com/aerohive/missions/internal/kafka"
	"github.com/aerohive/missions/internal/repository"
	"github.com/aerohive/missions/internal/service/booking"
	"github.com/aerohive/missions/internal/service/limiter"
	"github.com/aerohive/missions/internal/service/pilots"
	"github.com/aerohive/missions/internal/service/tracking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Matching.PilotsCacheTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.SnapshotCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	pilotRepo := repository.NewPilotRepository(pool)

	lifecycle := booking.NewLifecycleService(
		bookingRepo,
		redisCache,
		producer,
		cfg.Booking.MaxActiveBookings,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	limits := limiter.NewLimiterService(bookingRepo, cfg.Booking.MaxActiveBookings)
	matcher := pilots.NewMatcherService(pilotRepo, redisCache, cfg.Matching.Limit, cfg.Matching.DefaultRadiusKm)
	feed := tracking.NewFeedService(bookingRepo, redisCache)

	if err := bootstrap.Run(ctx, cfg, lifecycle, limits, matcher, feed); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
