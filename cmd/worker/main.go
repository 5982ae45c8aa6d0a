package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aerohive/missions/config"
	"github.com/aerohive/missions/internal/email"
	"github.com/aerohive/missions/internal/kafka"
	"github.com/joho/godotenv"
)

// The worker turns committed mission events into client/pilot notifications.
// It is the only consumer of the notifications topic; delivery problems stay
// here and never touch booking state.
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender()

	if err := consumer.Consume(ctx, func(ctx context.Context, event kafka.MissionEvent) error {
		if err := sender.Send(ctx, event); err != nil {
			log.Printf("notify error for %s: %v", event.Reference, err)
		}
		return nil
	}); err != nil && ctx.Err() == nil {
		log.Printf("consumer stopped: %v", err)
	}
}
