package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MissionEvent is published after every committed booking transition.
// Delivery is best-effort: a publish failure never rolls back the transition.
type MissionEvent struct {
	Type        string    `json:"type"`
	Reference   string    `json:"reference"`
	ClientID    string    `json:"client_id"`
	PilotID     string    `json:"pilot_id,omitempty"`
	Status      string    `json:"status"`
	ServiceType string    `json:"service_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	OTP         string    `json:"otp,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
}

const (
	EventMissionCreated   = "mission_created"
	EventMissionAccepted  = "mission_accepted"
	EventMissionStarted   = "mission_started"
	EventMissionCompleted = "mission_completed"
	EventMissionCancelled = "mission_cancelled"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
