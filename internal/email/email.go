package email

import (
	"context"
	"fmt"
	"log"

	"github.com/aerohive/missions/internal/kafka"
)

// Sender renders and delivers the client/pilot notifications for a mission
// event. Delivery failures are the caller's to log; they never propagate back
// into the booking lifecycle.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.MissionEvent) error {
	switch event.Type {
	case kafka.EventMissionCreated:
		s.deliver(event.ClientID, fmt.Sprintf(
			"Your booking %s for %s is confirmed for %s. Share OTP %s with your pilot on arrival.",
			event.Reference, event.ServiceType, event.ScheduledAt.Format("02 Jan 2006 15:04"), event.OTP))
	case kafka.EventMissionAccepted:
		s.deliver(event.ClientID, fmt.Sprintf(
			"A pilot has accepted mission %s. You can follow progress from your dashboard.", event.Reference))
		s.deliver(event.PilotID, fmt.Sprintf(
			"New mission %s assigned: %s at site %.4f, %.4f. Verify the client's OTP on arrival.",
			event.Reference, event.ServiceType, event.Lat, event.Lng))
	case kafka.EventMissionStarted:
		s.deliver(event.ClientID, fmt.Sprintf(
			"Mission %s is underway. Live tracking is now available.", event.Reference))
	case kafka.EventMissionCompleted:
		s.deliver(event.ClientID, fmt.Sprintf("Mission %s is complete. Thank you for flying with AeroHive.", event.Reference))
		s.deliver(event.PilotID, fmt.Sprintf("Mission %s marked complete.", event.Reference))
	case kafka.EventMissionCancelled:
		s.deliver(event.ClientID, fmt.Sprintf("Mission %s has been cancelled.", event.Reference))
		if event.PilotID != "" {
			s.deliver(event.PilotID, fmt.Sprintf("Mission %s has been cancelled.", event.Reference))
		}
	default:
		log.Printf("unknown event type %q for %s, skipping", event.Type, event.Reference)
	}
	return nil
}

// deliver is the provider seam. Wire SMTP/SMS credentials here.
func (s *Sender) deliver(recipient, message string) {
	fmt.Printf("notify %s: %s\n", recipient, message)
}
