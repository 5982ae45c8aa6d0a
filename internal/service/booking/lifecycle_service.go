package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/kafka"
	"github.com/aerohive/missions/internal/repository"
	"github.com/google/uuid"
)

// LifecycleUseCase is the sole authority over booking status. Every transition
// is a single compare-and-set against the store, so concurrent attempts on the
// same booking serialize there and exactly one wins.
type LifecycleUseCase interface {
	Create(ctx context.Context, input CreateMissionInput) (*domain.Booking, error)
	Accept(ctx context.Context, ref, pilotID string) (*domain.Booking, error)
	// VerifyAndStart moves ACCEPTED to IN_PROGRESS after an exact OTP match.
	// A repeat call on an IN_PROGRESS booking is an idempotent success with
	// alreadyStarted set, tolerating client retry after a dropped response.
	VerifyAndStart(ctx context.Context, ref, suppliedOTP string) (booking *domain.Booking, alreadyStarted bool, err error)
	// UpdatePilotLocation is a silent no-op unless the booking is IN_PROGRESS;
	// a position reported after completion must not resurrect tracking.
	UpdatePilotLocation(ctx context.Context, ref string, loc domain.Location) error
	Complete(ctx context.Context, ref string) (*domain.Booking, error)
	Cancel(ctx context.Context, ref string) (*domain.Booking, error)
}

type Cache interface {
	InvalidateSnapshot(ctx context.Context, ref string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type LifecycleService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	notificationsTopic string
	maxActiveBookings  int
}

type CreateMissionInput struct {
	ClientID      string          `json:"client_id"`
	ServiceType   string          `json:"service_type"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	DurationHours float64         `json:"duration_hours"`
	Location      domain.Location `json:"location"`
}

type LifecycleServiceOption func(*LifecycleService)

func WithNotificationsTopic(topic string) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.notificationsTopic = topic
	}
}

func NewLifecycleService(
	bookings repository.BookingRepository,
	cache Cache,
	producer *kafka.Producer,
	maxActiveBookings int,
	opts ...LifecycleServiceOption,
) *LifecycleService {
	service := &LifecycleService{
		bookings:          bookings,
		cache:             cache,
		producer:          producer,
		maxActiveBookings: maxActiveBookings,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *LifecycleService) Create(ctx context.Context, input CreateMissionInput) (*domain.Booking, error) {
	if input.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrInvalidInput)
	}
	if input.ServiceType == "" {
		return nil, fmt.Errorf("%w: service type is required", domain.ErrInvalidInput)
	}
	if input.DurationHours <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}
	if input.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", domain.ErrInvalidInput)
	}
	if input.Location.Lat < -90 || input.Location.Lat > 90 || input.Location.Lng < -180 || input.Location.Lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}

	booking := &domain.Booking{
		Reference:     generateReference(input.ServiceType),
		TrackingToken: uuid.NewString(),
		ClientID:      input.ClientID,
		OTPCode:       generateOTP(),
		ServiceType:   input.ServiceType,
		ScheduledAt:   input.ScheduledAt,
		DurationHours: input.DurationHours,
		Location:      input.Location,
	}

	if err := s.bookings.CreateWithQuota(ctx, booking, s.maxActiveBookings); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventMissionCreated, booking)
	return booking, nil
}

func (s *LifecycleService) Accept(ctx context.Context, ref, pilotID string) (*domain.Booking, error) {
	if pilotID == "" {
		return nil, fmt.Errorf("%w: pilot id is required", domain.ErrInvalidInput)
	}

	booking, applied, err := s.bookings.AssignPilot(ctx, ref, pilotID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race or never PENDING. Refetch to name the current state;
		// which pilot holds the claim is deliberately not disclosed.
		current, err := s.bookings.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InvalidTransitionError{Current: current.Status}
	}

	s.invalidate(ctx, ref)
	s.publish(ctx, kafka.EventMissionAccepted, booking)
	return booking, nil
}

func (s *LifecycleService) VerifyAndStart(ctx context.Context, ref, suppliedOTP string) (*domain.Booking, bool, error) {
	current, err := s.bookings.GetByReference(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	// Exact, case-sensitive match against the code fixed at creation.
	if suppliedOTP != current.OTPCode {
		return nil, false, domain.ErrInvalidOTP
	}

	if current.Status == domain.MissionStatusInProgress {
		return current, true, nil
	}
	if current.Status != domain.MissionStatusAccepted {
		return nil, false, &domain.InvalidTransitionError{Current: current.Status}
	}

	booking, applied, err := s.bookings.TransitionStatus(ctx, ref,
		[]domain.MissionStatus{domain.MissionStatusAccepted}, domain.MissionStatusInProgress)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		// A concurrent call moved the booking first. A retry that finds it
		// already IN_PROGRESS still counts as success.
		current, err := s.bookings.GetByReference(ctx, ref)
		if err != nil {
			return nil, false, err
		}
		if current.Status == domain.MissionStatusInProgress {
			return current, true, nil
		}
		return nil, false, &domain.InvalidTransitionError{Current: current.Status}
	}

	s.invalidate(ctx, ref)
	s.publish(ctx, kafka.EventMissionStarted, booking)
	return booking, false, nil
}

func (s *LifecycleService) UpdatePilotLocation(ctx context.Context, ref string, loc domain.Location) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}

	applied, err := s.bookings.UpdatePilotLocation(ctx, ref, loc)
	if err != nil {
		return err
	}
	if !applied {
		// Dropped unless the mission is live, but an unknown reference is
		// still an error.
		if _, err := s.bookings.GetByReference(ctx, ref); err != nil {
			return err
		}
		return nil
	}

	s.invalidate(ctx, ref)
	return nil
}

func (s *LifecycleService) Complete(ctx context.Context, ref string) (*domain.Booking, error) {
	return s.finish(ctx, ref, domain.MissionStatusCompleted, kafka.EventMissionCompleted)
}

func (s *LifecycleService) Cancel(ctx context.Context, ref string) (*domain.Booking, error) {
	return s.finish(ctx, ref, domain.MissionStatusCancelled, kafka.EventMissionCancelled)
}

func (s *LifecycleService) finish(ctx context.Context, ref string, target domain.MissionStatus, eventType string) (*domain.Booking, error) {
	booking, applied, err := s.bookings.TransitionStatus(ctx, ref, domain.ActiveStatuses, target)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.bookings.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		// Repeating the same terminal transition is idempotent; reaching for
		// the other terminal state is not.
		if current.Status == target {
			return current, nil
		}
		return nil, &domain.InvalidTransitionError{Current: current.Status}
	}

	s.invalidate(ctx, ref)
	s.publish(ctx, eventType, booking)
	return booking, nil
}

func (s *LifecycleService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	event := kafka.MissionEvent{
		Type:        eventType,
		Reference:   booking.Reference,
		ClientID:    booking.ClientID,
		Status:      string(booking.Status),
		ServiceType: booking.ServiceType,
		ScheduledAt: booking.ScheduledAt,
		Lat:         booking.Location.Lat,
		Lng:         booking.Location.Lng,
	}
	if booking.PilotID != nil {
		event.PilotID = *booking.PilotID
	}
	if eventType == kafka.EventMissionCreated {
		event.OTP = booking.OTPCode
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, booking.Reference, err)
	}
}

func (s *LifecycleService) invalidate(ctx context.Context, ref string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSnapshot(ctx, ref); err != nil {
		log.Printf("WARNING: failed to invalidate snapshot for booking %s: %v", ref, err)
	}
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateReference builds the human-shown id, e.g. DRN-SUR-2026-A8F2.
func generateReference(serviceType string) string {
	svc := "GEN"
	if serviceType != "" {
		svc = strings.ToUpper(serviceType)
		if len(svc) > 3 {
			svc = svc[:3]
		}
	}
	suffix := make([]byte, 4)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		suffix[i] = referenceAlphabet[n.Int64()]
	}
	return fmt.Sprintf("DRN-%s-%d-%s", svc, time.Now().Year(), suffix)
}

// generateOTP returns a random 4-digit code, fixed for the booking's lifetime.
func generateOTP() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(9000))
	return fmt.Sprintf("%04d", n.Int64()+1000)
}

var _ LifecycleUseCase = (*LifecycleService)(nil)
