package tracking

import (
	"context"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/repository"
)

// FeedUseCase serves the polling read side. Possession of the reference or the
// tracking token is the only credential; there is no caller identity check.
type FeedUseCase interface {
	GetSnapshot(ctx context.Context, ref string) (*domain.TrackingSnapshot, error)
	GetSnapshotByToken(ctx context.Context, token string) (*domain.TrackingSnapshot, error)
}

type Cache interface {
	GetSnapshot(ctx context.Context, ref string) (*domain.TrackingSnapshot, error)
	SetSnapshot(ctx context.Context, ref string, snap *domain.TrackingSnapshot) error
}

type FeedService struct {
	bookings repository.BookingRepository
	cache    Cache
}

func NewFeedService(bookings repository.BookingRepository, cache Cache) *FeedService {
	return &FeedService{bookings: bookings, cache: cache}
}

func (s *FeedService) GetSnapshot(ctx context.Context, ref string) (*domain.TrackingSnapshot, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSnapshot(ctx, ref); err == nil && cached != nil {
			return cached, nil
		}
	}

	details, err := s.bookings.GetDetails(ctx, ref)
	if err != nil {
		return nil, err
	}

	snap := project(details)
	if s.cache != nil {
		_ = s.cache.SetSnapshot(ctx, ref, snap)
	}
	return snap, nil
}

func (s *FeedService) GetSnapshotByToken(ctx context.Context, token string) (*domain.TrackingSnapshot, error) {
	// Token reads bypass the cache so the token never becomes a cache key.
	details, err := s.bookings.GetDetailsByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return project(details), nil
}

// project maps the stored row to the public snapshot. The pilot's position is
// exposed only while the mission is live; a stale value retained in storage
// after completion must never reappear here.
func project(details *repository.BookingDetails) *domain.TrackingSnapshot {
	b := details.Booking
	snap := &domain.TrackingSnapshot{
		ID:            b.Reference,
		Status:        string(b.Status),
		ServiceType:   b.ServiceType,
		ScheduledAt:   b.ScheduledAt,
		DurationHours: b.DurationHours,
		ClientName:    details.ClientName,
		ClientPhone:   details.ClientPhone,
		Lat:           b.Location.Lat,
		Lng:           b.Location.Lng,
		OTP:           b.OTPCode,
	}
	if b.Status == domain.MissionStatusInProgress && b.PilotLocation != nil {
		loc := *b.PilotLocation
		snap.PilotLocation = &loc
	}
	if details.Pilot != nil {
		snap.PilotName = details.Pilot.FullName
		snap.PilotPhone = details.Pilot.Phone
		// 0 is a valid sentinel for "not yet priced".
		snap.EstimatedAmount = details.Pilot.HourlyRate * b.DurationHours
	}
	return snap
}

var _ FeedUseCase = (*FeedService)(nil)
