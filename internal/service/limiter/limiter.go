package limiter

import (
	"context"
	"log"
	"time"

	"github.com/aerohive/missions/internal/repository"
)

// LimitUseCase gates booking creation on the client's count of non-terminal
// bookings. COMPLETED and CANCELLED never count.
type LimitUseCase interface {
	ActiveCount(ctx context.Context, clientID string) (int, error)
	Allow(ctx context.Context, clientID string) (bool, error)
	Check(ctx context.Context, clientID string) (*LimitStatus, error)
}

// LimitStatus is the check-limit payload shown to clients before they book.
type LimitStatus struct {
	CanBook        bool            `json:"canBook"`
	CurrentCount   int             `json:"currentCount"`
	MaxBookings    int             `json:"maxBookings"`
	RemainingSlots int             `json:"remainingSlots"`
	Bookings       []ActiveBooking `json:"bookings"`
}

type ActiveBooking struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	ServiceType string `json:"serviceType"`
	CreatedAt   string `json:"createdAt"`
}

type LimiterService struct {
	bookings    repository.BookingRepository
	maxBookings int
}

func NewLimiterService(bookings repository.BookingRepository, maxBookings int) *LimiterService {
	return &LimiterService{bookings: bookings, maxBookings: maxBookings}
}

func (s *LimiterService) ActiveCount(ctx context.Context, clientID string) (int, error) {
	return s.bookings.CountActive(ctx, clientID)
}

func (s *LimiterService) Allow(ctx context.Context, clientID string) (bool, error) {
	count, err := s.ActiveCount(ctx, clientID)
	if err != nil {
		return false, err
	}
	return count < s.maxBookings, nil
}

// Check fails open: a store error yields a full-capacity answer rather than
// blocking every client on infrastructure trouble. The quota is re-enforced
// transactionally at insert time, so nothing irreversible leaks through.
func (s *LimiterService) Check(ctx context.Context, clientID string) (*LimitStatus, error) {
	active, err := s.bookings.ListActive(ctx, clientID)
	if err != nil {
		log.Printf("WARNING: booking limit check failed for client %s, failing open: %v", clientID, err)
		return &LimitStatus{
			CanBook:        true,
			CurrentCount:   0,
			MaxBookings:    s.maxBookings,
			RemainingSlots: s.maxBookings,
			Bookings:       []ActiveBooking{},
		}, nil
	}

	status := &LimitStatus{
		CurrentCount: len(active),
		MaxBookings:  s.maxBookings,
		Bookings:     make([]ActiveBooking, 0, len(active)),
	}
	status.CanBook = status.CurrentCount < s.maxBookings
	status.RemainingSlots = s.maxBookings - status.CurrentCount
	if status.RemainingSlots < 0 {
		status.RemainingSlots = 0
	}
	for _, b := range active {
		status.Bookings = append(status.Bookings, ActiveBooking{
			Reference:   b.Reference,
			Status:      string(b.Status),
			ServiceType: b.ServiceType,
			CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		})
	}
	return status, nil
}

var _ LimitUseCase = (*LimiterService)(nil)
