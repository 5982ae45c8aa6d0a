package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateWithQuota(ctx context.Context, booking *domain.Booking, maxActive int) error {
	args := m.Called(ctx, booking, maxActive)
	if args.Error(0) == nil {
		// Mirror PGBookingRepository.CreateWithQuota, which sets the status
		// on successful insert.
		booking.Status = domain.MissionStatusPending
	}
	return args.Error(0)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByTrackingToken(ctx context.Context, token string) (*domain.Booking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetDetails(ctx context.Context, ref string) (*repository.BookingDetails, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.BookingDetails), args.Error(1)
}

func (m *MockBookingRepository) GetDetailsByToken(ctx context.Context, token string) (*repository.BookingDetails, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.BookingDetails), args.Error(1)
}

func (m *MockBookingRepository) AssignPilot(ctx context.Context, ref, pilotID string) (*domain.Booking, bool, error) {
	args := m.Called(ctx, ref, pilotID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) TransitionStatus(ctx context.Context, ref string, from []domain.MissionStatus, to domain.MissionStatus) (*domain.Booking, bool, error) {
	args := m.Called(ctx, ref, from, to)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) UpdatePilotLocation(ctx context.Context, ref string, loc domain.Location) (bool, error) {
	args := m.Called(ctx, ref, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) CountActive(ctx context.Context, clientID string) (int, error) {
	args := m.Called(ctx, clientID)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) ListActive(ctx context.Context, clientID string) ([]domain.Booking, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateSnapshot(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(repo *MockBookingRepository, cache *MockCache, producer *MockProducer) *LifecycleService {
	return &LifecycleService{
		bookings:           repo,
		cache:              cache,
		producer:           producer,
		notificationsTopic: "mission-notifications",
		maxActiveBookings:  2,
	}
}

func pending(ref string) *domain.Booking {
	return &domain.Booking{
		Reference:     ref,
		TrackingToken: "token-" + ref,
		ClientID:      "client-1",
		Status:        domain.MissionStatusPending,
		OTPCode:       "4821",
		ServiceType:   "Surveying",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		DurationHours: 2,
		Location:      domain.Location{Lat: 17.5169, Lng: 78.3856},
	}
}

func withStatus(b *domain.Booking, status domain.MissionStatus) *domain.Booking {
	copied := *b
	copied.Status = status
	if status != domain.MissionStatusPending {
		pilotID := "pilot-x"
		copied.PilotID = &pilotID
	}
	return &copied
}

func TestLifecycle_Create_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(repo, cache, producer)

	ctx := context.Background()
	repo.On("CreateWithQuota", ctx, mock.AnythingOfType("*domain.Booking"), 2).Return(nil).Once()
	producer.On("Publish", ctx, "mission-notifications", mock.Anything, mock.Anything).Return(nil).Once()

	b, err := service.Create(ctx, CreateMissionInput{
		ClientID:      "client-1",
		ServiceType:   "Surveying",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		DurationHours: 2,
		Location:      domain.Location{Lat: 17.5169, Lng: 78.3856},
	})

	assert.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, domain.MissionStatusPending, b.Status)
	assert.Regexp(t, regexp.MustCompile(`^DRN-SUR-\d{4}-[A-Z0-9]{4}$`), b.Reference)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), b.OTPCode)
	assert.NotEmpty(t, b.TrackingToken)
	assert.NotEqual(t, b.Reference, b.TrackingToken)
	assert.Nil(t, b.PilotID)

	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestLifecycle_Create_QuotaExceeded(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := newTestService(repo, &MockCache{}, producer)

	ctx := context.Background()
	repo.On("CreateWithQuota", ctx, mock.AnythingOfType("*domain.Booking"), 2).Return(domain.ErrQuotaExceeded).Once()

	b, err := service.Create(ctx, CreateMissionInput{
		ClientID:      "client-1",
		ServiceType:   "Surveying",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		DurationHours: 2,
		Location:      domain.Location{Lat: 17.5169, Lng: 78.3856},
	})

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	producer.AssertNotCalled(t, "Publish")
}

func TestLifecycle_Create_ValidationErrors(t *testing.T) {
	service := newTestService(&MockBookingRepository{}, &MockCache{}, &MockProducer{})
	ctx := context.Background()
	scheduled := time.Now().Add(24 * time.Hour)

	testCases := []struct {
		name  string
		input CreateMissionInput
	}{
		{
			name:  "missing client",
			input: CreateMissionInput{ServiceType: "Surveying", ScheduledAt: scheduled, DurationHours: 2},
		},
		{
			name:  "missing service type",
			input: CreateMissionInput{ClientID: "c", ScheduledAt: scheduled, DurationHours: 2},
		},
		{
			name:  "zero duration",
			input: CreateMissionInput{ClientID: "c", ServiceType: "Surveying", ScheduledAt: scheduled},
		},
		{
			name:  "missing schedule",
			input: CreateMissionInput{ClientID: "c", ServiceType: "Surveying", DurationHours: 2},
		},
		{
			name: "latitude out of range",
			input: CreateMissionInput{ClientID: "c", ServiceType: "Surveying", ScheduledAt: scheduled,
				DurationHours: 2, Location: domain.Location{Lat: 95}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := service.Create(ctx, tc.input)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLifecycle_Accept_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(repo, cache, producer)

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	repo.On("AssignPilot", ctx, "DRN-SUR-2026-A8F2", "pilot-x").Return(accepted, true, nil).Once()
	cache.On("InvalidateSnapshot", ctx, "DRN-SUR-2026-A8F2").Return(nil).Once()
	producer.On("Publish", ctx, "mission-notifications", "DRN-SUR-2026-A8F2", mock.Anything).Return(nil).Once()

	b, err := service.Accept(ctx, "DRN-SUR-2026-A8F2", "pilot-x")

	assert.NoError(t, err)
	assert.Equal(t, domain.MissionStatusAccepted, b.Status)
	assert.NotNil(t, b.PilotID)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestLifecycle_Accept_AlreadyAccepted(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := newTestService(repo, &MockCache{}, producer)

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	repo.On("AssignPilot", ctx, "DRN-SUR-2026-A8F2", "pilot-y").Return(nil, false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(accepted, nil).Once()

	b, err := service.Accept(ctx, "DRN-SUR-2026-A8F2", "pilot-y")

	assert.Nil(t, b)
	var transition *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.MissionStatusAccepted, transition.Current)
	producer.AssertNotCalled(t, "Publish")
}

func TestLifecycle_Accept_NotFound(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	repo.On("AssignPilot", ctx, "DRN-XXX-2026-0000", "pilot-x").Return(nil, false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-XXX-2026-0000").Return(nil, domain.ErrNotFound).Once()

	b, err := service.Accept(ctx, "DRN-XXX-2026-0000", "pilot-x")

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycle_VerifyAndStart_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(repo, cache, producer)

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	started := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusInProgress)
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(accepted, nil).Once()
	repo.On("TransitionStatus", ctx, "DRN-SUR-2026-A8F2",
		[]domain.MissionStatus{domain.MissionStatusAccepted}, domain.MissionStatusInProgress).
		Return(started, true, nil).Once()
	cache.On("InvalidateSnapshot", ctx, "DRN-SUR-2026-A8F2").Return(nil).Once()
	producer.On("Publish", ctx, "mission-notifications", "DRN-SUR-2026-A8F2", mock.Anything).Return(nil).Once()

	b, alreadyStarted, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "4821")

	assert.NoError(t, err)
	assert.False(t, alreadyStarted)
	assert.Equal(t, domain.MissionStatusInProgress, b.Status)
	repo.AssertExpectations(t)
}

func TestLifecycle_VerifyAndStart_WrongOTP(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(accepted, nil).Once()

	b, _, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "0000")

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	repo.AssertNotCalled(t, "TransitionStatus")
}

func TestLifecycle_VerifyAndStart_IdempotentRepeat(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := newTestService(repo, &MockCache{}, producer)

	ctx := context.Background()
	started := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusInProgress)
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(started, nil).Once()

	b, alreadyStarted, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "4821")

	assert.NoError(t, err)
	assert.True(t, alreadyStarted)
	assert.Equal(t, domain.MissionStatusInProgress, b.Status)
	// No second transition, no duplicate notification.
	repo.AssertNotCalled(t, "TransitionStatus")
	producer.AssertNotCalled(t, "Publish")
}

func TestLifecycle_VerifyAndStart_WrongOTPWhileInProgress(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	started := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusInProgress)
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(started, nil).Once()

	b, _, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "9999")

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestLifecycle_VerifyAndStart_FromPending(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(pending("DRN-SUR-2026-A8F2"), nil).Once()

	b, _, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "4821")

	assert.Nil(t, b)
	var transition *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.MissionStatusPending, transition.Current)
}

func TestLifecycle_VerifyAndStart_RaceResolvedAsIdempotent(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	started := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusInProgress)
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(accepted, nil).Once()
	repo.On("TransitionStatus", ctx, "DRN-SUR-2026-A8F2",
		[]domain.MissionStatus{domain.MissionStatusAccepted}, domain.MissionStatusInProgress).
		Return(nil, false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(started, nil).Once()

	b, alreadyStarted, err := service.VerifyAndStart(ctx, "DRN-SUR-2026-A8F2", "4821")

	assert.NoError(t, err)
	assert.True(t, alreadyStarted)
	assert.Equal(t, domain.MissionStatusInProgress, b.Status)
}

func TestLifecycle_UpdatePilotLocation_Applied(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	service := newTestService(repo, cache, &MockProducer{})

	ctx := context.Background()
	loc := domain.Location{Lat: 17.52, Lng: 78.39}
	repo.On("UpdatePilotLocation", ctx, "DRN-SUR-2026-A8F2", loc).Return(true, nil).Once()
	cache.On("InvalidateSnapshot", ctx, "DRN-SUR-2026-A8F2").Return(nil).Once()

	err := service.UpdatePilotLocation(ctx, "DRN-SUR-2026-A8F2", loc)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLifecycle_UpdatePilotLocation_DroppedWhenNotInProgress(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	loc := domain.Location{Lat: 17.52, Lng: 78.39}
	completed := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusCompleted)
	repo.On("UpdatePilotLocation", ctx, "DRN-SUR-2026-A8F2", loc).Return(false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(completed, nil).Once()

	err := service.UpdatePilotLocation(ctx, "DRN-SUR-2026-A8F2", loc)

	// Stale ping after completion is dropped without error.
	assert.NoError(t, err)
}

func TestLifecycle_UpdatePilotLocation_UnknownRef(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	loc := domain.Location{Lat: 17.52, Lng: 78.39}
	repo.On("UpdatePilotLocation", ctx, "DRN-XXX-2026-0000", loc).Return(false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-XXX-2026-0000").Return(nil, domain.ErrNotFound).Once()

	err := service.UpdatePilotLocation(ctx, "DRN-XXX-2026-0000", loc)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycle_Complete_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(repo, cache, producer)

	ctx := context.Background()
	completed := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusCompleted)
	repo.On("TransitionStatus", ctx, "DRN-SUR-2026-A8F2", domain.ActiveStatuses, domain.MissionStatusCompleted).
		Return(completed, true, nil).Once()
	cache.On("InvalidateSnapshot", ctx, "DRN-SUR-2026-A8F2").Return(nil).Once()
	producer.On("Publish", ctx, "mission-notifications", "DRN-SUR-2026-A8F2", mock.Anything).Return(nil).Once()

	b, err := service.Complete(ctx, "DRN-SUR-2026-A8F2")

	assert.NoError(t, err)
	assert.Equal(t, domain.MissionStatusCompleted, b.Status)
}

func TestLifecycle_Complete_IdempotentRepeat(t *testing.T) {
	repo := &MockBookingRepository{}
	producer := &MockProducer{}
	service := newTestService(repo, &MockCache{}, producer)

	ctx := context.Background()
	completed := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusCompleted)
	repo.On("TransitionStatus", ctx, "DRN-SUR-2026-A8F2", domain.ActiveStatuses, domain.MissionStatusCompleted).
		Return(nil, false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(completed, nil).Once()

	b, err := service.Complete(ctx, "DRN-SUR-2026-A8F2")

	assert.NoError(t, err)
	assert.Equal(t, domain.MissionStatusCompleted, b.Status)
	producer.AssertNotCalled(t, "Publish")
}

func TestLifecycle_Cancel_AfterComplete(t *testing.T) {
	repo := &MockBookingRepository{}
	service := newTestService(repo, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	completed := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusCompleted)
	repo.On("TransitionStatus", ctx, "DRN-SUR-2026-A8F2", domain.ActiveStatuses, domain.MissionStatusCancelled).
		Return(nil, false, nil).Once()
	repo.On("GetByReference", ctx, "DRN-SUR-2026-A8F2").Return(completed, nil).Once()

	b, err := service.Cancel(ctx, "DRN-SUR-2026-A8F2")

	assert.Nil(t, b)
	var transition *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.MissionStatusCompleted, transition.Current)
}

func TestLifecycle_PublishFailureDoesNotFailTransition(t *testing.T) {
	repo := &MockBookingRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newTestService(repo, cache, producer)

	ctx := context.Background()
	accepted := withStatus(pending("DRN-SUR-2026-A8F2"), domain.MissionStatusAccepted)
	repo.On("AssignPilot", ctx, "DRN-SUR-2026-A8F2", "pilot-x").Return(accepted, true, nil).Once()
	cache.On("InvalidateSnapshot", ctx, "DRN-SUR-2026-A8F2").Return(nil).Once()
	producer.On("Publish", ctx, "mission-notifications", "DRN-SUR-2026-A8F2", mock.Anything).
		Return(assert.AnError).Once()

	b, err := service.Accept(ctx, "DRN-SUR-2026-A8F2", "pilot-x")

	assert.NoError(t, err)
	assert.Equal(t, domain.MissionStatusAccepted, b.Status)
}

func TestGenerateOTP_FourDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp := generateOTP()
		assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{3}$`), otp)
	}
}

func TestGenerateReference_Format(t *testing.T) {
	ref := generateReference("Surveying")
	assert.Regexp(t, regexp.MustCompile(`^DRN-SUR-\d{4}-[A-Z0-9]{4}$`), ref)

	ref = generateReference("")
	assert.Regexp(t, regexp.MustCompile(`^DRN-GEN-\d{4}-[A-Z0-9]{4}$`), ref)
}
