package domain

import "time"

type MissionStatus string

const (
	MissionStatusPending    MissionStatus = "PENDING"
	MissionStatusAccepted   MissionStatus = "ACCEPTED"
	MissionStatusInProgress MissionStatus = "IN_PROGRESS"
	MissionStatusCompleted  MissionStatus = "COMPLETED"
	MissionStatusCancelled  MissionStatus = "CANCELLED"
)

// Active reports whether the status counts against the client's booking quota.
func (s MissionStatus) Active() bool {
	return s == MissionStatusPending || s == MissionStatusAccepted || s == MissionStatusInProgress
}

// Terminal reports whether no further transitions leave this status.
func (s MissionStatus) Terminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusCancelled
}

// ActiveStatuses is the set counted against the per-client quota.
var ActiveStatuses = []MissionStatus{MissionStatusPending, MissionStatusAccepted, MissionStatusInProgress}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Booking struct {
	ID            int64
	Reference     string // human-shown id, e.g. DRN-SUR-2026-A8F2
	TrackingToken string // opaque read credential, never logged
	ClientID      string
	PilotID       *string // nil exactly while status is PENDING
	Status        MissionStatus
	OTPCode       string // fixed 4-digit code, set once at creation
	ServiceType   string
	ScheduledAt   time.Time
	DurationHours float64
	Location      Location
	PilotLocation *Location // meaningful only while status is IN_PROGRESS
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
