package domain

import "time"

// TrackingSnapshot is the read-side projection served to polling clients.
// Possession of the tracking token (or reference) is the only credential
// needed to read it.
type TrackingSnapshot struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	ServiceType     string    `json:"serviceType"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationHours   float64   `json:"durationHours"`
	ClientName      string    `json:"clientName"`
	ClientPhone     string    `json:"clientPhone"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	OTP             string    `json:"otp"`
	PilotLocation   *Location `json:"pilotLocation,omitempty"` // present only while IN_PROGRESS
	PilotName       string    `json:"pilotName,omitempty"`
	PilotPhone      string    `json:"pilotPhone,omitempty"`
	EstimatedAmount float64   `json:"estimatedAmount"` // 0 means not yet priced
}
