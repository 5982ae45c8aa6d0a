package domain

// Pilot is a read-only snapshot for matching and tracking. Nothing in this
// service mutates a pilot; no lock is taken on one during matching, so two
// clients may be shown the same pilot concurrently.
type Pilot struct {
	ID              string
	FullName        string
	Phone           string
	Email           string
	Location        Location
	Specializations []string
	Rating          float64
	HourlyRate      float64
	IsVerified      bool
	IsActive        bool
}

// Candidate is a pilot scored against a search origin.
type Candidate struct {
	Pilot
	DistanceKm float64
}
