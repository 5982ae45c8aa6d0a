package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	d := DistanceKm(17.5169, 78.3856, 17.5169, 78.3856)
	assert.InDelta(t, 0, d, 0.001)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Hyderabad city center to Nizampet, roughly 18 km.
	d := DistanceKm(17.3850, 78.4867, 17.5169, 78.3856)
	assert.InDelta(t, 18, d, 2)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := DistanceKm(17.3850, 78.4867, 28.6139, 77.2090)
	b := DistanceKm(28.6139, 77.2090, 17.3850, 78.4867)
	assert.InDelta(t, a, b, 0.001)
}
