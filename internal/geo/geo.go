package geo

import "math"

// earth radius in km
const earthRadiusKm = 6371

func toRadians(degree float64) float64 {
	return degree * math.Pi / 180
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula on a spherical earth. Accurate to a few hundred meters at
// the 10-50 km radii this service works with.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	deltaPhi := toRadians(lat2 - lat1)
	deltaLambda := toRadians(lng2 - lng1)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
