package geo

import "math"

const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometers, rounded to 2 decimal places.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return round2(EarthRadiusKM * c)
}

func IsWithinRadius(centerLat, centerLng, pointLat, pointLng, radiusKM float64) bool {
	return Haversine(centerLat, centerLng, pointLat, pointLng) <= radiusKM
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
