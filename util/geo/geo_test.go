package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Syracuse University quad and Downtown Syracuse, about two
// kilometers apart.
const (
	campusLat   = 43.0361
	campusLng   = -76.1275
	downtownLat = 43.0481
	downtownLng = -76.1474
)

func TestHaversine(t *testing.T) {
	d := Haversine(campusLat, campusLng, downtownLat, downtownLng)
	require.InDelta(t, 2.1, d, 0.001)

	require.Equal(t, d, Haversine(downtownLat, downtownLng, campusLat, campusLng), "symmetric")
	require.Equal(t, 0.0, Haversine(campusLat, campusLng, campusLat, campusLng))
}

func TestHaversineRoundsToTwoDecimals(t *testing.T) {
	d := Haversine(campusLat, campusLng, downtownLat, downtownLng)
	require.Equal(t, d, round2(d))
}

func TestIsWithinRadius(t *testing.T) {
	require.True(t, IsWithinRadius(campusLat, campusLng, downtownLat, downtownLng, 5))
	require.False(t, IsWithinRadius(campusLat, campusLng, downtownLat, downtownLng, 1))
}
