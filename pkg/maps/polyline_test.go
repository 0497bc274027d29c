package maps

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referencePolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestDecodeReferenceFixture(t *testing.T) {
	points, err := DecodePolyline(referencePolyline)
	require.NoError(t, err)
	require.Len(t, points, 3)

	want := []Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}
	for i := range want {
		assert.InDelta(t, want[i].Latitude, points[i].Latitude, 1e-9)
		assert.InDelta(t, want[i].Longitude, points[i].Longitude, 1e-9)
	}
}

func TestEncodeReferenceFixture(t *testing.T) {
	got := EncodePolyline([]Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	})
	assert.Equal(t, referencePolyline, got)
}

func TestPolylineRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		points := make([]Location, rng.Intn(20))
		for i := range points {
			points[i] = Location{
				Latitude:  math.Round((rng.Float64()*180-90)*1e5) / 1e5,
				Longitude: math.Round((rng.Float64()*360-180)*1e5) / 1e5,
			}
		}

		encoded := EncodePolyline(points)
		decoded, err := DecodePolyline(encoded)
		require.NoError(t, err)
		require.Len(t, decoded, len(points))
		for i := range points {
			assert.InDelta(t, points[i].Latitude, decoded[i].Latitude, 1e-9)
			assert.InDelta(t, points[i].Longitude, decoded[i].Longitude, 1e-9)
		}
		assert.Equal(t, encoded, EncodePolyline(decoded))
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{
		"_p~iF",       // latitude without longitude
		"_p~iF~ps|",   // truncated varint
		"_p~iF~ps|U ", // character below the alphabet
	} {
		_, err := DecodePolyline(in)
		assert.ErrorIs(t, err, ErrMalformedPolyline, in)
	}
}

func TestDecodeEmpty(t *testing.T) {
	points, err := DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestStraightLinePolyline(t *testing.T) {
	origin := Location{Latitude: 26.9124, Longitude: 75.7873}
	dest := Location{Latitude: 26.8890, Longitude: 75.8000}

	points, err := DecodePolyline(StraightLinePolyline(origin, dest))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, origin.Latitude, points[0].Latitude, 1e-9)
	assert.InDelta(t, dest.Longitude, points[1].Longitude, 1e-9)
}
