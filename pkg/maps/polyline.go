package maps

import (
	"errors"
	"math"
	"strings"
)

var ErrMalformedPolyline = errors.New("maps: malformed polyline")

const polylineScale = 1e5

// EncodePolyline encodes points with the Google encoded polyline algorithm
// at five decimal places.
func EncodePolyline(points []Location) string {
	var b strings.Builder
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Latitude * polylineScale))
		lng := int64(math.Round(p.Longitude * polylineScale))
		writeSigned(&b, lat-prevLat)
		writeSigned(&b, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return b.String()
}

func writeSigned(b *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	b.WriteByte(byte(u) + 63)
}

// DecodePolyline reverses EncodePolyline.
func DecodePolyline(encoded string) ([]Location, error) {
	var points []Location
	var lat, lng int64
	for i := 0; i < len(encoded); {
		dLat, n, err := readSigned(encoded, i)
		if err != nil {
			return nil, err
		}
		i = n
		if i >= len(encoded) {
			return nil, ErrMalformedPolyline
		}
		dLng, n, err := readSigned(encoded, i)
		if err != nil {
			return nil, err
		}
		i = n

		lat += dLat
		lng += dLng
		points = append(points, Location{
			Latitude:  float64(lat) / polylineScale,
			Longitude: float64(lng) / polylineScale,
		})
	}
	return points, nil
}

func readSigned(s string, i int) (int64, int, error) {
	var result uint64
	var shift uint
	for {
		if i >= len(s) || shift > 60 {
			return 0, i, ErrMalformedPolyline
		}
		c := s[i]
		if c < 63 || c > 126 {
			return 0, i, ErrMalformedPolyline
		}
		i++
		chunk := uint64(c - 63)
		result |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			break
		}
	}
	v := int64(result >> 1)
	if result&1 != 0 {
		v = ^v
	}
	return v, i, nil
}

// StraightLinePolyline is the two-point route used when no routing
// provider answers.
func StraightLinePolyline(origin, destination Location) string {
	return EncodePolyline([]Location{origin, destination})
}
