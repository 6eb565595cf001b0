package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// Earth's mean radius in meters
const earthRadius = 6371000

// Distance calculates great-circle distance between two coordinates using the Haversine formula
func Distance(p1, p2 Coordinate) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}

	if p1 == p2 {
		return 0, nil
	}

	// Convert degrees to radians
	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c, nil
}

// NewCoordinate creates a Coordinate from longitude and latitude values with validation
func NewCoordinate(longitude, latitude float64) (Coordinate, error) {
	c := Coordinate{Longitude: longitude, Latitude: latitude}
	if !isValidCoordinate(c) {
		return Coordinate{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return c, nil
}

// EncodeRing encodes a ring as a Google polyline string (closing coordinate included)
func EncodeRing(ring Ring) string {
	closed := ring.Closed()
	coords := make([][]float64, len(closed))
	for i, c := range closed {
		coords[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodeRing decodes a Google polyline string into a ring
func DecodeRing(encoded string) (Ring, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	ring := make(Ring, len(coords))
	for i, coord := range coords {
		ring[i] = Coordinate{Latitude: coord[0], Longitude: coord[1]}

		if !isValidCoordinate(ring[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return ring, nil
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(c Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// isFinite rejects NaN and infinite components
func isFinite(c Coordinate) bool {
	return !math.IsNaN(c.Longitude) && !math.IsNaN(c.Latitude) &&
		!math.IsInf(c.Longitude, 0) && !math.IsInf(c.Latitude, 0)
}
