package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// MetersPerDegree approximates the length of one degree at the equator.
// PlanarArea applies it to both axes with no latitude correction.
const MetersPerDegree = 111000.0

// PointInRing reports whether point lies inside ring using ray casting.
// Rings with fewer than 3 coordinates contain nothing. Points lying exactly on
// an edge are classified as outside. Self-intersecting rings give whatever
// answer the crossing count gives.
func PointInRing(point Coordinate, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	x, y := point.Longitude, point.Latitude
	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Longitude, ring[i].Latitude
		xj, yj := ring[j].Longitude, ring[j].Latitude

		if onSegment(point, ring[j], ring[i]) {
			return false
		}

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}

	return inside
}

// onSegment reports whether p lies exactly on the segment a-b
func onSegment(p, a, b Coordinate) bool {
	cross := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude) -
		(b.Latitude-a.Latitude)*(p.Longitude-a.Longitude)
	if cross != 0 {
		return false
	}
	return p.Longitude >= math.Min(a.Longitude, b.Longitude) && p.Longitude <= math.Max(a.Longitude, b.Longitude) &&
		p.Latitude >= math.Min(a.Latitude, b.Latitude) && p.Latitude <= math.Max(a.Latitude, b.Latitude)
}

// PointInPolygon tests the outer ring only; holes are not subtracted.
func PointInPolygon(point Coordinate, p Polygon) bool {
	return PointInRing(point, p.Outer)
}

// PointInPolygonal reports whether point is inside any polygon of g (union semantics)
func PointInPolygonal(point Coordinate, g Geometry) bool {
	if g.Type == GeometryEmpty {
		return false
	}
	for _, p := range g.Polygons {
		if PointInPolygon(point, p) {
			return true
		}
	}
	return false
}

// PlanarArea estimates the area of ring in square meters: the shoelace area in
// degree space scaled by MetersPerDegree squared. It is an order-of-magnitude
// figure, only meaningful for small rings near the equator.
func PlanarArea(ring Ring) float64 {
	return math.Abs(signedDegreeArea(ring)) * MetersPerDegree * MetersPerDegree
}

// signedDegreeArea is the shoelace area in square degrees; positive when counter-clockwise
func signedDegreeArea(ring Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a.Longitude*b.Latitude - b.Longitude*a.Latitude
	}
	return sum / 2
}

// GeodesicArea computes the spherical area of ring in square meters using s2.
// Holes are ignored, as in PlanarArea.
func GeodesicArea(ring Ring) float64 {
	open := dedupe(ring.Open())
	if len(open) < 3 {
		return 0
	}

	// s2 wants counter-clockwise loops; rings are assumed smaller than a hemisphere
	reverse := signedDegreeArea(open) < 0
	l := loopFromRing(open, reverse)
	if l.CapBound().Radius().Degrees() > 90 {
		l = loopFromRing(open, !reverse)
	}

	return l.Area() * earthRadius * earthRadius
}

func loopFromRing(ring Ring, reverse bool) *s2.Loop {
	n := len(ring)
	pts := make([]s2.Point, n)
	for i := 0; i < n; i++ {
		c := ring[i]
		if reverse {
			c = ring[n-1-i]
		}
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(c.Latitude, c.Longitude))
	}
	return s2.LoopFromPoints(pts)
}

// dedupe drops consecutive repeated coordinates
func dedupe(ring Ring) Ring {
	out := make(Ring, 0, len(ring))
	for i, c := range ring {
		if i > 0 && c == ring[i-1] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// VertexMean returns the arithmetic mean of the ring's vertices, counting a
// repeated closing vertex once. It approximates a centroid; it is not one.
func VertexMean(ring Ring) (Coordinate, bool) {
	open := ring.Open()
	if len(open) == 0 {
		return Coordinate{}, false
	}
	var sumLng, sumLat float64
	for _, c := range open {
		sumLng += c.Longitude
		sumLat += c.Latitude
	}
	n := float64(len(open))
	return Coordinate{Longitude: sumLng / n, Latitude: sumLat / n}, true
}

// ToGeom converts g into a go-geom multi-polygon in the XY layout (x = longitude)
func ToGeom(g Geometry) (*geom.MultiPolygon, error) {
	coords := make([][][]geom.Coord, 0, len(g.Polygons))
	for _, p := range g.Polygons {
		rings := make([][]geom.Coord, 0, 1+len(p.Holes))
		rings = append(rings, ringCoords(p.Outer))
		for _, h := range p.Holes {
			rings = append(rings, ringCoords(h))
		}
		coords = append(coords, rings)
	}
	return geom.NewMultiPolygon(geom.XY).SetCoords(coords)
}

func ringCoords(r Ring) []geom.Coord {
	closed := r.Closed()
	out := make([]geom.Coord, len(closed))
	for i, c := range closed {
		out[i] = geom.Coord{c.Longitude, c.Latitude}
	}
	return out
}

// Bounds returns the bounding box of g's outer rings
func Bounds(g Geometry) (*geom.Bounds, error) {
	outers := make([]Polygon, len(g.Polygons))
	for i, p := range g.Polygons {
		outers[i] = Polygon{Outer: p.Outer}
	}
	mp, err := ToGeom(Geometry{Type: g.Type, Polygons: outers})
	if err != nil {
		return nil, err
	}
	return mp.Bounds(), nil
}
