package geo

// Coordinate represents a WGS84 position in degrees
type Coordinate struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
}

// Ring is an ordered sequence of coordinates forming a closed loop.
// The closing coordinate may be repeated or left implicit.
type Ring []Coordinate

// Polygon is one outer ring plus zero or more holes
type Polygon struct {
	Outer Ring   `json:"outer"`
	Holes []Ring `json:"holes,omitempty"`
}

// MultiPolygon is an ordered sequence of polygons
type MultiPolygon []Polygon

// GeometryType tags the shape carried by a Geometry
type GeometryType string

const (
	GeometryEmpty        GeometryType = "Empty"
	GeometryPolygon      GeometryType = "Polygon"
	GeometryMultiPolygon GeometryType = "MultiPolygon"
)

// Geometry is the single normalized shape exchanged between components:
// Empty, a Polygon (exactly one entry in Polygons) or a MultiPolygon.
type Geometry struct {
	Type     GeometryType `json:"type"`
	Polygons []Polygon    `json:"polygons,omitempty"`
}

// Empty returns the empty geometry
func Empty() Geometry {
	return Geometry{Type: GeometryEmpty}
}

// NewPolygon wraps a single polygon
func NewPolygon(p Polygon) Geometry {
	return Geometry{Type: GeometryPolygon, Polygons: []Polygon{p}}
}

// NewMultiPolygon wraps a multi-polygon. A multi-polygon with no members is Empty.
func NewMultiPolygon(mp MultiPolygon) Geometry {
	if len(mp) == 0 {
		return Empty()
	}
	return Geometry{Type: GeometryMultiPolygon, Polygons: append([]Polygon(nil), mp...)}
}

// IsEmpty reports whether the geometry carries no usable outer ring
func (g Geometry) IsEmpty() bool {
	if g.Type == GeometryEmpty {
		return true
	}
	for _, p := range g.Polygons {
		if len(p.Outer) > 0 {
			return false
		}
	}
	return true
}

// MultiPolygon returns the geometry in multi-polygon form
func (g Geometry) MultiPolygon() MultiPolygon {
	return MultiPolygon(g.Polygons)
}

// Valid reports whether the coordinate lies in WGS84 range
func (c Coordinate) Valid() bool {
	return isValidCoordinate(c)
}

// Open returns the ring without a repeated closing coordinate
func (r Ring) Open() Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// Closed returns the ring with its first coordinate repeated at the end
func (r Ring) Closed() Ring {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	closed := make(Ring, len(r), len(r)+1)
	copy(closed, r)
	return append(closed, r[0])
}
