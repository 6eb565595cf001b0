package overlap

import (
	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// Kind classifies the outcome of a resolution
type Kind string

const (
	Intersection Kind = "intersection" // non-empty overlap
	NoOverlap    Kind = "no_overlap"   // computed successfully, nothing shared
	Error        Kind = "error"        // inputs unusable or clipping failed
)

// Region is the immutable result of intersecting reachability sets.
// Geometry and the area fields are only set when Kind is Intersection.
type Region struct {
	Kind     Kind          `json:"kind"`
	Geometry *geo.Geometry `json:"geometry,omitempty"`

	// AreaSquareMeters is the planar estimate summed over outer rings
	AreaSquareMeters float64 `json:"area_square_meters,omitempty"`
	// GeodesicAreaSquareMeters is the spherical area of the same rings, for comparison
	GeodesicAreaSquareMeters float64 `json:"geodesic_area_square_meters,omitempty"`

	// TravelTime is the maximum of the contributing contour values
	TravelTime float64                `json:"travel_time,omitempty"`
	OwnerIDs   []reachability.OwnerID `json:"owner_ids"`

	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// HasGeometry reports whether the region can be used for containment queries
func (r Region) HasGeometry() bool {
	return r.Kind == Intersection && r.Geometry != nil && !r.Geometry.IsEmpty()
}

// Anchor returns the vertex mean of the first polygon's outer ring
func (r Region) Anchor() (geo.Coordinate, bool) {
	if !r.HasGeometry() {
		return geo.Coordinate{}, false
	}
	return geo.VertexMean(r.Geometry.Polygons[0].Outer)
}
