package reachability

import (
	"fmt"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
)

// OwnerID identifies the origin (party) a contour was computed for.
// Providers that use integer group indexes are mapped to their decimal string.
type OwnerID string

// Contour is a region reachable within Value (minutes or meters) from one owner's origin
type Contour struct {
	Value    float64      `json:"value"`
	OwnerID  OwnerID      `json:"owner_id"`
	Geometry geo.Geometry `json:"geometry"`
}

// ValidationError reports input that cannot form a reachability set
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid reachability set: " + e.Reason
}

// Validate reports a ValidationError when any ring coordinate of the contour
// lies outside WGS84 range.
func (c Contour) Validate() error {
	for i, p := range c.Geometry.Polygons {
		rings := append([]geo.Ring{p.Outer}, p.Holes...)
		for j, r := range rings {
			for _, pt := range r {
				if !pt.Valid() {
					return &ValidationError{Reason: fmt.Sprintf(
						"owner %q contour %g: polygon %d ring %d has coordinate (%g, %g) outside WGS84 range",
						c.OwnerID, c.Value, i, j, pt.Longitude, pt.Latitude)}
				}
			}
		}
	}
	return nil
}
