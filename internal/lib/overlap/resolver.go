package overlap

import (
	"fmt"
	"math"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// Resolver intersects reachability sets. It holds no mutable state and is safe
// for concurrent use.
type Resolver struct {
	contourValue *float64
}

// Option configures a Resolver
type Option func(*Resolver)

// WithContourValue intersects the contour with exactly this value from each set
// instead of the largest one.
func WithContourValue(value float64) Option {
	return func(r *Resolver) {
		r.contourValue = &value
	}
}

// NewResolver creates a Resolver
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve intersects the representative contours of two sets
func (r *Resolver) Resolve(a, b *reachability.Set) Region {
	return r.ResolveAll(a, b)
}

// ResolveAll folds the intersection left to right across sets in the order
// given. It stops at the first step that errors or comes back empty.
func (r *Resolver) ResolveAll(sets ...*reachability.Set) Region {
	owners := make([]reachability.OwnerID, 0, len(sets))
	for _, s := range sets {
		if s == nil {
			return errorRegion(owners, nil, "reachability set is nil")
		}
		owners = append(owners, s.Owner())
	}

	if len(sets) < 2 {
		return errorRegion(owners, nil, fmt.Sprintf("need at least two reachability sets, got %d", len(sets)))
	}

	contours := make([]reachability.Contour, len(sets))
	for i, s := range sets {
		c, err := r.selectContour(s)
		if err != nil {
			return errorRegion(owners, err, err.Error())
		}
		if c.Geometry.IsEmpty() {
			return errorRegion(owners, nil, fmt.Sprintf("contour %v of owner %q has no geometry", c.Value, s.Owner()))
		}
		contours[i] = c
	}

	acc := contours[0].Geometry
	travelTime := contours[0].Value
	for i := 1; i < len(contours); i++ {
		travelTime = math.Max(travelTime, contours[i].Value)

		result, err := geo.Intersect(acc, contours[i].Geometry)
		if err != nil {
			return errorRegion(owners, err, fmt.Sprintf("intersecting owner %q: %v", sets[i].Owner(), err))
		}
		if result.IsEmpty() {
			return Region{Kind: NoOverlap, TravelTime: travelTime, OwnerIDs: owners}
		}
		acc = result
	}

	var area, geodesicArea float64
	for _, p := range acc.Polygons {
		area += geo.PlanarArea(p.Outer)
		geodesicArea += geo.GeodesicArea(p.Outer)
	}

	return Region{
		Kind:                     Intersection,
		Geometry:                 &acc,
		AreaSquareMeters:         area,
		GeodesicAreaSquareMeters: geodesicArea,
		TravelTime:               travelTime,
		OwnerIDs:                 owners,
	}
}

// selectContour picks the contour of s that takes part in the intersection
func (r *Resolver) selectContour(s *reachability.Set) (reachability.Contour, error) {
	if r.contourValue == nil {
		return s.Largest(), nil
	}
	c, ok := s.At(*r.contourValue)
	if !ok {
		return reachability.Contour{}, fmt.Errorf("owner %q has no contour with value %v", s.Owner(), *r.contourValue)
	}
	return c, nil
}

func errorRegion(owners []reachability.OwnerID, err error, message string) Region {
	return Region{Kind: Error, OwnerIDs: owners, Message: message, Err: err}
}
