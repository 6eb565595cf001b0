package geo

import (
	"errors"
	"fmt"
	"runtime/debug"

	cgeom "github.com/ctessum/geom"
	perrors "github.com/dpup/prefab/errors"
	"github.com/twpayne/go-geom"
)

// IntersectionError reports that clipping could not be performed on the inputs.
// It is never used to signal an empty result.
type IntersectionError struct {
	A, B  Geometry
	Err   error
	Stack string // minimal stack when the clipper panicked
}

func (e *IntersectionError) Error() string {
	return "polygon intersection failed: " + e.Err.Error()
}

func (e *IntersectionError) Unwrap() error {
	return e.Err
}

// Intersect computes the intersection of two polygonal geometries. An empty
// result is always returned as Empty(), whatever shape the clipper produced.
// Malformed inputs (short rings, non-finite coordinates) and clipper failures
// return an *IntersectionError.
func Intersect(a, b Geometry) (Geometry, error) {
	if err := validateGeometry(a); err != nil {
		return Geometry{}, &IntersectionError{A: a, B: b, Err: fmt.Errorf("first geometry: %w", err)}
	}
	if err := validateGeometry(b); err != nil {
		return Geometry{}, &IntersectionError{A: a, B: b, Err: fmt.Errorf("second geometry: %w", err)}
	}

	if a.IsEmpty() || b.IsEmpty() {
		return Empty(), nil
	}

	// Disjoint bounding boxes cannot intersect
	boundsA, err := Bounds(a)
	if err != nil {
		return Geometry{}, &IntersectionError{A: a, B: b, Err: err}
	}
	boundsB, err := Bounds(b)
	if err != nil {
		return Geometry{}, &IntersectionError{A: a, B: b, Err: err}
	}
	if !boundsA.Overlaps(geom.XY, boundsB) {
		return Empty(), nil
	}

	clipped, stack, err := clip(toClipPolygon(a), toClipPolygon(b))
	if err != nil {
		return Geometry{}, &IntersectionError{A: a, B: b, Err: err, Stack: stack}
	}

	return fromClipPolygon(clipped), nil
}

// clip runs the boolean intersection, converting a clipper panic into an error
func clip(subject, clipping cgeom.Polygon) (result cgeom.Polygon, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			trace, _ := perrors.ParseStack(debug.Stack())
			skipFrames := 3
			numFrames := 5
			stack = fmt.Sprint(trace.MinimalStack(skipFrames, numFrames))
			err = fmt.Errorf("clipper panic: %v", r)
		}
	}()
	out, ok := subject.Intersection(clipping).(cgeom.Polygon)
	if !ok {
		return nil, "", errors.New("clipper returned a non-polygon result")
	}
	return out, "", nil
}

// validateGeometry rejects rings the clipper cannot handle
func validateGeometry(g Geometry) error {
	for i, p := range g.Polygons {
		if err := validateRing(p.Outer); err != nil {
			return fmt.Errorf("polygon %d outer ring: %w", i, err)
		}
		for j, h := range p.Holes {
			if err := validateRing(h); err != nil {
				return fmt.Errorf("polygon %d hole %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateRing(r Ring) error {
	for _, c := range r {
		if !isFinite(c) {
			return errors.New("ring contains a non-finite coordinate")
		}
	}
	if len(dedupe(r.Open())) < 3 {
		return fmt.Errorf("ring has %d distinct coordinates, need at least 3", len(dedupe(r.Open())))
	}
	return nil
}

// toClipPolygon flattens every ring of g into one clipper polygon. Rings are
// open, since the clipper closes paths implicitly.
func toClipPolygon(g Geometry) cgeom.Polygon {
	var out cgeom.Polygon
	for _, p := range g.Polygons {
		out = append(out, toClipPath(p.Outer))
		for _, h := range p.Holes {
			out = append(out, toClipPath(h))
		}
	}
	return out
}

func toClipPath(r Ring) cgeom.Path {
	open := r.Open()
	path := make(cgeom.Path, len(open))
	for i, c := range open {
		path[i] = cgeom.Point{X: c.Longitude, Y: c.Latitude}
	}
	return path
}

// fromClipPolygon normalizes clipper output. A nil polygon, a polygon whose
// paths are all empty and paths too short to enclose area all collapse to
// Empty(). Remaining paths are sorted into outer rings and holes by nesting
// depth: a path inside an odd number of other paths is a hole of the
// innermost outer ring containing it.
func fromClipPolygon(p cgeom.Polygon) Geometry {
	var rings []Ring
	for _, path := range p {
		ring := make(Ring, 0, len(path)+1)
		for _, pt := range path {
			ring = append(ring, Coordinate{Longitude: pt.X, Latitude: pt.Y})
		}
		if len(dedupe(ring.Open())) < 3 || signedDegreeArea(ring) == 0 {
			continue
		}
		rings = append(rings, ring.Closed())
	}
	if len(rings) == 0 {
		return Empty()
	}

	depth := make([]int, len(rings))
	for i, r := range rings {
		for j, other := range rings {
			if i != j && ringContains(other, r) {
				depth[i]++
			}
		}
	}

	var polygons []Polygon
	outerIndex := make(map[int]int)
	for i, r := range rings {
		if depth[i]%2 == 0 {
			outerIndex[i] = len(polygons)
			polygons = append(polygons, Polygon{Outer: r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		parent := -1
		for j := range rings {
			if depth[j]%2 == 0 && depth[j] == depth[i]-1 && ringContains(rings[j], r) {
				parent = j
				break
			}
		}
		if parent < 0 {
			// No enclosing outer ring: keep the area rather than drop it
			outerIndex[i] = len(polygons)
			polygons = append(polygons, Polygon{Outer: r})
			continue
		}
		k := outerIndex[parent]
		polygons[k].Holes = append(polygons[k].Holes, r)
	}

	if len(polygons) == 1 {
		return NewPolygon(polygons[0])
	}
	return NewMultiPolygon(polygons)
}

// ringContains reports whether inner lies inside outer, probing with the first
// vertex of inner that is not on outer's boundary.
func ringContains(outer, inner Ring) bool {
	for _, c := range inner.Open() {
		if !onBoundary(c, outer) {
			return PointInRing(c, outer)
		}
	}
	return false
}

func onBoundary(p Coordinate, r Ring) bool {
	n := len(r)
	for i := 0; i < n; i++ {
		if onSegment(p, r[i], r[(i+1)%n]) {
			return true
		}
	}
	return false
}
