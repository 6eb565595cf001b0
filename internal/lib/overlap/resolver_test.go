package overlap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

func squareContour(owner reachability.OwnerID, value, minLng, minLat, maxLng, maxLat float64) reachability.Contour {
	return reachability.Contour{
		Value:   value,
		OwnerID: owner,
		Geometry: geo.NewPolygon(geo.Polygon{Outer: geo.Ring{
			{Longitude: minLng, Latitude: minLat},
			{Longitude: minLng, Latitude: maxLat},
			{Longitude: maxLng, Latitude: maxLat},
			{Longitude: maxLng, Latitude: minLat},
			{Longitude: minLng, Latitude: minLat},
		}}),
	}
}

func mustSet(t *testing.T, contours ...reachability.Contour) *reachability.Set {
	t.Helper()
	set, err := reachability.FromContours(contours)
	require.NoError(t, err)
	return set
}

func TestResolve_Intersection(t *testing.T) {
	// Two 20 minute contours around Jakarta
	a := mustSet(t, squareContour("A", 20, 106.80, -6.20, 106.90, -6.10))
	b := mustSet(t, squareContour("B", 20, 106.85, -6.25, 106.95, -6.15))

	region := NewResolver().Resolve(a, b)
	require.Equal(t, Intersection, region.Kind, region.Message)
	require.NotNil(t, region.Geometry)

	assert.Equal(t, 20.0, region.TravelTime)
	assert.Greater(t, region.AreaSquareMeters, 0.0)
	assert.Greater(t, region.GeodesicAreaSquareMeters, 0.0)
	assert.Equal(t, []reachability.OwnerID{"A", "B"}, region.OwnerIDs)

	b2, err := geo.Bounds(*region.Geometry)
	require.NoError(t, err)
	assert.InDelta(t, 106.85, b2.Min(0), 1e-9)
	assert.InDelta(t, -6.20, b2.Min(1), 1e-9)
	assert.InDelta(t, 106.90, b2.Max(0), 1e-9)
	assert.InDelta(t, -6.15, b2.Max(1), 1e-9)

	anchor, ok := region.Anchor()
	require.True(t, ok)
	assert.InDelta(t, 106.875, anchor.Longitude, 0.01)
	assert.InDelta(t, -6.175, anchor.Latitude, 0.01)
	assert.True(t, geo.PointInPolygonal(anchor, *region.Geometry), "Anchor of a convex region lies inside it")
}

func TestResolve_AreaProportionalToOverlap(t *testing.T) {
	a := mustSet(t, squareContour("A", 10, 0, 0, 10, 10))
	b := mustSet(t, squareContour("B", 10, 5, 5, 15, 15))

	region := NewResolver().Resolve(a, b)
	require.Equal(t, Intersection, region.Kind)
	assert.InDelta(t, 25*geo.MetersPerDegree*geo.MetersPerDegree, region.AreaSquareMeters, 1e3)
}

func TestResolve_NoOverlap(t *testing.T) {
	a := mustSet(t, squareContour("A", 10, -0.5, -0.5, 0.5, 0.5))
	b := mustSet(t, squareContour("B", 15, 99.5, 9.5, 100.5, 10.5))

	region := NewResolver().Resolve(a, b)
	assert.Equal(t, NoOverlap, region.Kind, "Disjoint regions are a successful empty result")
	assert.Nil(t, region.Geometry)
	assert.Nil(t, region.Err)
	assert.Equal(t, 15.0, region.TravelTime)
	assert.False(t, region.HasGeometry())
}

func TestResolve_TravelTimeIsMaximum(t *testing.T) {
	a := mustSet(t, squareContour("A", 10, 0, 0, 1, 1))
	b := mustSet(t, squareContour("B", 30, 0.5, 0.5, 2, 2))

	region := NewResolver().Resolve(a, b)
	require.Equal(t, Intersection, region.Kind)
	assert.Equal(t, 30.0, region.TravelTime)
}

func TestResolve_UsesLargestContour(t *testing.T) {
	// Small contours are disjoint, large ones overlap
	a := mustSet(t,
		squareContour("A", 30, 0, 0, 6, 6),
		squareContour("A", 10, 0, 0, 1, 1),
	)
	b := mustSet(t,
		squareContour("B", 10, 9, 9, 10, 10),
		squareContour("B", 30, 4, 4, 10, 10),
	)

	assert.Equal(t, Intersection, NewResolver().Resolve(a, b).Kind)
	assert.Equal(t, NoOverlap, NewResolver(WithContourValue(10)).Resolve(a, b).Kind)

	missing := NewResolver(WithContourValue(20)).Resolve(a, b)
	assert.Equal(t, Error, missing.Kind)
	assert.Contains(t, missing.Message, "no contour with value 20")
}

func TestResolve_MalformedRingIsError(t *testing.T) {
	broken := reachability.Contour{
		Value:   10,
		OwnerID: "A",
		Geometry: geo.NewPolygon(geo.Polygon{Outer: geo.Ring{
			{Longitude: 0, Latitude: 0}, {Longitude: 1, Latitude: 1},
		}}),
	}
	a := mustSet(t, broken)
	b := mustSet(t, squareContour("B", 10, 0, 0, 1, 1))

	region := NewResolver().Resolve(a, b)
	require.Equal(t, Error, region.Kind, "Malformed input must never look like NoOverlap")
	assert.NotEmpty(t, region.Message)

	var ierr *geo.IntersectionError
	assert.True(t, errors.As(region.Err, &ierr))
}

func TestResolve_EmptyGeometryIsError(t *testing.T) {
	a := mustSet(t, reachability.Contour{Value: 10, OwnerID: "A", Geometry: geo.Empty()})
	b := mustSet(t, squareContour("B", 10, 0, 0, 1, 1))

	region := NewResolver().Resolve(a, b)
	assert.Equal(t, Error, region.Kind)
	assert.Contains(t, region.Message, "has no geometry")
	assert.Nil(t, region.Err)
}

func TestResolveAll(t *testing.T) {
	a := mustSet(t, squareContour("A", 10, 0, 0, 10, 10))
	b := mustSet(t, squareContour("B", 20, 5, 0, 15, 10))
	c := mustSet(t, squareContour("C", 15, 0, 5, 10, 15))
	far := mustSet(t, squareContour("D", 5, 50, 50, 51, 51))

	resolver := NewResolver()

	region := resolver.ResolveAll(a, b, c)
	require.Equal(t, Intersection, region.Kind)
	assert.Equal(t, 20.0, region.TravelTime)
	assert.Equal(t, []reachability.OwnerID{"A", "B", "C"}, region.OwnerIDs)
	assert.InDelta(t, 25*geo.MetersPerDegree*geo.MetersPerDegree, region.AreaSquareMeters, 1e3)
	assert.True(t, geo.PointInPolygonal(geo.Coordinate{Longitude: 7, Latitude: 7}, *region.Geometry))

	// Fold order does not change the kind
	assert.Equal(t, Intersection, resolver.ResolveAll(c, a, b).Kind)
	assert.Equal(t, NoOverlap, resolver.ResolveAll(a, far, b).Kind)
	assert.Equal(t, NoOverlap, resolver.ResolveAll(far, a, b).Kind)

	assert.Equal(t, Error, resolver.ResolveAll(a).Kind)
	assert.Equal(t, Error, resolver.ResolveAll(a, nil).Kind)
}
