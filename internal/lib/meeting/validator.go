// Package meeting decides whether a manually picked meeting point is acceptable
// for an overlap region.
package meeting

import (
	"errors"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
)

var (
	ErrNoRegion          = errors.New("no overlap region to validate against")
	ErrInvalidCoordinate = errors.New("meeting point coordinates are out of range")
	ErrOutsideRegion     = errors.New("meeting point is outside the overlap region")
)

// IsValid reports whether point lies inside region. It fails closed: any
// region that is not an Intersection accepts nothing.
func IsValid(point geo.Coordinate, region overlap.Region) bool {
	return Validate(point, region) == nil
}

// Validate is IsValid with the reason for rejection
func Validate(point geo.Coordinate, region overlap.Region) error {
	if !region.HasGeometry() {
		return ErrNoRegion
	}
	if !point.Valid() {
		return ErrInvalidCoordinate
	}
	if !geo.PointInPolygonal(point, *region.Geometry) {
		return ErrOutsideRegion
	}
	return nil
}
