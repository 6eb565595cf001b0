// Package export renders overlap regions in formats map clients consume:
// GeoJSON, KML, WKB and Google encoded polylines.
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-kml"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
)

// ErrNoGeometry is returned for regions that are not an Intersection
var ErrNoGeometry = errors.New("region has no geometry to export")

// GeoJSON returns a FeatureCollection holding the region as one feature
func GeoJSON(region overlap.Region) ([]byte, error) {
	f, err := Feature(region)
	if err != nil {
		return nil, err
	}
	return geojson.NewFeatureCollection().AddFeature(f).MarshalJSON()
}

// Feature converts the region into a GeoJSON feature with its measurements as properties
func Feature(region overlap.Region) (*geojson.Feature, error) {
	if !region.HasGeometry() {
		return nil, ErrNoGeometry
	}

	var f *geojson.Feature
	polygons := region.Geometry.Polygons
	if region.Geometry.Type == geo.GeometryPolygon {
		f = geojson.NewPolygonFeature(polygonCoords(polygons[0]))
	} else {
		mp := make([][][][]float64, len(polygons))
		for i, p := range polygons {
			mp[i] = polygonCoords(p)
		}
		f = geojson.NewMultiPolygonFeature(mp...)
	}

	owners := make([]string, len(region.OwnerIDs))
	for i, o := range region.OwnerIDs {
		owners[i] = string(o)
	}
	f.SetProperty("kind", string(region.Kind))
	f.SetProperty("area_square_meters", region.AreaSquareMeters)
	f.SetProperty("geodesic_area_square_meters", region.GeodesicAreaSquareMeters)
	f.SetProperty("travel_time", region.TravelTime)
	f.SetProperty("owner_ids", owners)
	return f, nil
}

// polygonCoords converts to GeoJSON nesting: rings of closed [lng, lat] positions
func polygonCoords(p geo.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, 1+len(p.Holes))
	rings = append(rings, ringCoords(p.Outer))
	for _, h := range p.Holes {
		rings = append(rings, ringCoords(h))
	}
	return rings
}

func ringCoords(r geo.Ring) [][]float64 {
	closed := r.Closed()
	out := make([][]float64, len(closed))
	for i, c := range closed {
		out[i] = []float64{c.Longitude, c.Latitude}
	}
	return out
}

// KML writes the region as a KML document with a single placemark
func KML(w io.Writer, name string, region overlap.Region) error {
	if !region.HasGeometry() {
		return ErrNoGeometry
	}

	var shapes []kml.Element
	for _, p := range region.Geometry.Polygons {
		children := []kml.Element{kml.OuterBoundaryIs(kml.LinearRing(kml.Coordinates(kmlCoords(p.Outer)...)))}
		for _, h := range p.Holes {
			children = append(children, kml.InnerBoundaryIs(kml.LinearRing(kml.Coordinates(kmlCoords(h)...))))
		}
		shapes = append(shapes, kml.Polygon(children...))
	}

	geometry := shapes[0]
	if len(shapes) > 1 {
		geometry = kml.MultiGeometry(shapes...)
	}

	owners := make([]string, len(region.OwnerIDs))
	for i, o := range region.OwnerIDs {
		owners[i] = string(o)
	}
	description := fmt.Sprintf("Owners: %s\nTravel time: %g\nArea: %.0f m²",
		strings.Join(owners, ", "), region.TravelTime, region.AreaSquareMeters)

	doc := kml.KML(
		kml.Document(
			kml.Name(name),
			kml.Placemark(
				kml.Name(name),
				kml.Description(description),
				geometry,
			),
		),
	)
	return doc.WriteIndent(w, "", "  ")
}

func kmlCoords(r geo.Ring) []kml.Coordinate {
	closed := r.Closed()
	out := make([]kml.Coordinate, len(closed))
	for i, c := range closed {
		out[i] = kml.Coordinate{Lon: c.Longitude, Lat: c.Latitude}
	}
	return out
}

// WKB encodes the region as a little-endian WKB MultiPolygon
func WKB(region overlap.Region) ([]byte, error) {
	if !region.HasGeometry() {
		return nil, ErrNoGeometry
	}
	mp, err := geo.ToGeom(*region.Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to convert region geometry: %w", err)
	}
	return wkb.Marshal(mp, binary.LittleEndian)
}

// EncodedRings returns each polygon's outer ring as a Google encoded polyline
func EncodedRings(region overlap.Region) ([]string, error) {
	if !region.HasGeometry() {
		return nil, ErrNoGeometry
	}
	out := make([]string, len(region.Geometry.Polygons))
	for i, p := range region.Geometry.Polygons {
		out[i] = geo.EncodeRing(p.Outer)
	}
	return out, nil
}
