package isochrone

import (
	"fmt"
	"io"
	"math"
	"strconv"

	geojson "github.com/paulmach/go.geojson"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// Options maps provider feature properties onto contour fields
type Options struct {
	OwnerProperty string               // e.g. "group_index"
	ValueProperty string               // e.g. "value" or "contour"
	DefaultOwner  reachability.OwnerID // used when a feature has no owner property
}

// DefaultOptions matches providers that batch several origins into one response
func DefaultOptions() Options {
	return Options{
		OwnerProperty: "group_index",
		ValueProperty: "value",
	}
}

// Parser converts isochrone GeoJSON FeatureCollections into contours
type Parser struct {
	opts Options
}

// NewParser creates a Parser
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// ParseReader reads a FeatureCollection from r
func (p *Parser) ParseReader(r io.Reader) ([]reachability.Contour, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read isochrone response: %w", err)
	}
	return p.Parse(data)
}

// Parse decodes a FeatureCollection. Every feature must carry a numeric value,
// an owner (or a configured default) and Polygon or MultiPolygon geometry with
// coordinates in WGS84 range.
func (p *Parser) Parse(data []byte) ([]reachability.Contour, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse isochrone GeoJSON: %w", err)
	}

	contours := make([]reachability.Contour, 0, len(fc.Features))
	for i, f := range fc.Features {
		c, err := p.parseFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		contours = append(contours, c)
	}
	return contours, nil
}

func (p *Parser) parseFeature(f *geojson.Feature) (reachability.Contour, error) {
	value, err := f.PropertyFloat64(p.opts.ValueProperty)
	if err != nil {
		return reachability.Contour{}, fmt.Errorf("missing contour value: %w", err)
	}

	owner, err := p.owner(f)
	if err != nil {
		return reachability.Contour{}, err
	}

	if f.Geometry == nil {
		return reachability.Contour{}, fmt.Errorf("feature has no geometry")
	}

	var g geo.Geometry
	switch f.Geometry.Type {
	case geojson.GeometryPolygon:
		poly, err := toPolygon(f.Geometry.Polygon)
		if err != nil {
			return reachability.Contour{}, err
		}
		g = geo.NewPolygon(poly)
	case geojson.GeometryMultiPolygon:
		mp := make(geo.MultiPolygon, 0, len(f.Geometry.MultiPolygon))
		for _, rings := range f.Geometry.MultiPolygon {
			poly, err := toPolygon(rings)
			if err != nil {
				return reachability.Contour{}, err
			}
			mp = append(mp, poly)
		}
		g = geo.NewMultiPolygon(mp)
	default:
		return reachability.Contour{}, fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}

	return reachability.Contour{Value: value, OwnerID: owner, Geometry: g}, nil
}

// owner reads the owner property, accepting strings and integral numbers
func (p *Parser) owner(f *geojson.Feature) (reachability.OwnerID, error) {
	raw, ok := f.Properties[p.opts.OwnerProperty]
	if !ok || raw == nil {
		if p.opts.DefaultOwner != "" {
			return p.opts.DefaultOwner, nil
		}
		return "", fmt.Errorf("missing owner property %q", p.opts.OwnerProperty)
	}

	switch v := raw.(type) {
	case string:
		return reachability.OwnerID(v), nil
	case float64:
		if v == math.Trunc(v) {
			return reachability.OwnerID(strconv.FormatInt(int64(v), 10)), nil
		}
		return reachability.OwnerID(strconv.FormatFloat(v, 'f', -1, 64)), nil
	default:
		return "", fmt.Errorf("owner property %q has unsupported type %T", p.opts.OwnerProperty, raw)
	}
}

// toPolygon converts GeoJSON rings ([lng, lat] pairs, outer ring first)
func toPolygon(rings [][][]float64) (geo.Polygon, error) {
	if len(rings) == 0 {
		return geo.Polygon{}, nil
	}

	var poly geo.Polygon
	for i, raw := range rings {
		ring := make(geo.Ring, 0, len(raw))
		for _, pos := range raw {
			if len(pos) < 2 {
				return geo.Polygon{}, fmt.Errorf("position has %d components, need 2", len(pos))
			}
			c, err := geo.NewCoordinate(pos[0], pos[1])
			if err != nil {
				return geo.Polygon{}, err
			}
			ring = append(ring, c)
		}
		if i == 0 {
			poly.Outer = ring
		} else {
			poly.Holes = append(poly.Holes, ring)
		}
	}
	return poly, nil
}
