// Package geo decides whether a submission coordinate lies inside the
// municipal boundary. The boundary is a multi-polygon: each polygon has an
// outer ring and optional hole rings.
package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Point is a single (lng, lat) vertex, matching GeoJSON coordinate order.
type Point struct {
	Lng float64
	Lat float64
}

// Ring is a closed ordered vertex sequence. A ring with fewer than three
// points is malformed.
type Ring []Point

// Polygon is ring 0 (outer boundary) plus zero or more hole rings.
type Polygon []Ring

// Boundary is the full municipal shape.
type Boundary struct {
	Polygons []Polygon
}

// Validate reports whether the boundary is usable. Empty boundaries and
// degenerate rings make the validator unavailable; callers then default to
// permissive so a boundary-data outage never blocks report creation.
func (b *Boundary) Validate() error {
	if b == nil || len(b.Polygons) == 0 {
		return fmt.Errorf("boundary has no polygons")
	}
	for pi, polygon := range b.Polygons {
		if len(polygon) == 0 {
			return fmt.Errorf("polygon %d has no rings", pi)
		}
		for ri, ring := range polygon {
			if len(ring) < 3 {
				return fmt.Errorf("polygon %d ring %d has %d points", pi, ri, len(ring))
			}
		}
	}
	return nil
}

// Contains runs the point-in-boundary test. The point is inside when it is
// inside at least one polygon: inside the outer ring and not inside any hole.
// Exact-edge points follow raw crossing parity, which is half-open: bottom
// and left edges count as inside, top and right edges as outside.
func (b *Boundary) Contains(lat, lng float64) bool {
	point := Point{Lng: lng, Lat: lat}
	for _, polygon := range b.Polygons {
		if polygonContains(polygon, point) {
			return true
		}
	}
	return false
}

func polygonContains(polygon Polygon, point Point) bool {
	if len(polygon) == 0 || !ringContains(polygon[0], point) {
		return false
	}
	for _, hole := range polygon[1:] {
		if ringContains(hole, point) {
			return false
		}
	}
	return true
}

// ringContains is the standard ray-casting test: cast a horizontal ray from
// the point and count edge crossings; odd means inside.
func ringContains(ring Ring, point Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > point.Lat) != (vj.Lat > point.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(point.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if point.Lng < crossLng {
				inside = !inside
			}
		}
	}
	return inside
}

type geojsonGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    json.RawMessage `json:"geometry"`
	Features    json.RawMessage `json:"features"`
}

// ParseGeoJSON decodes a GeoJSON Polygon or MultiPolygon geometry, accepting
// Feature and FeatureCollection wrappers (the first feature wins).
func ParseGeoJSON(data []byte) (*Boundary, error) {
	var geom geojsonGeometry
	if err := json.Unmarshal(data, &geom); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		return &Boundary{Polygons: []Polygon{toPolygon(rings)}}, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
		}
		boundary := &Boundary{}
		for _, rings := range polys {
			boundary.Polygons = append(boundary.Polygons, toPolygon(rings))
		}
		return boundary, nil
	case "Feature":
		return ParseGeoJSON(geom.Geometry)
	case "FeatureCollection":
		var features []json.RawMessage
		if err := json.Unmarshal(geom.Features, &features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		if len(features) == 0 {
			return nil, fmt.Errorf("feature collection is empty")
		}
		return ParseGeoJSON(features[0])
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", geom.Type)
	}
}

// LoadFromFile reads and parses a boundary file.
func LoadFromFile(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary file: %w", err)
	}
	return ParseGeoJSON(data)
}

func toPolygon(rings [][][]float64) Polygon {
	polygon := make(Polygon, 0, len(rings))
	for _, ring := range rings {
		converted := make(Ring, 0, len(ring))
		for _, pair := range ring {
			if len(pair) < 2 {
				continue
			}
			converted = append(converted, Point{Lng: pair[0], Lat: pair[1]})
		}
		polygon = append(polygon, converted)
	}
	return polygon
}
