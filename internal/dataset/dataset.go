// Package dataset loads named points from GeoJSON, JSON or CSV sources.
//
// GeoJSON input is a FeatureCollection of Point features carrying a "name"
// (or "city") property. JSON input is an array of {"name","lat","lon"}
// objects. CSV input has a header row with name/city, latitude/lat and
// longitude/lon columns.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"proximity-planner/internal/geo"
)

var (
	ErrNoPoints          = errors.New("dataset contains no points")
	ErrDuplicateName     = errors.New("duplicate point name")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrMissingName       = errors.New("point has no name")
)

//go:embed data/uk_cities.geojson
var ukCities []byte

// UKCities returns the bundled set of 82 UK cities.
func UKCities() []geo.Point {
	points, err := ParseGeoJSON(ukCities)
	if err != nil {
		panic(fmt.Sprintf("dataset: bundled UK cities: %v", err))
	}
	return points
}

// LoadFile reads points from path. Files ending in .csv are read as CSV;
// anything else is parsed with Parse.
func LoadFile(path string) ([]geo.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ParseCSV(bytes.NewReader(data))
	}
	return Parse(data)
}

// Parse reads a JSON array of points or a GeoJSON FeatureCollection.
func Parse(data []byte) ([]geo.Point, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var points []geo.Point
		if err := json.Unmarshal(trimmed, &points); err != nil {
			return nil, fmt.Errorf("failed to parse point array: %w", err)
		}
		return validate(points)
	}
	return ParseGeoJSON(data)
}

// ParseGeoJSON reads Point features from a FeatureCollection.
func ParseGeoJSON(data []byte) ([]geo.Point, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	points := make([]geo.Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry %s is not a Point", i, geometryType(f.Geometry))
		}
		name := f.Properties.MustString("name", "")
		if name == "" {
			name = f.Properties.MustString("city", "")
		}
		points = append(points, geo.Point{Name: name, Lat: p.Lat(), Lon: p.Lon()})
	}
	return validate(points)
}

// ParseCSV reads points from CSV with a header row.
func ParseCSV(r io.Reader) ([]geo.Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	nameCol, latCol, lonCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "city":
			nameCol = i
		case "latitude", "lat":
			latCol = i
		case "longitude", "lon", "lng":
			lonCol = i
		}
	}
	if nameCol < 0 || latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("CSV header %v needs name, latitude and longitude columns", header)
	}

	var points []geo.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: latitude %q", line, ErrInvalidCoordinate, rec[latCol])
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: longitude %q", line, ErrInvalidCoordinate, rec[lonCol])
		}
		points = append(points, geo.Point{Name: strings.TrimSpace(rec[nameCol]), Lat: lat, Lon: lon})
	}
	return validate(points)
}

func validate(points []geo.Point) ([]geo.Point, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	seen := make(map[string]bool, len(points))
	for i, p := range points {
		if p.Name == "" {
			return nil, fmt.Errorf("point %d: %w", i, ErrMissingName)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
		}
		seen[p.Name] = true
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCoordinate, p)
		}
	}
	return points, nil
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
