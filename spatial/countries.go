// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcodagnone/safires/utils/textutils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// nameProperties are the feature properties tried, in order, when no name
// property is configured. They cover Natural Earth, geoBoundaries and most
// hand-made country layers.
var nameProperties = []string{"name", "NAME", "ADMIN", "admin", "country", "COUNTRY", "Name"}

// Country is a named reference polygon.
type Country struct {
	Name     string
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// Contains reports whether the point lies inside the country. Points on the
// boundary are considered in.
func (c *Country) Contains(p Point) bool {
	op := p.Orb()
	if !c.Bound.Contains(op) {
		return false
	}

	return planar.MultiPolygonContains(c.Geometry, op)
}

// AreaKm2 returns the geodesic area of the country in square kilometers.
func (c *Country) AreaKm2() float64 {
	return geo.Area(c.Geometry) / 1e6
}

// CountrySet is the read-only collection of reference polygons used for the
// point-in-polygon test.
type CountrySet struct {
	countries []*Country
	byName    map[string]*Country
}

// NewCountrySet builds a set from a list of countries. Entries sharing a name
// (compared case and accent insensitive) are merged into one multipolygon, the
// way split layers are re-merged before a spatial join.
func NewCountrySet(countries []*Country) (*CountrySet, error) {
	set := &CountrySet{byName: make(map[string]*Country, len(countries))}

	for _, c := range countries {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("country with empty name")
		}

		if len(c.Geometry) == 0 {
			return nil, fmt.Errorf("country %q has no polygons", name)
		}

		key := textutils.LowerASCIIFolding(name)
		if existing, ok := set.byName[key]; ok {
			existing.Geometry = append(existing.Geometry, c.Geometry...)
			existing.Bound = existing.Bound.Union(c.Geometry.Bound())

			continue
		}

		merged := &Country{
			Name:     name,
			Geometry: append(orb.MultiPolygon(nil), c.Geometry...),
			Bound:    c.Geometry.Bound(),
		}
		set.byName[key] = merged
		set.countries = append(set.countries, merged)
	}

	return set, nil
}

// Len returns the number of countries in the set.
func (s *CountrySet) Len() int {
	return len(s.countries)
}

// Countries returns the countries in load order.
func (s *CountrySet) Countries() []*Country {
	return s.countries
}

// Find looks a country up by name, ignoring case and accents.
func (s *CountrySet) Find(name string) (*Country, bool) {
	c, ok := s.byName[textutils.LowerASCIIFolding(name)]

	return c, ok
}

// Locate returns the names of every country containing the point, in load
// order. A well-formed reference layer yields at most one name; the caller
// decides what zero or several matches mean.
func (s *CountrySet) Locate(p Point) []string {
	var names []string

	for _, c := range s.countries {
		if c.Contains(p) {
			names = append(names, c.Name)
		}
	}

	return names
}

// LoadCountries reads a reference polygon file. GeoJSON files (.geojson,
// .json) use nameProperty, or the first of the well known name properties
// when empty. CSV files hold "name,wkt" rows.
func LoadCountries(path, nameProperty string) (*CountrySet, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening countries file: %w", err)
	}
	defer f.Close()

	var countries []*Country

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		countries, err = ReadWKTCountries(f)
	case ".geojson", ".json":
		countries, err = ReadGeoJSONCountries(f, nameProperty)
	default:
		return nil, fmt.Errorf("unsupported countries file format: %s", path)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return NewCountrySet(countries)
}

// ReadGeoJSONCountries parses a FeatureCollection or a single Feature.
func ReadGeoJSONCountries(r io.Reader, nameProperty string) ([]*Country, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var features []*geojson.Feature

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		features = fc.Features
	} else {
		f, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil {
			return nil, fmt.Errorf("parsing geojson: %w", errors.Join(err, ferr))
		}

		features = []*geojson.Feature{f}
	}

	countries := make([]*Country, 0, len(features))

	for i, f := range features {
		name := featureName(f.Properties, nameProperty)
		if name == "" {
			return nil, fmt.Errorf("feature %d: no name property", i)
		}

		mp, err := toMultiPolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, name, err)
		}

		countries = append(countries, &Country{Name: name, Geometry: mp})
	}

	return countries, nil
}

// ReadWKTCountries parses a CSV with a header and "name,wkt" columns.
func ReadWKTCountries(r io.Reader) ([]*Country, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	nameIdx, wktIdx := -1, -1

	for i, h := range header {
		switch textutils.NormalizeHeader(h) {
		case "name", "country":
			nameIdx = i
		case "wkt", "geometry", "geom":
			wktIdx = i
		}
	}

	if nameIdx < 0 || wktIdx < 0 {
		return nil, errors.New("expected name and wkt columns")
	}

	var countries []*Country

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)

		geom, err := wkt.Unmarshal(row[wktIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing wkt: %w", line, err)
		}

		mp, err := toMultiPolygon(geom)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		countries = append(countries, &Country{Name: row[nameIdx], Geometry: mp})
	}

	return countries, nil
}

func featureName(props geojson.Properties, nameProperty string) string {
	if nameProperty != "" {
		return strings.TrimSpace(props.MustString(nameProperty, ""))
	}

	for _, key := range nameProperties {
		if v := strings.TrimSpace(props.MustString(key, "")); v != "" {
			return v
		}
	}

	return ""
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		return v, nil
	case nil:
		return nil, errors.New("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
}
