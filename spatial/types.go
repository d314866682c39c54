// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	earthRadius = 6371e3 // meters

	// metersPerDegree is the length of one degree of arc on the sphere.
	metersPerDegree = earthRadius * math.Pi / 180
)

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointFromOrb converts an orb point (x=lon, y=lat) into a Point.
func PointFromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lng: p.Lon()}
}

// Orb returns the point in orb's (lon, lat) order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate checks that the coordinates are within the WGS84 ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	return nil
}

// Value implements the driver.Valuer interface for database serialization.
func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		p.Lat, p.Lng = 0, 0

		return nil
	}

	switch v := value.(type) {
	case string:
		return p.scanWKT(v)
	case []byte:
		return p.scanWKT(string(v))
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for point: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		p.Lng = x
		p.Lat = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Point scan: %T", value)
	}
}

// scanWKT accepts both "POINT(lng lat)" and DuckDB's "POINT (lng lat)".
func (p *Point) scanWKT(s string) error {
	if _, err := fmt.Sscanf(s, "POINT (%f %f)", &p.Lng, &p.Lat); err == nil {
		return nil
	}

	_, err := fmt.Sscanf(s, "POINT(%f %f)", &p.Lng, &p.Lat)

	return err
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// PlanarDistance calculates the distance in meters on a local equirectangular
// plane centered on p. Accurate for the short ranges border proximity works with.
func (p *Point) PlanarDistance(other *Point) float64 {
	return planar.Distance(orb.Point{}, p.project(other.Orb()))
}

// project maps q, in orb's (lon, lat) order, into meters on the
// equirectangular plane centered on p.
func (p *Point) project(q orb.Point) orb.Point {
	dLng := q.Lon() - p.Lng
	// take the short way around the antimeridian
	if dLng > 180 {
		dLng -= 360
	} else if dLng < -180 {
		dLng += 360
	}

	return orb.Point{
		dLng * metersPerDegree * math.Cos(p.Lat*math.Pi/180),
		(q.Lat() - p.Lat) * metersPerDegree,
	}
}
