// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"context"
	"fmt"

	"github.com/jcodagnone/safires/spatial"
)

// DistanceMethod selects how the distance between two detections is measured.
type DistanceMethod string

const (
	// DistanceHaversine is the great-circle distance on a spherical earth.
	DistanceHaversine DistanceMethod = "haversine"
	// DistancePlanar is the distance on a local equirectangular plane.
	DistancePlanar DistanceMethod = "planar"
)

// ParseDistanceMethod validates a distance method name. Empty means haversine.
func ParseDistanceMethod(s string) (DistanceMethod, error) {
	switch DistanceMethod(s) {
	case DistanceHaversine, DistancePlanar:
		return DistanceMethod(s), nil
	case "":
		return DistanceHaversine, nil
	default:
		return "", fmt.Errorf("unknown distance method %q (want %q or %q)", s, DistanceHaversine, DistancePlanar)
	}
}

// Distance returns the distance in meters between a and b.
func (m DistanceMethod) Distance(a, b spatial.Point) float64 {
	if m == DistancePlanar {
		return a.PlanarDistance(&b)
	}

	return a.HaversineDistance(&b)
}

// AverageDistances sets AvgDistance on every record to the mean distance to
// all the other records. Each pair is measured once. With fewer than two
// records AvgDistance is left nil. The cost is quadratic in len(records).
func AverageDistances(ctx context.Context, records []*EnrichedFireRecord, method DistanceMethod) error {
	n := len(records)
	if n < 2 {
		for _, r := range records {
			r.AvgDistance = nil
		}

		return nil
	}

	points := make([]spatial.Point, n)
	for i, r := range records {
		points[i] = r.Point()
	}

	sums := make([]float64, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for j := i + 1; j < n; j++ {
			d := method.Distance(points[i], points[j])
			sums[i] += d
			sums[j] += d
		}
	}

	for i, r := range records {
		avg := sums[i] / float64(n-1)
		r.AvgDistance = &avg
	}

	return nil
}

// PointDistance is one row of the point distance table.
type PointDistance struct {
	InputID  int
	NearID   int
	Distance float64
}

// EachDistance calls fn for every ordered pair of distinct records whose
// distance is within radius meters, grouped by input record. A radius of zero
// or less disables the limit. Iteration stops at the first error from fn.
func EachDistance(
	ctx context.Context,
	records []*EnrichedFireRecord,
	method DistanceMethod,
	radius float64,
	fn func(PointDistance) error,
) error {
	for _, a := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		pa := a.Point()

		for _, b := range records {
			if a == b {
				continue
			}

			d := method.Distance(pa, b.Point())
			if radius > 0 && d > radius {
				continue
			}

			if err := fn(PointDistance{InputID: a.RecordID, NearID: b.RecordID, Distance: d}); err != nil {
				return err
			}
		}
	}

	return nil
}
