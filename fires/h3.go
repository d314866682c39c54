// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// DefaultH3Resolution gives hexagons of about 250 km2, a useful grain for
// daily fire counts.
const DefaultH3Resolution = 5

const maxH3Resolution = 15

// AssignCells sets the H3 cell of every record at the given resolution.
func AssignCells(records []*EnrichedFireRecord, res int) error {
	if res < 0 || res > maxH3Resolution {
		return fmt.Errorf("h3 resolution must be between 0 and %d (got %d)", maxH3Resolution, res)
	}

	for _, r := range records {
		cell, err := h3.LatLngToCell(h3.NewLatLng(r.Latitude, r.Longitude), res)
		if err != nil {
			return fmt.Errorf("error converting record %d to h3 cell at res %d: %w", r.RecordID, res, err)
		}

		r.H3Cell = cell
	}

	return nil
}
