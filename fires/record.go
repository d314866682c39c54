// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"time"

	"github.com/jcodagnone/safires/spatial"
	"github.com/uber/h3-go/v4"
)

// FireRecord is a single satellite detection as read from the input CSV.
type FireRecord struct {
	// RecordID is the 1-based data row the record was read from.
	RecordID        int
	Latitude        float64
	Longitude       float64
	Confidence      int
	AcquisitionDate time.Time
	// AcquiredAt is the date combined with acq_time, when present.
	AcquiredAt *time.Time
	Satellite  string
	Instrument string
	DayNight   string
	Brightness *float64
	FRP        *float64
}

// Point returns the location of the detection.
func (r *FireRecord) Point() spatial.Point {
	return spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// EnrichedFireRecord is a FireRecord plus everything derived from it during a
// run. Country is empty when no single country contains the point.
type EnrichedFireRecord struct {
	FireRecord

	Country        string
	BorderDistance *float64
	AvgDistance    *float64
	H3Cell         h3.Cell
	ClusterID      int
}

// HasCountry reports whether the record was assigned to exactly one country.
func (r *EnrichedFireRecord) HasCountry() bool {
	return r.Country != ""
}
