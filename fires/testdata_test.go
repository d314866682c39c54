// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"strings"
	"testing"
	"time"

	"github.com/jcodagnone/safires/spatial"
	"github.com/stretchr/testify/require"
)

// southAmerica holds two 10x10 degree squares sharing the lon=-60 edge.
const southAmerica = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Brazil"},
     "geometry": {"type": "Polygon", "coordinates": [[[-60,-15],[-50,-15],[-50,-5],[-60,-5],[-60,-15]]]}},
    {"type": "Feature", "properties": {"name": "Bolivia"},
     "geometry": {"type": "Polygon", "coordinates": [[[-70,-15],[-60,-15],[-60,-5],[-70,-5],[-70,-15]]]}}
  ]
}`

func loadSouthAmerica(t *testing.T) *spatial.CountrySet {
	t.Helper()

	countries, err := spatial.ReadGeoJSONCountries(strings.NewReader(southAmerica), "")
	require.NoError(t, err)

	set, err := spatial.NewCountrySet(countries)
	require.NoError(t, err)

	return set
}

func newTestEnricher(t *testing.T, mode spatial.BorderMode) *Enricher {
	t.Helper()

	set := loadSouthAmerica(t)

	return NewEnricher(set, spatial.NewBorderSet(set, mode))
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}

	return t
}

func ptr(v float64) *float64 {
	return &v
}

func fire(id int, lat, lng float64, confidence int) *EnrichedFireRecord {
	return &EnrichedFireRecord{FireRecord: FireRecord{
		RecordID:        id,
		Latitude:        lat,
		Longitude:       lng,
		Confidence:      confidence,
		AcquisitionDate: date("2018-12-01"),
	}}
}

func ids(records []*EnrichedFireRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.RecordID
	}

	return out
}
