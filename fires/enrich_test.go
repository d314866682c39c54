// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"context"
	"errors"
	"testing"

	"github.com/jcodagnone/safires/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnricher_Enrich(t *testing.T) {
	e := newTestEnricher(t, spatial.BorderModeAll)

	rec := &FireRecord{RecordID: 1, Latitude: -10.5, Longitude: -55.2, Confidence: 100, AcquisitionDate: date("2018-12-01")}

	out, mismatch := e.Enrich(rec)
	require.Nil(t, mismatch)
	assert.Equal(t, "Brazil", out.Country)
	assert.Equal(t, 100, out.Confidence)
	assert.True(t, out.HasCountry())
	require.NotNil(t, out.BorderDistance)
	// nearest edge is the southern one, 4.5 degrees away
	assert.InDelta(t, 500377, *out.BorderDistance, 100)
}

func TestEnricher_Mismatches(t *testing.T) {
	e := newTestEnricher(t, spatial.BorderModeShared)

	t.Run("shared edge", func(t *testing.T) {
		out, mismatch := e.Enrich(&FireRecord{RecordID: 2, Latitude: -10, Longitude: -60})
		require.NotNil(t, mismatch)
		assert.True(t, IsGeometryMismatch(mismatch))
		assert.Equal(t, MismatchMultiple, mismatch.Reason())
		assert.Equal(t, []string{"Brazil", "Bolivia"}, mismatch.Candidates)
		assert.Equal(t, 2, mismatch.RecordID)

		assert.Empty(t, out.Country)
		require.NotNil(t, out.BorderDistance)
		assert.InDelta(t, 0, *out.BorderDistance, 1e-6)
	})

	t.Run("ocean", func(t *testing.T) {
		out, mismatch := e.Enrich(&FireRecord{RecordID: 3, Latitude: 0, Longitude: 0})
		require.NotNil(t, mismatch)
		assert.Equal(t, MismatchNone, mismatch.Reason())
		assert.Empty(t, mismatch.Candidates)
		assert.False(t, out.HasCountry())
	})
}

func TestEnricher_Idempotent(t *testing.T) {
	e := newTestEnricher(t, spatial.BorderModeAll)

	out, mismatch := e.Enrich(&FireRecord{RecordID: 1, Latitude: -12, Longitude: -65})
	require.Nil(t, mismatch)

	first := *out
	firstDistance := *out.BorderDistance

	require.Nil(t, e.Refresh(out))
	assert.Equal(t, first.Country, out.Country)
	assert.Equal(t, "Bolivia", out.Country)
	assert.InDelta(t, firstDistance, *out.BorderDistance, 1e-9)
}

func TestEnricher_EnrichAll(t *testing.T) {
	set := loadSouthAmerica(t)
	e := NewEnricher(set, nil)

	records := []*FireRecord{
		{RecordID: 1, Latitude: -10.5, Longitude: -55.2},
		{RecordID: 2, Latitude: 0, Longitude: 0},
		{RecordID: 3, Latitude: -12, Longitude: -65},
		{RecordID: 4, Latitude: -10, Longitude: -60},
	}

	var visited, seen []int

	enriched, mismatches, err := e.EnrichAll(context.Background(), records, func(r *EnrichedFireRecord, fe *FireError) error {
		visited = append(visited, r.RecordID)

		if fe != nil {
			seen = append(seen, fe.RecordID)
		}

		return nil
	})
	require.NoError(t, err)

	require.Len(t, enriched, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(enriched))
	assert.Equal(t, []int{1, 2, 3, 4}, visited)
	assert.Equal(t, []string{"Brazil", "", "Bolivia", ""}, []string{
		enriched[0].Country, enriched[1].Country, enriched[2].Country, enriched[3].Country,
	})
	assert.Nil(t, enriched[0].BorderDistance)

	require.Len(t, mismatches, 2)
	assert.Equal(t, []int{2, 4}, seen)
}

func TestEnricher_EnrichAllStops(t *testing.T) {
	e := NewEnricher(loadSouthAmerica(t), nil)
	records := []*FireRecord{{RecordID: 1}, {RecordID: 2}}

	boom := errors.New("stop")
	_, _, err := e.EnrichAll(context.Background(), records, func(*EnrichedFireRecord, *FireError) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = e.EnrichAll(ctx, records, nil)
	require.ErrorIs(t, err, context.Canceled)
}
