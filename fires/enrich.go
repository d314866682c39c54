// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"context"

	"github.com/jcodagnone/safires/spatial"
)

// Enricher assigns countries and border distances to fire records. It only
// reads the country and border sets, so one Enricher can serve a whole run.
type Enricher struct {
	countries *spatial.CountrySet
	borders   *spatial.BorderSet
}

// NewEnricher returns an Enricher over the given reference data. borders may
// be nil, in which case no border distance is computed.
func NewEnricher(countries *spatial.CountrySet, borders *spatial.BorderSet) *Enricher {
	return &Enricher{countries: countries, borders: borders}
}

// Enrich derives an EnrichedFireRecord from r. The returned record is never
// nil; when the point is not inside exactly one country the record has no
// country and a GeometryMismatchError is returned alongside it.
func (e *Enricher) Enrich(r *FireRecord) (*EnrichedFireRecord, *FireError) {
	out := &EnrichedFireRecord{FireRecord: *r}

	return out, e.Refresh(out)
}

// Refresh recomputes the country and border distance of an already enriched
// record. Applying it twice yields the same result.
func (e *Enricher) Refresh(r *EnrichedFireRecord) *FireError {
	p := r.Point()

	r.Country = ""
	r.BorderDistance = nil

	if e.borders != nil {
		if d, ok := e.borders.DistanceTo(p); ok {
			r.BorderDistance = &d
		}
	}

	candidates := e.countries.Locate(p)
	if len(candidates) != 1 {
		return NewGeometryMismatchError(&r.FireRecord, candidates)
	}

	r.Country = candidates[0]

	return nil
}

// EnrichAll enriches every record in order. Mismatches never stop the loop;
// they are collected and returned. visit, when set, is called after each
// record with its mismatch, if any, and may stop the loop by returning an
// error. The context is checked every few hundred records.
func (e *Enricher) EnrichAll(
	ctx context.Context,
	records []*FireRecord,
	visit func(*EnrichedFireRecord, *FireError) error,
) ([]*EnrichedFireRecord, []*FireError, error) {
	enriched := make([]*EnrichedFireRecord, 0, len(records))

	var mismatches []*FireError

	for i, r := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		out, mismatch := e.Enrich(r)
		if mismatch != nil {
			mismatches = append(mismatches, mismatch)
		}

		enriched = append(enriched, out)

		if visit != nil {
			if err := visit(out, mismatch); err != nil {
				return nil, nil, err
			}
		}
	}

	return enriched, mismatches, nil
}
