// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"cmp"
	"slices"
)

// DefaultConfidenceThreshold keeps only the detections FIRMS is certain about.
const DefaultConfidenceThreshold = 100

// DefaultBorderRadius is the border proximity radius in meters.
const DefaultBorderRadius = 5000.0

// FilterByConfidence returns, in order, the records whose confidence is at
// least threshold.
func FilterByConfidence(records []*EnrichedFireRecord, threshold int) []*EnrichedFireRecord {
	return filter(records, func(r *EnrichedFireRecord) bool {
		return r.Confidence >= threshold
	})
}

// FilterNearBorder returns, in order, the records within radius meters of a
// border. Records without a border distance are left out.
func FilterNearBorder(records []*EnrichedFireRecord, radius float64) []*EnrichedFireRecord {
	return filter(records, func(r *EnrichedFireRecord) bool {
		return r.BorderDistance != nil && *r.BorderDistance <= radius
	})
}

func filter(records []*EnrichedFireRecord, keep func(*EnrichedFireRecord) bool) []*EnrichedFireRecord {
	out := make([]*EnrichedFireRecord, 0, len(records))

	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}

	return out
}

// CountryGroup is the set of records assigned to one country.
type CountryGroup struct {
	Country string
	Records []*EnrichedFireRecord
}

// GroupByCountry buckets records by country. Groups are sorted by name with
// the records without a country last; records keep their input order.
func GroupByCountry(records []*EnrichedFireRecord) []CountryGroup {
	index := make(map[string]int)

	var groups []CountryGroup

	for _, r := range records {
		i, ok := index[r.Country]
		if !ok {
			i = len(groups)
			index[r.Country] = i
			groups = append(groups, CountryGroup{Country: r.Country})
		}

		groups[i].Records = append(groups[i].Records, r)
	}

	slices.SortFunc(groups, func(a, b CountryGroup) int {
		return compareCountry(a.Country, b.Country)
	})

	return groups
}

// SortByCountry returns a copy of records ordered by country, then record id.
// Records without a country go last.
func SortByCountry(records []*EnrichedFireRecord) []*EnrichedFireRecord {
	out := slices.Clone(records)

	slices.SortStableFunc(out, func(a, b *EnrichedFireRecord) int {
		if c := compareCountry(a.Country, b.Country); c != 0 {
			return c
		}

		return cmp.Compare(a.RecordID, b.RecordID)
	})

	return out
}

func compareCountry(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return cmp.Compare(a, b)
	}
}
