// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"cmp"
	"slices"
	"time"

	"github.com/uber/h3-go/v4"
)

const (
	// AllCountries labels the summary row covering every record.
	AllCountries = "ALL"
	// NoCountry labels records that could not be assigned a country.
	NoCountry = "(none)"
)

// CountrySummary aggregates the records of one country.
type CountrySummary struct {
	Country            string
	FireCount          int
	MaxConfidence      int
	MeanConfidence     float64
	MaxConfidenceCount int
	FirstDate          time.Time
	LastDate           time.Time
}

type summaryAcc struct {
	CountrySummary

	sum int
}

func (a *summaryAcc) add(r *EnrichedFireRecord) {
	if a.FireCount == 0 || r.AcquisitionDate.Before(a.FirstDate) {
		a.FirstDate = r.AcquisitionDate
	}

	if a.FireCount == 0 || r.AcquisitionDate.After(a.LastDate) {
		a.LastDate = r.AcquisitionDate
	}

	switch {
	case a.FireCount == 0 || r.Confidence > a.MaxConfidence:
		a.MaxConfidence = r.Confidence
		a.MaxConfidenceCount = 1
	case r.Confidence == a.MaxConfidence:
		a.MaxConfidenceCount++
	}

	a.FireCount++
	a.sum += r.Confidence
}

func (a *summaryAcc) result() CountrySummary {
	s := a.CountrySummary
	if s.FireCount > 0 {
		s.MeanConfidence = float64(a.sum) / float64(s.FireCount)
	}

	return s
}

// Summarize returns one row per country, sorted by name, then the NoCountry
// row when some record has no country, then the AllCountries row. The
// AllCountries row is present even for an empty input.
func Summarize(records []*EnrichedFireRecord) []CountrySummary {
	all := &summaryAcc{CountrySummary: CountrySummary{Country: AllCountries}}

	var out []CountrySummary

	for _, g := range GroupByCountry(records) {
		label := g.Country
		if label == "" {
			label = NoCountry
		}

		acc := &summaryAcc{CountrySummary: CountrySummary{Country: label}}
		for _, r := range g.Records {
			acc.add(r)
			all.add(r)
		}

		out = append(out, acc.result())
	}

	return append(out, all.result())
}

// DailyCount is the number of fires of a country on one acquisition date.
type DailyCount struct {
	Country string
	Date    time.Time
	Count   int
}

// DailyCounts counts fires per country per acquisition date, ordered by date
// then country.
func DailyCounts(records []*EnrichedFireRecord) []DailyCount {
	type key struct {
		country string
		date    time.Time
	}

	counts := make(map[key]int)

	for _, r := range records {
		country := r.Country
		if country == "" {
			country = NoCountry
		}

		counts[key{country, r.AcquisitionDate}]++
	}

	out := make([]DailyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, DailyCount{Country: k.country, Date: k.date, Count: n})
	}

	slices.SortFunc(out, func(a, b DailyCount) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		return cmp.Compare(a.Country, b.Country)
	})

	return out
}

// CellCount aggregates the fires that fall in one H3 cell.
type CellCount struct {
	Cell          h3.Cell
	Count         int
	MaxConfidence int
}

// CellCounts counts fires per H3 cell, busiest cells first. Records without a
// cell are skipped.
func CellCounts(records []*EnrichedFireRecord) []CellCount {
	index := make(map[h3.Cell]int)

	var out []CellCount

	for _, r := range records {
		if r.H3Cell == 0 {
			continue
		}

		i, ok := index[r.H3Cell]
		if !ok {
			i = len(out)
			index[r.H3Cell] = i
			out = append(out, CellCount{Cell: r.H3Cell, MaxConfidence: r.Confidence})
		}

		out[i].Count++
		out[i].MaxConfidence = max(out[i].MaxConfidence, r.Confidence)
	}

	slices.SortStableFunc(out, func(a, b CellCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Cell, b.Cell)
	})

	return out
}
