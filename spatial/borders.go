// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// BorderMode selects which polygon edges count as a border.
type BorderMode string

const (
	// BorderModeAll keeps every ring edge, coastlines included.
	BorderModeAll BorderMode = "all"
	// BorderModeShared keeps only edges shared by two or more countries.
	BorderModeShared BorderMode = "shared"
)

// ParseBorderMode validates a border mode name.
func ParseBorderMode(s string) (BorderMode, error) {
	switch BorderMode(s) {
	case BorderModeAll, BorderModeShared:
		return BorderMode(s), nil
	case "":
		return BorderModeAll, nil
	default:
		return "", fmt.Errorf("unknown border mode %q (want %q or %q)", s, BorderModeAll, BorderModeShared)
	}
}

// vertexScale is the grid vertices are snapped to when matching edges
// between countries, about 10cm at the equator.
const vertexScale = 1e6

type vertexKey struct{ x, y int64 }

type edgeKey struct{ a, b vertexKey }

func newEdgeKey(a, b orb.Point) edgeKey {
	ka := vertexKey{int64(math.Round(a[0] * vertexScale)), int64(math.Round(a[1] * vertexScale))}
	kb := vertexKey{int64(math.Round(b[0] * vertexScale)), int64(math.Round(b[1] * vertexScale))}

	if kb.x < ka.x || (kb.x == ka.x && kb.y < ka.y) {
		ka, kb = kb, ka
	}

	return edgeKey{ka, kb}
}

type segment struct {
	a, b           orb.Point
	minLat, maxLat float64
	countries      []string
}

// BorderSet holds the border line segments derived from the country rings.
type BorderSet struct {
	mode     BorderMode
	segments []segment
}

// NewBorderSet converts the polygon rings of every country into line
// segments. Edges shared between countries appear once.
func NewBorderSet(countries *CountrySet, mode BorderMode) *BorderSet {
	index := make(map[edgeKey]int)
	set := &BorderSet{mode: mode}

	for _, c := range countries.Countries() {
		for _, poly := range c.Geometry {
			for _, ring := range poly {
				for i := 0; i+1 < len(ring); i++ {
					a, b := ring[i], ring[i+1]
					if a.Equal(b) {
						continue
					}

					key := newEdgeKey(a, b)
					if idx, ok := index[key]; ok {
						set.segments[idx].addCountry(c.Name)

						continue
					}

					index[key] = len(set.segments)
					set.segments = append(set.segments, segment{
						a:         a,
						b:         b,
						minLat:    math.Min(a.Lat(), b.Lat()),
						maxLat:    math.Max(a.Lat(), b.Lat()),
						countries: []string{c.Name},
					})
				}
			}
		}
	}

	if mode == BorderModeShared {
		shared := set.segments[:0]

		for _, s := range set.segments {
			if len(s.countries) > 1 {
				shared = append(shared, s)
			}
		}

		set.segments = shared
	}

	return set
}

func (s *segment) addCountry(name string) {
	for _, c := range s.countries {
		if c == name {
			return
		}
	}

	s.countries = append(s.countries, name)
}

// Mode returns the border mode the set was built with.
func (b *BorderSet) Mode() BorderMode {
	return b.mode
}

// Len returns the number of segments.
func (b *BorderSet) Len() int {
	return len(b.segments)
}

// CountFor returns how many segments bound the named country.
func (b *BorderSet) CountFor(name string) int {
	n := 0

	for _, s := range b.segments {
		for _, c := range s.countries {
			if c == name {
				n++

				break
			}
		}
	}

	return n
}

// DistanceTo returns the planar distance in meters from p to the nearest
// border segment. The second result is false when the set is empty.
func (b *BorderSet) DistanceTo(p Point) (float64, bool) {
	if len(b.segments) == 0 {
		return 0, false
	}

	best := math.Inf(1)

	for i := range b.segments {
		s := &b.segments[i]

		// no segment outside the latitude band can be closer than best
		gap := math.Max(0, math.Max(s.minLat-p.Lat, p.Lat-s.maxLat)) * metersPerDegree
		if gap >= best {
			continue
		}

		// the point is the origin of its own projection
		if d := planar.DistanceFromSegment(p.project(s.a), p.project(s.b), orb.Point{}); d < best {
			best = d
		}
	}

	return best, true
}
