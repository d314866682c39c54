// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// twoCountries is a pair of 10x10 degree squares sharing the lon=-60 edge.
const twoCountries = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"NAME": "Brazil", "ISO": "BR"},
      "geometry": {"type": "Polygon", "coordinates": [[[-60,-15],[-50,-15],[-50,-5],[-60,-5],[-60,-15]]]}
    },
    {
      "type": "Feature",
      "properties": {"NAME": "Bolivia", "ISO": "BO"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[-70,-15],[-60,-15],[-60,-5],[-70,-5],[-70,-15]]]]}
    }
  ]
}`

func loadTwoCountries(t *testing.T) *CountrySet {
	t.Helper()

	countries, err := ReadGeoJSONCountries(strings.NewReader(twoCountries), "")
	require.NoError(t, err)

	set, err := NewCountrySet(countries)
	require.NoError(t, err)

	return set
}
