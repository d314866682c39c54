// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcodagnone/safires/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCountries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Brazil"},
     "geometry": {"type": "Polygon", "coordinates": [[[-60,-15],[-50,-15],[-50,-5],[-60,-5],[-60,-15]]]}},
    {"type": "Feature", "properties": {"name": "Bolivia"},
     "geometry": {"type": "Polygon", "coordinates": [[[-70,-15],[-60,-15],[-60,-5],[-70,-5],[-70,-15]]]}}
  ]
}`

const testFires = `latitude,longitude,confidence,acq_date
-10.5,-55.2,100,2018-12-01
-12,-60.02,80,2018-12-02
-10,-60,100,2018-12-02
`

func resetFlags(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		runFlags = config.Default()
		configPath = ""
		dbPath = ""
		countriesOpts = countriesOptions{borderMode: "all"}
		countryFilter = ""

		for _, c := range []*pflag.FlagSet{runCmd.Flags(), countriesListCmd.Flags(), rootCmd.PersistentFlags()} {
			c.VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
	})
}

func TestTable(t *testing.T) {
	tbl := newTable("Country", "Fires").alignRight(1)
	tbl.add("Brazil", 12)
	tbl.add("Perú", 3)

	var buf bytes.Buffer
	tbl.print(&buf)

	want := strings.Join([]string{
		"╭─────────┬───────╮",
		"│ Country │ Fires │",
		"├─────────┼───────┤",
		"│ Brazil  │    12 │",
		"│ Perú    │     3 │",
		"╰─────────┴───────╯",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestParsePoint(t *testing.T) {
	rec, err := parsePoint(3, "-10.5, -55.2")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.RecordID)
	assert.InDelta(t, -10.5, rec.Latitude, 0)
	assert.InDelta(t, -55.2, rec.Longitude, 0)

	_, err = parsePoint(1, "-10.5")
	require.Error(t, err)

	_, err = parsePoint(1, "north -55")
	require.Error(t, err)

	_, err = parsePoint(1, "95 -55")
	require.Error(t, err)
}

func TestLoadRunConfig(t *testing.T) {
	resetFlags(t)

	dir := t.TempDir()
	configPath = filepath.Join(dir, "safires.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("fires: fires.csv\ncountries: countries.geojson\nthreshold: 80\nborder_radius: 2000\n"), 0o600))

	require.NoError(t, runCmd.ParseFlags([]string{"--threshold", "90", "--out", "/tmp/safires-out"}))

	cfg, err := loadRunConfig(runCmd.Flags())
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Threshold)
	assert.InDelta(t, 2000, cfg.BorderRadius, 0)
	assert.Equal(t, "/tmp/safires-out", cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, "fires.csv"), cfg.FiresPath)
}

func TestLoadRunConfig_Invalid(t *testing.T) {
	resetFlags(t)

	require.NoError(t, runCmd.ParseFlags([]string{"--fires", "f.csv", "--countries", "c.geojson", "--border-mode", "coast"}))

	_, err := loadRunConfig(runCmd.Flags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "border mode")
}

func TestRunAndStats(t *testing.T) {
	resetFlags(t)

	dir := t.TempDir()
	firesPath := filepath.Join(dir, "fires.csv")
	countriesPath := filepath.Join(dir, "countries.geojson")
	db := filepath.Join(dir, "safires.duckdb")

	require.NoError(t, os.WriteFile(firesPath, []byte(testFires), 0o600))
	require.NoError(t, os.WriteFile(countriesPath, []byte(testCountries), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{
		"run",
		"--fires", firesPath,
		"--countries", countriesPath,
		"--out", filepath.Join(dir, "out"),
		"--border-mode", "shared",
		"--xlsx=false",
		"--db-path", db,
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Brazil")
	assert.Contains(t, out.String(), "ALL")
	assert.FileExists(t, filepath.Join(dir, "out", "fires_by_country.csv"))

	out.Reset()
	rootCmd.SetArgs([]string{"stats", "--db-path", db})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "3 records, 2 assigned, 1 mismatches")

	out.Reset()
	rootCmd.SetArgs([]string{"stats", "runs", "--db-path", db})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), firesPath)

	out.Reset()
	rootCmd.SetArgs([]string{"countries", "list", "--countries", countriesPath, "--border-mode", "shared"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "2 countries, 1 shared border segments")
	assert.Contains(t, out.String(), "Bolivia")
}

func TestCountriesList_Country(t *testing.T) {
	resetFlags(t)

	countriesPath := filepath.Join(t.TempDir(), "countries.geojson")
	require.NoError(t, os.WriteFile(countriesPath, []byte(testCountries), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"countries", "list", "--countries", countriesPath, "--country", " BRAZIL "})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Brazil")
	assert.Contains(t, out.String(), "-10.000 -55.000")
	assert.NotContains(t, out.String(), "Bolivia")

	rootCmd.SetArgs([]string{"countries", "list", "--countries", countriesPath, "--country", "Peru"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `country "Peru" not found`)
}
