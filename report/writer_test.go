// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/safires/fires"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 {
	return &v
}

func testRecords(t *testing.T) []*fires.EnrichedFireRecord {
	t.Helper()

	at := time.Date(2018, 12, 1, 9, 30, 0, 0, time.UTC)
	day := time.Date(2018, 12, 1, 0, 0, 0, 0, time.UTC)

	recs := []*fires.EnrichedFireRecord{
		{
			FireRecord: fires.FireRecord{
				RecordID: 1, Latitude: -10.5, Longitude: -55.2, Confidence: 100,
				AcquisitionDate: day, AcquiredAt: &at, Satellite: "Terra", Instrument: "MODIS",
				DayNight: "D", Brightness: ptr(330.1), FRP: ptr(25.3),
			},
			Country:        "Brazil",
			BorderDistance: ptr(500377.2),
			AvgDistance:    ptr(1234.5678),
			ClusterID:      1,
		},
		{
			FireRecord: fires.FireRecord{RecordID: 2, Latitude: 0, Longitude: 0, Confidence: 30, AcquisitionDate: day},
		},
	}

	require.NoError(t, fires.AssignCells(recs, 5))

	return recs
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return rows
}

func commit(t *testing.T, w *Writer) {
	t.Helper()

	_, err := w.Commit()
	require.NoError(t, err)
}

// entries lists the names in dir, staging directories included.
func entries(t *testing.T, dir string) []string {
	t.Helper()

	des, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}

	return names
}

func TestWriter_WriteRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, false)
	recs := testRecords(t)

	require.NoError(t, w.WriteRecords(FileByCountry, recs))
	commit(t, w)

	rows := readCSV(t, filepath.Join(dir, FileByCountry))
	require.Len(t, rows, 3)
	assert.Equal(t, recordHeader, rows[0])

	want := []string{
		"1", "-10.5", "-55.2", "100", "2018-12-01", "0930",
		"Terra", "MODIS", "D", "330.1", "25.3",
		"Brazil", "500377.200", "1234.568", recs[0].H3Cell.String(), "1",
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("record row mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"2", "0", "0", "30", "2018-12-01", "", "", "", "", "", "", "", "", "", recs[1].H3Cell.String(), "0"}, rows[2])
}

func TestWriter_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileHighConfidence)
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o600))

	w := NewWriter(dir, false)

	err := w.Check(FileByCountry, FileHighConfidence)
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))

	err = w.WriteRecords(FileHighConfidence, testRecords(t))
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	// with overwrite the file is replaced
	w = NewWriter(dir, true)
	require.NoError(t, w.Check(FileHighConfidence))
	require.NoError(t, w.WriteRecords(FileHighConfidence, nil))
	commit(t, w)
	assert.Len(t, readCSV(t, path), 1)
}

func TestWriter_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	w := NewWriter(file, true)

	err := w.Check(FileByCountry)
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))

	err = w.WriteMismatches(FileMismatches, nil)
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))
}

func TestWriter_Check_MissingDir(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "new"), false)
	assert.NoError(t, w.Check(FileByCountry))
}

func TestWriteMismatchesCSV(t *testing.T) {
	mismatches := []*fires.FireError{
		fires.NewGeometryMismatchError(&fires.FireRecord{RecordID: 4, Latitude: -10, Longitude: -60}, []string{"Brazil", "Bolivia"}),
		fires.NewGeometryMismatchError(&fires.FireRecord{RecordID: 9, Latitude: 0, Longitude: 0}, nil),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMismatchesCSV(&buf, mismatches))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"record_id", "latitude", "longitude", "reason", "candidates"},
		{"4", "-10", "-60", "multiple", "Brazil;Bolivia"},
		{"9", "0", "0", "none", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("mismatches mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_WriteDistanceMatrix(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	day := time.Date(2018, 12, 1, 0, 0, 0, 0, time.UTC)
	recs := []*fires.EnrichedFireRecord{
		{FireRecord: fires.FireRecord{RecordID: 1, AcquisitionDate: day}},
		{FireRecord: fires.FireRecord{RecordID: 2, Longitude: 1, AcquisitionDate: day}},
		{FireRecord: fires.FireRecord{RecordID: 3, Longitude: 3, AcquisitionDate: day}},
	}

	n, err := w.WriteDistanceMatrix(context.Background(), FileDistances, recs, fires.DistanceHaversine, 150000)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	commit(t, w)

	rows := readCSV(t, filepath.Join(dir, FileDistances))
	assert.Equal(t, [][]string{
		{"input_id", "near_id", "distance_m"},
		{"1", "2", "111194.927"},
		{"2", "1", "111194.927"},
	}, rows)
}

func TestWriter_WriteDistanceMatrix_Cancelled(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WriteDistanceMatrix(ctx, FileDistances, testRecords(t), fires.DistanceHaversine, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, fires.IsOutputWrite(err))

	_, statErr := os.Stat(filepath.Join(dir, FileDistances))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, w.Abort())
	assert.Empty(t, entries(t, dir))
}

func TestWriter_StagedUntilCommit(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	require.NoError(t, w.WriteRecords(FileByCountry, testRecords(t)))
	require.NoError(t, w.WriteMismatches(FileMismatches, nil))

	_, err := os.Stat(filepath.Join(dir, FileByCountry))
	assert.True(t, os.IsNotExist(err))

	paths, err := w.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, FileByCountry), filepath.Join(dir, FileMismatches)}, paths)
	assert.Equal(t, []string{FileByCountry, FileMismatches}, entries(t, dir))
}

func TestWriter_LateFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)
	recs := testRecords(t)

	require.NoError(t, w.WriteRecords(FileByCountry, recs))
	require.NoError(t, w.WriteRecords(FileHighConfidence, recs))
	require.NoError(t, w.WriteMismatches(FileMismatches, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WriteDistanceMatrix(ctx, FileDistances, recs, fires.DistanceHaversine, 0)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, w.Abort())
	assert.Empty(t, entries(t, dir))

	// the next run starts from a clean directory
	require.NoError(t, w.Check(FileByCountry, FileHighConfidence, FileMismatches))
}

func TestWriter_CommitFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, true)
	recs := testRecords(t)

	require.NoError(t, w.WriteRecords(FileByCountry, recs))
	require.NoError(t, w.WriteGeoJSON(FileGeoJSON, recs))

	// a directory shows up where the GeoJSON goes after the outputs were staged
	blocker := filepath.Join(dir, FileGeoJSON)
	require.NoError(t, os.Mkdir(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), nil, 0o600))

	_, err := w.Commit()
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))

	assert.Equal(t, []string{FileGeoJSON}, entries(t, dir))
	assert.FileExists(t, filepath.Join(blocker, "keep"))
}

func TestWriter_CommitKeepsExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	require.NoError(t, w.WriteRecords(FileByCountry, testRecords(t)))
	require.NoError(t, w.WriteMismatches(FileMismatches, nil))

	path := filepath.Join(dir, FileMismatches)
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o600))

	_, err := w.Commit()
	require.Error(t, err)
	assert.True(t, fires.IsOutputWrite(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
	assert.Equal(t, []string{FileMismatches}, entries(t, dir))
}

func TestWriter_Check_DirectoryDestination(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileGeoJSON), 0o755))

	for _, overwrite := range []bool{false, true} {
		err := NewWriter(dir, overwrite).Check(FileByCountry, FileGeoJSON)
		require.Error(t, err)
		assert.True(t, fires.IsOutputWrite(err))
		assert.Contains(t, err.Error(), FileGeoJSON)
	}

	assert.NoError(t, NewWriter(dir, true).Check(FileByCountry))
}

func TestWriter_WriteGeoJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)
	recs := testRecords(t)

	require.NoError(t, w.WriteGeoJSON(FileGeoJSON, recs))
	commit(t, w)

	data, err := os.ReadFile(filepath.Join(dir, FileGeoJSON))
	require.NoError(t, err)
	require.True(t, json.Valid(data))

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, orb.Point{-55.2, -10.5}, first.Geometry)
	assert.Equal(t, "Brazil", first.Properties.MustString("country"))
	assert.InDelta(t, 100, first.Properties.MustFloat64("confidence"), 0)
	assert.Equal(t, "2018-12-01T09:30:00Z", first.Properties.MustString("acquired_at"))

	second := fc.Features[1].Properties
	_, hasCountry := second["country"]
	assert.False(t, hasCountry)
}

func TestWriter_WriteSummaryXLSX(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)
	recs := testRecords(t)

	s := Summary{
		Countries: fires.Summarize(recs),
		Daily:     fires.DailyCounts(recs),
		Cells:     fires.CellCounts(recs),
	}
	require.NoError(t, w.WriteSummaryXLSX(FileSummary, s))
	commit(t, w)

	f, err := excelize.OpenFile(filepath.Join(dir, FileSummary))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetDaily, SheetCells}, f.GetSheetList())

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "country", rows[0][0])
	assert.Equal(t, []string{"Brazil", "(none)", "ALL"}, []string{rows[1][0], rows[2][0], rows[3][0]})
	assert.Equal(t, "2", rows[3][1])

	daily, err := f.GetRows(SheetDaily)
	require.NoError(t, err)
	assert.Len(t, daily, 3)

	cells, err := f.GetRows(SheetCells)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, "5", cells[1][1])
}
