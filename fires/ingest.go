// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jcodagnone/safires/utils/textutils"
)

// Column names as they appear, after normalization, in the input header.
const (
	ColumnLatitude        = "latitude"
	ColumnLongitude       = "longitude"
	ColumnConfidence      = "confidence"
	ColumnAcquisitionDate = "acquisition_date"
	ColumnAcquisitionTime = "acq_time"
	ColumnSatellite       = "satellite"
	ColumnInstrument      = "instrument"
	ColumnBrightness      = "brightness"
	ColumnFRP             = "frp"
	ColumnDayNight        = "daynight"
)

var requiredColumns = []string{
	ColumnLatitude,
	ColumnLongitude,
	ColumnConfidence,
	ColumnAcquisitionDate,
}

// columnAliases maps FIRMS export names to the canonical ones.
var columnAliases = map[string]string{
	"acq_date":   ColumnAcquisitionDate,
	"lat":        ColumnLatitude,
	"lon":        ColumnLongitude,
	"bright_ti4": ColumnBrightness,
}

var dateLayouts = []string{"2006-01-02", "2006/01/02"}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) ([]*FireRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening fires file: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return records, nil
}

// ReadCSV parses fire detections, one FireRecord per data row. The first
// invalid row stops the read with a MalformedInputError naming the line and
// column. A header with no rows yields no records and no error.
func ReadCSV(r io.Reader) ([]*FireRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, NewMalformedInputError(1, "", "missing header", nil)
	}

	if err != nil {
		return nil, csvError(err)
	}

	cols := make(map[string]int, len(header))

	for i, h := range header {
		name := textutils.NormalizeHeader(h)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}

		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, NewMalformedInputError(1, name, "required column is missing", nil)
		}
	}

	p := rowParser{cols: cols}

	var records []*FireRecord

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, csvError(err)
		}

		line, _ := reader.FieldPos(0)
		p.row, p.line = row, line

		rec, err := p.parse(len(records) + 1)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return NewMalformedInputError(pe.Line, "", "invalid csv", pe.Err)
	}

	return fmt.Errorf("reading csv: %w", err)
}

type rowParser struct {
	cols map[string]int
	row  []string
	line int
}

func (p *rowParser) field(name string) (string, bool) {
	i, ok := p.cols[name]
	if !ok || i >= len(p.row) {
		return "", false
	}

	return strings.TrimSpace(p.row[i]), true
}

func (p *rowParser) fail(column, message string, err error) error {
	return NewMalformedInputError(p.line, column, message, err)
}

func (p *rowParser) parse(id int) (*FireRecord, error) {
	rec := &FireRecord{RecordID: id}

	var err error

	if rec.Latitude, err = p.coordinate(ColumnLatitude, 90); err != nil {
		return nil, err
	}

	if rec.Longitude, err = p.coordinate(ColumnLongitude, 180); err != nil {
		return nil, err
	}

	if rec.Confidence, err = p.confidence(); err != nil {
		return nil, err
	}

	if rec.AcquisitionDate, err = p.date(); err != nil {
		return nil, err
	}

	if rec.AcquiredAt, err = p.acquiredAt(rec.AcquisitionDate); err != nil {
		return nil, err
	}

	if rec.Brightness, err = p.optionalFloat(ColumnBrightness); err != nil {
		return nil, err
	}

	if rec.FRP, err = p.optionalFloat(ColumnFRP); err != nil {
		return nil, err
	}

	rec.Satellite, _ = p.field(ColumnSatellite)
	rec.Instrument, _ = p.field(ColumnInstrument)
	rec.DayNight, _ = p.field(ColumnDayNight)

	return rec, nil
}

func (p *rowParser) coordinate(column string, limit float64) (float64, error) {
	s, _ := p.field(column)
	if s == "" {
		return 0, p.fail(column, "value is empty", nil)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, p.fail(column, fmt.Sprintf("%q is not a number", s), nil)
	}

	if v < -limit || v > limit {
		return 0, p.fail(column, fmt.Sprintf("must be between %g and %g (got %g)", -limit, limit, v), nil)
	}

	return v, nil
}

func (p *rowParser) confidence() (int, error) {
	s, _ := p.field(ColumnConfidence)

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.fail(ColumnConfidence, fmt.Sprintf("%q is not an integer", s), nil)
	}

	if v < 0 || v > 100 {
		return 0, p.fail(ColumnConfidence, fmt.Sprintf("must be between 0 and 100 (got %d)", v), nil)
	}

	return v, nil
}

func (p *rowParser) date() (time.Time, error) {
	s, _ := p.field(ColumnAcquisitionDate)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, p.fail(ColumnAcquisitionDate, fmt.Sprintf("%q is not a date", s), nil)
}

// acquiredAt combines the date with the HHMM acquisition time. Three digit
// values are zero padded the way FIRMS writes them ("930" is 09:30).
func (p *rowParser) acquiredAt(date time.Time) (*time.Time, error) {
	s, ok := p.field(ColumnAcquisitionTime)
	if !ok || s == "" {
		return nil, nil
	}

	if len(s) > 4 {
		return nil, p.fail(ColumnAcquisitionTime, fmt.Sprintf("%q is not a HHMM time", s), nil)
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil, p.fail(ColumnAcquisitionTime, fmt.Sprintf("%q is not a HHMM time", s), nil)
	}

	hh, mm := v/100, v%100
	if hh > 23 || mm > 59 {
		return nil, p.fail(ColumnAcquisitionTime, fmt.Sprintf("%q is not a HHMM time", s), nil)
	}

	t := date.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)

	return &t, nil
}

func (p *rowParser) optionalFloat(column string) (*float64, error) {
	s, ok := p.field(column)
	if !ok || s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, p.fail(column, fmt.Sprintf("%q is not a number", s), nil)
	}

	return &v, nil
}
