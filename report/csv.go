// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jcodagnone/safires/fires"
)

var recordHeader = []string{
	"record_id", "latitude", "longitude", "confidence", "acquisition_date", "acq_time",
	"satellite", "instrument", "daynight", "brightness", "frp",
	"country", "border_distance_m", "avg_distance_m", "h3_cell", "cluster_id",
}

// WriteRecords writes records to name as CSV.
func (w *Writer) WriteRecords(name string, records []*fires.EnrichedFireRecord) error {
	return w.write(name, func(out io.Writer) error {
		return WriteRecordsCSV(out, records)
	})
}

// WriteRecordsCSV writes records as CSV with a header row. Missing values are
// written as empty fields.
func WriteRecordsCSV(out io.Writer, records []*fires.EnrichedFireRecord) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(recordHeader); err != nil {
		return err
	}

	for _, r := range records {
		var acqTime string
		if r.AcquiredAt != nil {
			acqTime = r.AcquiredAt.Format("1504")
		}

		var cell string
		if r.H3Cell != 0 {
			cell = r.H3Cell.String()
		}

		row := []string{
			strconv.Itoa(r.RecordID),
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			strconv.Itoa(r.Confidence),
			r.AcquisitionDate.Format(time.DateOnly),
			acqTime,
			r.Satellite,
			r.Instrument,
			r.DayNight,
			formatOptional(r.Brightness, -1),
			formatOptional(r.FRP, -1),
			r.Country,
			formatOptional(r.BorderDistance, 3),
			formatOptional(r.AvgDistance, 3),
			cell,
			strconv.Itoa(r.ClusterID),
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteMismatches writes the geometry mismatches of a run to name.
func (w *Writer) WriteMismatches(name string, mismatches []*fires.FireError) error {
	return w.write(name, func(out io.Writer) error {
		return WriteMismatchesCSV(out, mismatches)
	})
}

// WriteMismatchesCSV writes one row per mismatch. Candidates are joined with
// a semicolon.
func WriteMismatchesCSV(out io.Writer, mismatches []*fires.FireError) error {
	cw := csv.NewWriter(out)

	if err := cw.Write([]string{"record_id", "latitude", "longitude", "reason", "candidates"}); err != nil {
		return err
	}

	for _, m := range mismatches {
		row := []string{
			strconv.Itoa(m.RecordID),
			formatFloat(m.Latitude),
			formatFloat(m.Longitude),
			string(m.Reason()),
			strings.Join(m.Candidates, ";"),
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteDistanceMatrix streams the point distance table to name and returns
// the number of rows written.
func (w *Writer) WriteDistanceMatrix(
	ctx context.Context,
	name string,
	records []*fires.EnrichedFireRecord,
	method fires.DistanceMethod,
	radius float64,
) (int, error) {
	n := 0

	err := w.write(name, func(out io.Writer) error {
		cw := csv.NewWriter(out)

		if err := cw.Write([]string{"input_id", "near_id", "distance_m"}); err != nil {
			return err
		}

		err := fires.EachDistance(ctx, records, method, radius, func(d fires.PointDistance) error {
			n++

			return cw.Write([]string{
				strconv.Itoa(d.InputID),
				strconv.Itoa(d.NearID),
				strconv.FormatFloat(d.Distance, 'f', 3, 64),
			})
		})
		if err != nil {
			return err
		}

		cw.Flush()

		return cw.Error()
	})

	return n, err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', prec, 64)
}
