// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jcodagnone/safires/fires"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the summary workbook.
const (
	SheetSummary = "Summary"
	SheetDaily   = "Daily"
	SheetCells   = "Cells"
)

// Summary is what goes into the summary workbook.
type Summary struct {
	Countries []fires.CountrySummary
	Daily     []fires.DailyCount
	Cells     []fires.CellCount
}

// WriteSummaryXLSX writes the summary workbook to name.
func (w *Writer) WriteSummaryXLSX(name string, s Summary) error {
	return w.write(name, func(out io.Writer) error {
		return WriteSummaryWorkbook(out, s)
	})
}

// WriteSummaryWorkbook writes a workbook with one sheet per table.
func WriteSummaryWorkbook(out io.Writer, s Summary) (err error) {
	f := excelize.NewFile()
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summary := [][]any{{"country", "fire_count", "max_confidence", "mean_confidence", "max_confidence_count", "first_date", "last_date"}}
	for _, c := range s.Countries {
		summary = append(summary, []any{
			c.Country, c.FireCount, c.MaxConfidence, c.MeanConfidence, c.MaxConfidenceCount,
			formatDate(c.FirstDate), formatDate(c.LastDate),
		})
	}

	daily := [][]any{{"country", "acquisition_date", "fire_count"}}
	for _, d := range s.Daily {
		daily = append(daily, []any{d.Country, formatDate(d.Date), d.Count})
	}

	cells := [][]any{{"h3_cell", "resolution", "fire_count", "max_confidence", "latitude", "longitude"}}
	for _, c := range s.Cells {
		center, err := c.Cell.LatLng()
		if err != nil {
			return fmt.Errorf("cell %s: %w", c.Cell, err)
		}

		cells = append(cells, []any{c.Cell.String(), c.Cell.Resolution(), c.Count, c.MaxConfidence, center.Lat, center.Lng})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summary},
		{SheetDaily, daily},
		{SheetCells, cells},
	} {
		if err := writeSheet(f, sheet.name, sheet.rows, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.name, err)
		}
	}

	f.SetActiveSheet(0)

	_, err = f.WriteTo(out)

	return err
}

func writeSheet(f *excelize.File, name string, rows [][]any, headerStyle int) error {
	if idx, err := f.GetSheetIndex(name); err != nil {
		return err
	} else if idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}

	return f.SetRowStyle(name, 1, 1, headerStyle)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.DateOnly)
}
