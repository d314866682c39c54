// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Run describes one pipeline execution as stored in the database.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	FiresPath      string
	CountriesPath  string
	Threshold      int
	BorderRadius   float64
	BorderMode     string
	RecordsRead    int
	Assigned       int
	Mismatched     int
	HighConfidence int
	NearBorder     int
}

// FireRepository persists runs and their enriched records.
type FireRepository interface {
	// CreateSchema creates the tables when missing.
	CreateSchema() error
	// SaveRun stores a run and its records, replacing a previous copy of the same run.
	SaveRun(run *Run, records []*EnrichedFireRecord) error
	// ListRuns returns every stored run, newest first.
	ListRuns() ([]Run, error)
	// GetRun returns a run by id, or ErrRunNotFound.
	GetRun(id string) (*Run, error)
	// LatestRun returns the most recent run, or ErrRunNotFound when there is none.
	LatestRun() (*Run, error)
	// CountryStats summarizes the records of a run per country, plus the AllCountries row.
	CountryStats(runID string) ([]CountrySummary, error)
}

type sqlFireRepository struct {
	db *sql.DB
}

// NewSQLFireRepository returns a FireRepository backed by a DuckDB database.
func NewSQLFireRepository(db *sql.DB) FireRepository {
	return &sqlFireRepository{db: db}
}

func (r *sqlFireRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			fires_path VARCHAR,
			countries_path VARCHAR,
			threshold INTEGER,
			border_radius DOUBLE,
			border_mode VARCHAR,
			records_read INTEGER,
			assigned INTEGER,
			mismatched INTEGER,
			high_confidence INTEGER,
			near_border INTEGER
		);

		CREATE TABLE IF NOT EXISTS fires (
			run_id VARCHAR NOT NULL,
			record_id INTEGER NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			point VARCHAR,
			confidence INTEGER NOT NULL,
			acquisition_date DATE NOT NULL,
			acquired_at TIMESTAMP,
			satellite VARCHAR,
			instrument VARCHAR,
			daynight VARCHAR,
			brightness DOUBLE,
			frp DOUBLE,
			country VARCHAR,
			border_distance DOUBLE,
			avg_distance DOUBLE,
			h3_cell UBIGINT,
			cluster_id INTEGER
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

func nve(v string) any {
	if v == "" {
		return nil
	}

	return v
}

func nf(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

func (r *sqlFireRepository) SaveRun(run *Run, records []*EnrichedFireRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for run %s: %w", run.ID, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for run %s: %v", run.ID, err)
		}
	}()

	if _, err := tx.Exec("DELETE FROM fires WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("deleting records for run %s: %w", run.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return fmt.Errorf("deleting run %s: %w", run.ID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, started_at, finished_at, fires_path, countries_path,
			threshold, border_radius, border_mode,
			records_read, assigned, mismatched, high_confidence, near_border
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.FiresPath, run.CountriesPath,
		run.Threshold, run.BorderRadius, run.BorderMode,
		run.RecordsRead, run.Assigned, run.Mismatched, run.HighConfidence, run.NearBorder,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fires (
			run_id, record_id, latitude, longitude, point, confidence,
			acquisition_date, acquired_at, satellite, instrument, daynight,
			brightness, frp, country, border_distance, avg_distance,
			h3_cell, cluster_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var acquiredAt sql.NullTime
		if rec.AcquiredAt != nil {
			acquiredAt = sql.NullTime{Time: rec.AcquiredAt.UTC(), Valid: true}
		}

		var cell any
		if rec.H3Cell != 0 {
			cell = uint64(rec.H3Cell)
		}

		_, err := stmt.Exec(
			run.ID,
			rec.RecordID,
			rec.Latitude,
			rec.Longitude,
			rec.Point(),
			rec.Confidence,
			rec.AcquisitionDate.Format(time.DateOnly),
			acquiredAt,
			nve(rec.Satellite),
			nve(rec.Instrument),
			nve(rec.DayNight),
			nf(rec.Brightness),
			nf(rec.FRP),
			nve(rec.Country),
			nf(rec.BorderDistance),
			nf(rec.AvgDistance),
			cell,
			rec.ClusterID,
		)
		if err != nil {
			return fmt.Errorf("inserting record %d for run %s: %w", rec.RecordID, run.ID, err)
		}
	}

	return tx.Commit()
}

const runColumns = `
	id, started_at, finished_at,
	COALESCE(fires_path, ''), COALESCE(countries_path, ''),
	threshold, border_radius, COALESCE(border_mode, ''),
	records_read, assigned, mismatched, high_confidence, near_border`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var run Run

	err := s.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt,
		&run.FiresPath, &run.CountriesPath,
		&run.Threshold, &run.BorderRadius, &run.BorderMode,
		&run.RecordsRead, &run.Assigned, &run.Mismatched, &run.HighConfidence, &run.NearBorder,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *sqlFireRepository) ListRuns() ([]Run, error) {
	rows, err := r.db.Query("SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (r *sqlFireRepository) GetRun(id string) (*Run, error) {
	return r.queryRun("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
}

func (r *sqlFireRepository) LatestRun() (*Run, error) {
	return r.queryRun("SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id LIMIT 1")
}

func (r *sqlFireRepository) queryRun(query string, args ...any) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	return run, nil
}

func (r *sqlFireRepository) CountryStats(runID string) ([]CountrySummary, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		WITH f AS (
			SELECT
				COALESCE(country, '%[1]s') AS country,
				confidence,
				acquisition_date,
				MAX(confidence) OVER (PARTITION BY country) AS top
			FROM fires
			WHERE run_id = ?
		)
		SELECT
			country,
			CAST(COUNT(*) AS INTEGER),
			CAST(MAX(confidence) AS INTEGER),
			AVG(confidence),
			CAST(COUNT(*) FILTER (WHERE confidence = top) AS INTEGER),
			MIN(acquisition_date),
			MAX(acquisition_date)
		FROM f
		GROUP BY country
		ORDER BY country = '%[1]s', country
	`, NoCountry), runID)
	if err != nil {
		return nil, fmt.Errorf("querying country stats: %w", err)
	}
	defer rows.Close()

	var stats []CountrySummary

	for rows.Next() {
		var s CountrySummary
		if err := rows.Scan(
			&s.Country, &s.FireCount, &s.MaxConfidence, &s.MeanConfidence,
			&s.MaxConfidenceCount, &s.FirstDate, &s.LastDate,
		); err != nil {
			return nil, fmt.Errorf("scanning country stats: %w", err)
		}

		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := r.globalStats(runID)
	if err != nil {
		return nil, err
	}

	return append(stats, all), nil
}

func (r *sqlFireRepository) globalStats(runID string) (CountrySummary, error) {
	all := CountrySummary{Country: AllCountries}

	var (
		mean        sql.NullFloat64
		first, last sql.NullTime
	)

	err := r.db.QueryRow(`
		SELECT
			CAST(COUNT(*) AS INTEGER),
			CAST(COALESCE(MAX(confidence), 0) AS INTEGER),
			AVG(confidence),
			CAST(COUNT(*) FILTER (WHERE confidence = (SELECT MAX(confidence) FROM fires WHERE run_id = ?)) AS INTEGER),
			MIN(acquisition_date),
			MAX(acquisition_date)
		FROM fires
		WHERE run_id = ?
	`, runID, runID).Scan(&all.FireCount, &all.MaxConfidence, &mean, &all.MaxConfidenceCount, &first, &last)
	if err != nil {
		return all, fmt.Errorf("querying global stats: %w", err)
	}

	all.MeanConfidence = mean.Float64
	all.FirstDate = first.Time
	all.LastDate = last.Time

	return all, nil
}
