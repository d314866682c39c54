// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs the fire analysis from input files to reports.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jcodagnone/safires/config"
	"github.com/jcodagnone/safires/fires"
	"github.com/jcodagnone/safires/observability"
	"github.com/jcodagnone/safires/report"
	"github.com/jcodagnone/safires/spatial"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Stage names, as reported in logs and the stage duration metric.
const (
	StageCountries = "countries"
	StageIngest    = "ingest"
	StageEnrich    = "enrich"
	StageIndex     = "index"
	StageDistances = "distances"
	StageWrite     = "write"
	StagePersist   = "persist"
)

// Result is everything a run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Countries      int
	BorderSegments int

	// Records holds every enriched record ordered by country, then record id.
	Records        []*fires.EnrichedFireRecord
	Mismatches     []*fires.FireError
	HighConfidence []*fires.EnrichedFireRecord
	NearBorder     []*fires.EnrichedFireRecord
	Clusters       int
	DistanceRows   int
	Summary        []fires.CountrySummary

	// Outputs lists the paths written, in write order.
	Outputs []string
}

// Pipeline runs one analysis over the files named by its Config.
type Pipeline struct {
	cfg      config.Config
	clock    clockwork.Clock
	repo     fires.FireRepository
	metrics  *observability.Metrics
	runID    string
	progress bool
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock sets the time source used for run timestamps and stage timings.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRepository stores every run in repo.
func WithRepository(repo fires.FireRepository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithMetrics records run metrics in m instead of a private set.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRunID fixes the run id instead of generating a random UUID.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithProgress forces the progress bar on or off. By default it is shown
// only when stderr is a terminal.
func WithProgress(enabled bool) Option {
	return func(p *Pipeline) { p.progress = enabled }
}

// New returns a Pipeline for cfg. The configuration must be valid.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		progress: isatty.IsTerminal(os.Stderr.Fd()),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = observability.NewMetrics()
	}

	if p.runID == "" {
		p.runID = uuid.NewString()
	}

	return p
}

// Metrics returns the metrics the pipeline records into.
func (p *Pipeline) Metrics() *observability.Metrics {
	return p.metrics
}

// Run executes every stage in order. The context is checked between stages
// and inside the quadratic ones. A geometry mismatch never stops a run; a
// malformed input or an unwritable output does.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{RunID: p.runID, StartedAt: p.clock.Now()}

	if p.cfg.MetricsFile != "" {
		defer func() {
			p.metrics.Finish(p.clock.Now(), err == nil)

			if werr := p.metrics.WriteTextfile(p.cfg.MetricsFile); werr != nil {
				log.Printf("Failed to write metrics: %v", werr)
			}
		}()
	}

	writer := report.NewWriter(p.cfg.OutputDir, p.cfg.Overwrite)
	if err := writer.Check(p.outputNames()...); err != nil {
		return nil, err
	}

	countries, borders, err := p.loadCountries(ctx, res)
	if err != nil {
		return nil, err
	}

	records, err := p.ingest(ctx)
	if err != nil {
		return nil, err
	}

	enriched, err := p.enrich(ctx, res, fires.NewEnricher(countries, borders), records)
	if err != nil {
		return nil, err
	}

	if err := p.index(ctx, res, enriched); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, StageDistances, func() error {
		return fires.AverageDistances(ctx, enriched, p.cfg.Method())
	}); err != nil {
		return nil, err
	}

	res.Records = fires.SortByCountry(enriched)
	res.HighConfidence = fires.FilterByConfidence(res.Records, p.cfg.Threshold)
	res.NearBorder = fires.FilterNearBorder(res.Records, p.cfg.BorderRadius)
	res.Summary = fires.Summarize(res.Records)

	p.metrics.HighConfidence.Add(float64(len(res.HighConfidence)))
	p.metrics.NearBorder.Add(float64(len(res.NearBorder)))
	log.Printf("%d fires with confidence >= %d, %d within %.0fm of a border",
		len(res.HighConfidence), p.cfg.Threshold, len(res.NearBorder), p.cfg.BorderRadius)

	if err := p.stage(ctx, StageWrite, func() error {
		return p.write(ctx, writer, res)
	}); err != nil {
		return nil, err
	}

	res.FinishedAt = p.clock.Now()

	if p.repo != nil {
		if err := p.stage(ctx, StagePersist, func() error {
			return p.repo.SaveRun(p.run(res), res.Records)
		}); err != nil {
			return nil, fmt.Errorf("saving run %s: %w", res.RunID, err)
		}
	}

	log.Printf("Run %s finished in %s", res.RunID, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))

	return res, nil
}

// stage runs fn after checking ctx and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := p.clock.Now()
	err := fn()
	p.metrics.ObserveStage(name, p.clock.Since(start))

	return err
}

func (p *Pipeline) loadCountries(ctx context.Context, res *Result) (*spatial.CountrySet, *spatial.BorderSet, error) {
	var (
		countries *spatial.CountrySet
		borders   *spatial.BorderSet
	)

	err := p.stage(ctx, StageCountries, func() error {
		var err error

		countries, err = spatial.LoadCountries(p.cfg.CountriesPath, p.cfg.CountryProperty)
		if err != nil {
			return fmt.Errorf("loading countries: %w", err)
		}

		borders = spatial.NewBorderSet(countries, p.cfg.Mode())

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	res.Countries = countries.Len()
	res.BorderSegments = borders.Len()
	p.metrics.Countries.Set(float64(res.Countries))
	p.metrics.BorderSegments.Set(float64(res.BorderSegments))
	log.Printf("Loaded %d countries and %d %s border segments from %s",
		res.Countries, res.BorderSegments, borders.Mode(), p.cfg.CountriesPath)

	return countries, borders, nil
}

func (p *Pipeline) ingest(ctx context.Context) ([]*fires.FireRecord, error) {
	var records []*fires.FireRecord

	err := p.stage(ctx, StageIngest, func() error {
		var err error
		records, err = fires.ReadCSVFile(p.cfg.FiresPath)

		return err
	})
	if err != nil {
		return nil, err
	}

	p.metrics.RecordsRead.Add(float64(len(records)))
	log.Printf("Read %d fire records from %s", len(records), p.cfg.FiresPath)

	return records, nil
}

func (p *Pipeline) enrich(
	ctx context.Context,
	res *Result,
	enricher *fires.Enricher,
	records []*fires.FireRecord,
) ([]*fires.EnrichedFireRecord, error) {
	var enriched []*fires.EnrichedFireRecord

	var bar *progressbar.ProgressBar
	if p.progress {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Enriching fires"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	err := p.stage(ctx, StageEnrich, func() error {
		var err error

		enriched, res.Mismatches, err = enricher.EnrichAll(ctx, records, func(_ *fires.EnrichedFireRecord, mismatch *fires.FireError) error {
			if mismatch != nil {
				p.metrics.Mismatches.WithLabelValues(string(mismatch.Reason())).Inc()

				if bar == nil {
					log.Printf("Geometry mismatch: %v", mismatch)
				}
			}

			if bar != nil {
				if err := bar.Add(1); err != nil {
					return fmt.Errorf("updating progress bar: %w", err)
				}
			}

			return nil
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	assigned := len(enriched) - len(res.Mismatches)
	p.metrics.RecordsAssigned.Add(float64(assigned))
	log.Printf("Assigned %d fires to a country, %d geometry mismatches", assigned, len(res.Mismatches))

	return enriched, nil
}

func (p *Pipeline) index(ctx context.Context, res *Result, enriched []*fires.EnrichedFireRecord) error {
	return p.stage(ctx, StageIndex, func() error {
		if err := fires.AssignCells(enriched, p.cfg.H3Resolution); err != nil {
			return err
		}

		res.Clusters = fires.Cluster(enriched, p.cfg.ClusterDistance, p.cfg.Method())
		if res.Clusters > 0 {
			log.Printf("Grouped fires into %d clusters (linkage %.0fm)", res.Clusters, p.cfg.ClusterDistance)
		}

		return nil
	})
}

func (p *Pipeline) outputNames() []string {
	names := []string{
		report.FileByCountry,
		report.FileHighConfidence,
		report.FileNearBorder,
		report.FileMismatches,
	}

	if p.cfg.DistanceMatrix {
		names = append(names, report.FileDistances)
	}

	if p.cfg.GeoJSON {
		names = append(names, report.FileGeoJSON)
	}

	if p.cfg.XLSX {
		names = append(names, report.FileSummary)
	}

	return names
}

// write stages every output and moves them into place once all of them were
// written. On failure nothing new is left in the output directory.
func (p *Pipeline) write(ctx context.Context, w *report.Writer, res *Result) (err error) {
	defer func() {
		if err == nil {
			return
		}

		if aerr := w.Abort(); aerr != nil {
			log.Printf("Failed to discard partial outputs: %v", aerr)
		}
	}()

	for _, out := range []struct {
		name    string
		records []*fires.EnrichedFireRecord
	}{
		{report.FileByCountry, res.Records},
		{report.FileHighConfidence, res.HighConfidence},
		{report.FileNearBorder, res.NearBorder},
	} {
		if err := w.WriteRecords(out.name, out.records); err != nil {
			return err
		}
	}

	if err := w.WriteMismatches(report.FileMismatches, res.Mismatches); err != nil {
		return err
	}

	if p.cfg.DistanceMatrix {
		n, err := w.WriteDistanceMatrix(ctx, report.FileDistances, res.Records, p.cfg.Method(), p.cfg.MatrixRadius)
		if err != nil {
			return err
		}

		res.DistanceRows = n
	}

	if p.cfg.GeoJSON {
		if err := w.WriteGeoJSON(report.FileGeoJSON, res.Records); err != nil {
			return err
		}
	}

	if p.cfg.XLSX {
		s := report.Summary{
			Countries: res.Summary,
			Daily:     fires.DailyCounts(res.Records),
			Cells:     fires.CellCounts(res.Records),
		}
		if err := w.WriteSummaryXLSX(report.FileSummary, s); err != nil {
			return err
		}
	}

	if res.Outputs, err = w.Commit(); err != nil {
		return err
	}

	log.Printf("Wrote %d files to %s", len(res.Outputs), p.cfg.OutputDir)

	return nil
}

func (p *Pipeline) run(res *Result) *fires.Run {
	return &fires.Run{
		ID:             res.RunID,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		FiresPath:      p.cfg.FiresPath,
		CountriesPath:  p.cfg.CountriesPath,
		Threshold:      p.cfg.Threshold,
		BorderRadius:   p.cfg.BorderRadius,
		BorderMode:     string(p.cfg.Mode()),
		RecordsRead:    len(res.Records),
		Assigned:       len(res.Records) - len(res.Mismatches),
		Mismatched:     len(res.Mismatches),
		HighConfidence: len(res.HighConfidence),
		NearBorder:     len(res.NearBorder),
	}
}
