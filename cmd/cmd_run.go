// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jcodagnone/safires/config"
	"github.com/jcodagnone/safires/fires"
	"github.com/jcodagnone/safires/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configPath string
	runFlags   = config.Default()
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the whole analysis and writes the reports",
	Long: `Reads the fires CSV and the country polygons, assigns every fire to a
country, computes border and pairwise distances, and writes the reports to the
output directory.

Settings come from the defaults, then the --config YAML file, then the flags
given on the command line.

$ safires run --fires firms_2018.csv --countries south_america.geojson --out out
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadRunConfig(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := []pipeline.Option{}

		if cfg.DBPath != "" {
			db, repo, err := openRepository(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			opts = append(opts, pipeline.WithRepository(repo))
		}

		res, err := pipeline.New(cfg, opts...).Run(ctx)
		if err != nil {
			return err
		}

		printSummary(cmd, res.Summary)

		return nil
	},
}

// loadRunConfig layers defaults, the config file and the flags the user set.
func loadRunConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	overrides := map[string]func(){
		"fires":            func() { cfg.FiresPath = runFlags.FiresPath },
		"countries":        func() { cfg.CountriesPath = runFlags.CountriesPath },
		"country-property": func() { cfg.CountryProperty = runFlags.CountryProperty },
		"out":              func() { cfg.OutputDir = runFlags.OutputDir },
		"overwrite":        func() { cfg.Overwrite = runFlags.Overwrite },
		"threshold":        func() { cfg.Threshold = runFlags.Threshold },
		"border-radius":    func() { cfg.BorderRadius = runFlags.BorderRadius },
		"border-mode":      func() { cfg.BorderMode = runFlags.BorderMode },
		"distance-method":  func() { cfg.DistanceMethod = runFlags.DistanceMethod },
		"distance-matrix":  func() { cfg.DistanceMatrix = runFlags.DistanceMatrix },
		"matrix-radius":    func() { cfg.MatrixRadius = runFlags.MatrixRadius },
		"h3-resolution":    func() { cfg.H3Resolution = runFlags.H3Resolution },
		"cluster-distance": func() { cfg.ClusterDistance = runFlags.ClusterDistance },
		"xlsx":             func() { cfg.XLSX = runFlags.XLSX },
		"geojson":          func() { cfg.GeoJSON = runFlags.GeoJSON },
		"metrics-file":     func() { cfg.MetricsFile = runFlags.MetricsFile },
		"db-path":          func() { cfg.DBPath = dbPath },
	}

	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func printSummary(cmd *cobra.Command, summary []fires.CountrySummary) {
	t := newTable("Country", "Fires", "Max conf.", "Mean conf.", "At max", "First", "Last").alignRight(1, 2, 3, 4)

	for _, s := range summary {
		first, last := "", ""
		if s.FireCount > 0 {
			first, last = s.FirstDate.Format("2006-01-02"), s.LastDate.Format("2006-01-02")
		}

		t.add(s.Country, s.FireCount, s.MaxConfidence, fmt.Sprintf("%.1f", s.MeanConfidence), s.MaxConfidenceCount, first, last)
	}

	t.print(cmd.OutOrStdout())
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML file with run settings")
	f.StringVar(&runFlags.FiresPath, "fires", runFlags.FiresPath, "Fire detections CSV")
	f.StringVar(&runFlags.CountriesPath, "countries", runFlags.CountriesPath, "Country polygons, GeoJSON or name,wkt CSV")
	f.StringVar(&runFlags.CountryProperty, "country-property", runFlags.CountryProperty, "GeoJSON property holding the country name (detected when empty)")
	f.StringVar(&runFlags.OutputDir, "out", runFlags.OutputDir, "Output directory")
	f.BoolVar(&runFlags.Overwrite, "overwrite", runFlags.Overwrite, "Replace existing output files")
	f.IntVar(&runFlags.Threshold, "threshold", runFlags.Threshold, "Minimum confidence of the high confidence report (0-100)")
	f.Float64Var(&runFlags.BorderRadius, "border-radius", runFlags.BorderRadius, "Border proximity radius in meters")
	f.StringVar(&runFlags.BorderMode, "border-mode", runFlags.BorderMode, "Edges that count as border: all or shared")
	f.StringVar(&runFlags.DistanceMethod, "distance-method", runFlags.DistanceMethod, "Pairwise distance: haversine or planar")
	f.BoolVar(&runFlags.DistanceMatrix, "distance-matrix", runFlags.DistanceMatrix, "Write the point distance table")
	f.Float64Var(&runFlags.MatrixRadius, "matrix-radius", runFlags.MatrixRadius, "Search radius of the point distance table in meters (0 = all pairs)")
	f.IntVar(&runFlags.H3Resolution, "h3-resolution", runFlags.H3Resolution, "H3 resolution of the cell summary (0-15)")
	f.Float64Var(&runFlags.ClusterDistance, "cluster-distance", runFlags.ClusterDistance, "Linkage distance in meters for fire clusters (0 = disabled)")
	f.BoolVar(&runFlags.XLSX, "xlsx", runFlags.XLSX, "Write the summary workbook")
	f.BoolVar(&runFlags.GeoJSON, "geojson", runFlags.GeoJSON, "Write the GeoJSON feature collection")
	f.StringVar(&runFlags.MetricsFile, "metrics-file", runFlags.MetricsFile, "Write run metrics to this node-exporter textfile")
}
