// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the settings of a pipeline run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jcodagnone/safires/fires"
	"github.com/jcodagnone/safires/spatial"
	"gopkg.in/yaml.v3"
)

// Config is passed explicitly to every stage of a run.
type Config struct {
	FiresPath       string `yaml:"fires"`            // input detections CSV
	CountriesPath   string `yaml:"countries"`        // GeoJSON or name,wkt CSV
	CountryProperty string `yaml:"country_property"` // GeoJSON property holding the name
	OutputDir       string `yaml:"out"`              // destination directory
	Overwrite       bool   `yaml:"overwrite"`        // replace existing outputs
	DBPath          string `yaml:"db_path"`          // optional DuckDB file
	MetricsFile     string `yaml:"metrics_file"`     // optional node-exporter textfile

	Threshold       int     `yaml:"threshold"`        // minimum confidence, 0-100
	BorderRadius    float64 `yaml:"border_radius"`    // meters
	BorderMode      string  `yaml:"border_mode"`      // all | shared
	DistanceMethod  string  `yaml:"distance_method"`  // haversine | planar
	DistanceMatrix  bool    `yaml:"distance_matrix"`  // write point_distances.csv
	MatrixRadius    float64 `yaml:"matrix_radius"`    // meters, 0 = unlimited
	H3Resolution    int     `yaml:"h3_resolution"`    // 0-15
	ClusterDistance float64 `yaml:"cluster_distance"` // meters, 0 = disabled

	XLSX    bool `yaml:"xlsx"`    // write summary.xlsx
	GeoJSON bool `yaml:"geojson"` // write fires.geojson
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		OutputDir:      "out",
		Threshold:      fires.DefaultConfidenceThreshold,
		BorderRadius:   fires.DefaultBorderRadius,
		BorderMode:     string(spatial.BorderModeAll),
		DistanceMethod: string(fires.DistanceHaversine),
		H3Resolution:   fires.DefaultH3Resolution,
		XLSX:           true,
		GeoJSON:        true,
	}
}

// Load reads a YAML file on top of Default. Unknown keys are an error.
// Relative input paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&c.FiresPath, &c.CountriesPath, &c.OutputDir, &c.DBPath, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	return c, nil
}

// Parse decodes YAML on top of Default.
func Parse(b []byte) (Config, error) {
	c := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	return c, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error

	if c.FiresPath == "" {
		errs = append(errs, errors.New("fires path is required"))
	}

	if c.CountriesPath == "" {
		errs = append(errs, errors.New("countries path is required"))
	}

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Threshold < 0 || c.Threshold > 100 {
		errs = append(errs, fmt.Errorf("threshold must be between 0 and 100 (got %d)", c.Threshold))
	}

	if c.BorderRadius < 0 {
		errs = append(errs, fmt.Errorf("border radius must not be negative (got %g)", c.BorderRadius))
	}

	if c.MatrixRadius < 0 {
		errs = append(errs, fmt.Errorf("matrix radius must not be negative (got %g)", c.MatrixRadius))
	}

	if c.ClusterDistance < 0 {
		errs = append(errs, fmt.Errorf("cluster distance must not be negative (got %g)", c.ClusterDistance))
	}

	if c.H3Resolution < 0 || c.H3Resolution > 15 {
		errs = append(errs, fmt.Errorf("h3 resolution must be between 0 and 15 (got %d)", c.H3Resolution))
	}

	if _, err := spatial.ParseBorderMode(c.BorderMode); err != nil {
		errs = append(errs, err)
	}

	if _, err := fires.ParseDistanceMethod(c.DistanceMethod); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Mode returns the parsed border mode. Call Validate first.
func (c *Config) Mode() spatial.BorderMode {
	m, _ := spatial.ParseBorderMode(c.BorderMode)

	return m
}

// Method returns the parsed distance method. Call Validate first.
func (c *Config) Method() fires.DistanceMethod {
	m, _ := fires.ParseDistanceMethod(c.DistanceMethod)

	return m
}
