// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/safires/fires"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "safires",
	Short: "South American wildfire detections by country and border proximity",
	Long: `
safires reads satellite active-fire detections (NASA FIRMS MODIS/VIIRS CSV
exports), assigns each detection to the country polygon that contains it,
measures how far it is from the nearest border and writes the high confidence
and near-border fires as CSV, GeoJSON and an XLSX summary.
`,
	SilenceUsage: true,
}

var (
	Version = "dev"

	dbPath string
)

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var errNoDatabase = errors.New("no database configured, use --db-path")

// openRepository opens the DuckDB database at path and makes sure the schema
// exists. The caller closes the returned db.
func openRepository(path string) (*sql.DB, fires.FireRepository, error) {
	if path == "" {
		return nil, nil, errNoDatabase
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := fires.NewSQLFireRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}

	return db, repo, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"",
		"DuckDB file where runs are stored (runs are not stored when empty)",
	)
}
