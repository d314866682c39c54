// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/safires/fires"
	"github.com/spf13/cobra"
)

// isTerminal reports whether f is a character device. On error we say that
// it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugPointCmd = &cobra.Command{
	Use:   "point",
	Short: "Locates points read from stdin",
	Long: `Reads one "lat lon" (or "lat,lon") pair per line and prints the country that
contains it and the distance to the nearest border.

$ echo "-10.5 -55.2" | safires debug point --countries south_america.geojson
-10.5 -55.2	Brazil	500377m
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		countries, borders, err := countriesOpts.load()
		if err != nil {
			return err
		}

		enricher := fires.NewEnricher(countries, borders)
		out := cmd.OutOrStdout()

		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter points to locate, one \"lat lon\" per line…")
		}

		scanner := bufio.NewScanner(input)
		for n := 1; scanner.Scan(); n++ {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			rec, err := parsePoint(n, line)
			if err != nil {
				fmt.Fprintf(out, "%s\t%q\n", line, err)

				continue
			}

			enriched, mismatch := enricher.Enrich(rec)

			distance := "-"
			if enriched.BorderDistance != nil {
				distance = fmt.Sprintf("%.0fm", *enriched.BorderDistance)
			}

			if mismatch != nil {
				fmt.Fprintf(out, "%s\t%s %s\t%s\n", line, mismatch.Reason(), strings.Join(mismatch.Candidates, ";"), distance)
			} else {
				fmt.Fprintf(out, "%s\t%s\t%s\n", line, enriched.Country, distance)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func parsePoint(n int, line string) (*fires.FireRecord, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return nil, fmt.Errorf("want \"lat lon\", got %d fields", len(fields))
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	rec := &fires.FireRecord{RecordID: n, Latitude: lat, Longitude: lng}
	if err := rec.Point().Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugPointCmd)
	addCountriesFlags(debugPointCmd)
}
