// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/jcodagnone/safires/fires"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [run-id]",
	Short: "Per-country statistics of a stored run",
	Long: `Prints the per-country statistics of a run stored with --db-path. Without a
run id the most recent run is used.

$ safires stats --db-path safires.duckdb
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		var run *fires.Run
		if len(args) == 0 {
			run, err = repo.LatestRun()
		} else {
			run, err = repo.GetRun(args[0])
		}

		if err != nil {
			return err
		}

		stats, err := repo.CountryStats(run.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s (%s), %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.FiresPath)
		fmt.Fprintf(out, "%d records, %d assigned, %d mismatches, %d with confidence >= %d, %d within %.0fm of a %s border\n",
			run.RecordsRead, run.Assigned, run.Mismatched, run.HighConfidence, run.Threshold,
			run.NearBorder, run.BorderRadius, run.BorderMode)
		printSummary(cmd, stats)

		return nil
	},
}

var statsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the stored runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := repo.ListRuns()
		if err != nil {
			return err
		}

		t := newTable("Id", "Started", "Duration", "Records", "Assigned", "High conf.", "Near border", "Fires").
			alignRight(2, 3, 4, 5, 6)
		for _, r := range runs {
			t.add(
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.FinishedAt.Sub(r.StartedAt).String(),
				r.RecordsRead,
				r.Assigned,
				r.HighConfidence,
				r.NearBorder,
				r.FiresPath,
			)
		}

		t.print(cmd.OutOrStdout())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsRunsCmd)
}
