package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trenderhq/trender/internal/warehouse"
)

// exportCmd exports snapshot facts to Parquet.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ranked snapshots to a Parquet file.",
	Long: `Export the snapshot fact table, denormalized against its
dimensions, plus the pipeline run stats, to Parquet files for
downstream analysis.

The Parquet output can be used with:
  - Apache Spark
  - Pandas (via pyarrow)
  - DuckDB
  - Any other Parquet-compatible tool

Examples:
  # Export everything
  trender export --output-file snapshots

  # Export a single day
  trender export --output-file snapshots --date 2026-08-25`,
	PreRunE: migrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := executeExport(); err != nil {
			logrus.WithError(err).Fatal("Export failed")
		}
	},
}

func executeExport() error {
	outputFile := viper.GetString("output-file")
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	var date time.Time
	if dateStr := viper.GetString("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateStr, err)
		}
		date = parsed
	}

	cfg.DatabaseURL = input.DatabaseURL
	cfg.PoolMinConns = 1
	cfg.PoolMaxConns = 2
	pool, err := warehouse.Connect(rootCtx, cfg)
	if err != nil {
		return err
	}
	store := warehouse.New(pool)
	defer store.Close()

	rows, err := store.FetchSnapshots(rootCtx, date)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("no snapshot data found to export")
	}

	snapshotsPath := outputFile + ".snapshots.parquet"
	if err := warehouse.WriteSnapshotsParquet(rows, snapshotsPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d snapshot rows to: %s\n", len(rows), snapshotsPath)

	runs, err := store.FetchRuns(rootCtx)
	if err != nil {
		return err
	}
	runsPath := outputFile + ".runs.parquet"
	if err := warehouse.WriteRunsParquet(runs, runsPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d run records to: %s\n", len(runs), runsPath)
	return nil
}
