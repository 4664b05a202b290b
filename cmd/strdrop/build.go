package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Clinical-Genomics/strdrop/internal/reference"
)

func newBuildCmd(a *app) *cobra.Command {
	var refDir, cachePath string

	cmd := &cobra.Command{
		Use:   "build --reference <dir> --output <cache>",
		Short: "Aggregate a reference VCF directory into a cache file",
		Long: `Scan every VCF in a reference directory once and persist the per-locus
depth and edit ratio distributions. Paths ending in .duckdb or .db are written
as a DuckDB database, anything else as JSON.`,
		Example: `  strdrop build --reference refs/ --output reference.json
  strdrop build --reference refs/ --output reference.duckdb --workers 8`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, "workers")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if refDir == "" || cachePath == "" {
				return usagef("--reference and --output are required")
			}
			return runBuild(a.logger, refDir, cachePath)
		},
	}

	cmd.Flags().StringVar(&refDir, "reference", "", "Reference VCF directory (required)")
	cmd.Flags().StringVarP(&cachePath, "output", "o", "", "Cache file to write: .json, .duckdb or .db (required)")
	cmd.Flags().Int("workers", 0, "Reference files parsed in parallel (0 = number of CPUs)")

	return cmd
}

func runBuild(logger *zap.Logger, refDir, cachePath string) error {
	agg := reference.NewAggregator()
	agg.SetLogger(logger)
	agg.SetWorkers(viper.GetInt("workers"))

	d, err := agg.Aggregate(refDir)
	if err != nil {
		return fmt.Errorf("aggregating reference: %w", err)
	}
	if err := reference.WriteCache(cachePath, d); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	logger.Info("reference cache written",
		zap.String("cache", cachePath),
		zap.Int("files", d.FileCount),
		zap.Int("loci", len(d.Loci())))
	return nil
}
