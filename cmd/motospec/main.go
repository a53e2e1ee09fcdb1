// Package main provides the MotoSpec CLI for querying and extending the catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/motospec/backend/config"
	"github.com/motospec/backend/internal/bootstrap"
	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/observability"
	"github.com/motospec/backend/internal/usecase"
)

var (
	// Global flags
	outputJSON  bool
	verbose     bool
	noColor     bool
	catalogPath string

	cfg    *config.Config
	logger zerolog.Logger
	app    *bootstrap.App
)

var rootCmd = &cobra.Command{
	Use:   "motospec",
	Short: "MotoSpec CLI for ranking similar motorcycles",
	Long: `MotoSpec compares motorcycle specification records with the catalog.

Use this tool to:
- List the catalog models most similar to a given model
- Rank an external record from a JSON file against the catalog
- Fetch a record from Gemini and lay it out next to its closest matches
- Append records to the catalog

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if catalogPath != "" {
			cfg.Catalog.Path = catalogPath
			if cfg.Catalog.Type == "memory" {
				cfg.Catalog.Type = "csv"
			}
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "motospec-cli",
		})

		app, err = bootstrap.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file (overrides MOTOSPEC_CATALOG_PATH)")

	rootCmd.AddCommand(newSimilarCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newMatrixCmd())
	rootCmd.AddCommand(newAppendCmd())
	rootCmd.AddCommand(newFetchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rankFlags registers --top-n, --snapping and --tolerance on cmd.
type rankFlags struct {
	topN      int
	snapping  bool
	tolerance float64
}

func (f *rankFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topN, "top-n", "n", 0, "number of matches to return, 0 for all")
	cmd.Flags().BoolVar(&f.snapping, "snapping", false, "treat near-equal numeric values as equal")
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", usecase.DefaultNearEqualTol, "relative tolerance for near-equal snapping")
}

// apply overrides defaults with the flags the user set explicitly.
func (f *rankFlags) apply(cmd *cobra.Command, defaults usecase.RankOptions) (usecase.RankOptions, error) {
	opts := defaults
	if cmd.Flags().Changed("top-n") {
		if f.topN < 0 {
			return opts, fmt.Errorf("--top-n must be 0 or greater")
		}
		opts.TopN = f.topN
	}
	if cmd.Flags().Changed("snapping") {
		opts.Snapping = f.snapping
	}
	if cmd.Flags().Changed("tolerance") {
		if f.tolerance <= 0 || f.tolerance >= 1 {
			return opts, fmt.Errorf("--tolerance must be between 0 and 1")
		}
		opts.NearEqualTol = f.tolerance
	}
	return opts, nil
}

func newSimilarCmd() *cobra.Command {
	var flags rankFlags

	cmd := &cobra.Command{
		Use:   "similar <model>",
		Short: "List the catalog models most similar to a catalog model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			opts, err := flags.apply(cmd, app.Service.BatchOptions())
			if err != nil {
				return err
			}

			result, err := app.Service.SimilarModels(ctx, args[0], opts)
			if err != nil {
				return err
			}

			p := newPrinter(os.Stdout, outputJSON, noColor)
			if err := p.Result(result); err != nil {
				return err
			}
			if !result.Found {
				return fmt.Errorf("model %q not found in catalog", args[0])
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCompareCmd() *cobra.Command {
	var flags rankFlags

	cmd := &cobra.Command{
		Use:   "compare <record.json>",
		Short: "Rank the catalog against a record read from a JSON file",
		Long: `Compare reads one specification record as a JSON object (use - for stdin)
and ranks the catalog against it. The record's own name is excluded from the results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			opts, err := flags.apply(cmd, app.Service.QueryOptions())
			if err != nil {
				return err
			}

			record, err := readRecordFile(args[0])
			if err != nil {
				return err
			}

			result, err := app.Service.CompareRecord(ctx, record, opts)
			if err != nil {
				return err
			}
			return newPrinter(os.Stdout, outputJSON, noColor).Result(result)
		},
	}
	flags.register(cmd)
	return cmd
}

func newMatrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Print the pairwise similarity matrix of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			models, matrix, err := app.Service.SimilarityMatrix(ctx)
			if err != nil {
				return err
			}
			return newPrinter(os.Stdout, outputJSON, noColor).Matrix(models, matrix)
		},
	}
}

func newAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append <record.json>",
		Short: "Append a record to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			record, err := readRecordFile(args[0])
			if err != nil {
				return err
			}
			if err := app.Service.AcceptRecord(ctx, record); err != nil {
				return err
			}
			return newPrinter(os.Stdout, outputJSON, noColor).Appended(record.Name())
		},
	}
}

func newFetchCmd() *cobra.Command {
	var (
		flags   rankFlags
		variant string
		csvOut  string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <model>",
		Short: "Fetch a model's record from Gemini and rank the catalog against it",
		Long: `Fetch asks Gemini (with Google Search grounding) for the model's specification
record, ranks the catalog against it and prints the closest matches. Use --csv to
write the side-by-side comparison table and --save to append the record to the catalog.

Requires MOTOSPEC_GEMINI_API_KEY or GEMINI_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			opts, err := flags.apply(cmd, app.Service.QueryOptions())
			if err != nil {
				return err
			}

			comparison, err := app.Service.FetchAndCompare(ctx, &domain.FetchRequest{Model: args[0], Variant: variant}, opts)
			if err != nil {
				return err
			}

			if csvOut != "" {
				if err := writeTableFile(csvOut, comparison.Table); err != nil {
					return err
				}
				logger.Info().Str("path", csvOut).Msg("comparison table written")
			}
			if save {
				if err := app.Service.AcceptRecord(ctx, comparison.Record); err != nil {
					return err
				}
				logger.Info().Str("model", comparison.Record.Name()).Msg("record appended to catalog")
			}

			return newPrinter(os.Stdout, outputJSON, noColor).Result(comparison.Result)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&variant, "variant", "", "model variant, e.g. a trim or model year")
	cmd.Flags().StringVar(&csvOut, "csv", "", "write the comparison table to this CSV file")
	cmd.Flags().BoolVar(&save, "save", false, "append the fetched record to the catalog")
	return cmd
}
