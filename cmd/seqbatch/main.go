package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seqbatch/internal/config"
	"seqbatch/internal/dataset"
	"seqbatch/internal/logging"
	"seqbatch/internal/pipeline"
)

var (
	// Global flags
	cfgPath  string
	verbose  bool
	jsonLogs bool

	// run overrides
	overrides config.Overrides

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "seqbatch",
	Short: "Pad and batch variable-length time series",
	Long: `seqbatch builds an indexed store of (sequence, label, length) triples
and collates them into right-padded [batch, time, feature] tensors for a
training loop.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream every batch of a synthetic store through the loader",
	Args:  cobra.NoArgs,
	RunE:  runBatches,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON logs")

	runCmd.Flags().IntVar(&overrides.Sequences, "sequences", 0, "Number of synthetic sequences")
	runCmd.Flags().IntVar(&overrides.BatchSize, "batch-size", 0, "Batch size")
	runCmd.Flags().IntVar(&overrides.NumWorkers, "num-workers", 0, "Number of collation workers")
	runCmd.Flags().IntVar(&overrides.Epochs, "epochs", 0, "Passes over the store")
	runCmd.Flags().Int64Var(&overrides.Seed, "seed", 0, "PRNG seed")
	runCmd.Flags().IntVar(&overrides.LogEvery, "log-every", 0, "Log every N steps")
	runCmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, applies overrides and builds the logger.
func setup(o config.Overrides) (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose, JSON: jsonLogs})
	if err != nil {
		return nil, err
	}
	logger = l
	return cfg, nil
}

func buildStore(cfg *config.Config) (*dataset.Store[float32, int], error) {
	sequences, labels, lengths, err := dataset.GenerateSynthetic(dataset.SyntheticOptions{
		Count:      cfg.Sequences,
		MinLength:  cfg.MinLength,
		MaxLength:  cfg.MaxLength,
		FeatureDim: cfg.FeatureDim,
		NumClasses: cfg.NumClasses,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	return dataset.NewStore(sequences, labels, lengths)
}

func runBatches(cmd *cobra.Command, args []string) error {
	cfg, err := setup(overrides)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log, runID := logging.WithRun(logger)

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	log.Info("store ready",
		zap.Int("sequences", store.Len()),
		zap.Int("feature_dim", store.FeatureDim()),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("num_workers", cfg.NumWorkers))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, log, store, pipeline.RunConfig{
		Epochs:     cfg.Epochs,
		BatchSize:  cfg.BatchSize,
		NumWorkers: cfg.NumWorkers,
		DropLast:   cfg.DropLast,
		PadValue:   cfg.PadValue,
		LogEvery:   cfg.LogEvery,
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("run interrupted", zap.Int("steps", summary.Steps))
			return context.Cause(ctx)
		}
		return fmt.Errorf("run %s failed: %w", runID, err)
	}

	log.Info("run complete",
		zap.Int("steps", summary.Steps),
		zap.Int("sequences", summary.Sequences),
		zap.Float64("mean_padding_ratio", summary.MeanPaddingRatio))
	return nil
}
