package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/bootstrap"
	"github.com/kailas-cloud/kbsearch/internal/config"
	logpkg "github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/version"
)

// queryOptions holds CLI flags for a retrieval.
type queryOptions struct {
	env      string
	format   string // "json", "context"
	strategy string // overrides retrieval.strategy
	timeout  time.Duration
	topN     int
	verbose  bool
}

func newRootCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "kbquery <question>",
		Short: "Retrieve knowledge-base passages for a question",
		Long: `Embeds the question, ranks knowledge-base entries by the configured
strategy and prints the top passages.

Examples:
  kbquery "how do I renew a student visa"
  kbquery "passport fees" --strategy cascade --format context
  ENV=prod kbquery "lost passport" --top 5`,
		Version:       version.String(),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.env, "env", config.GetEnv(), "Config environment (config/<env>.yaml)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "Output format: json, context")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "Ranking strategy: weighted, cascade (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Retrieval timeout (default from config)")
	cmd.Flags().IntVarP(&opts.topN, "top", "n", 0, "Number of passages to return (default from config)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, query string, opts queryOptions) error {
	cfg, err := config.Load(opts.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(&cfg, opts); err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(opts.env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("build retrieval engine: %w", err)
	}
	defer app.Close()

	if err := app.Store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("vector index not ready: %w", err)
	}

	records, err := app.Retrieval.Retrieve(ctx, query)
	if err != nil {
		logger.Debug("retrieval failed", zap.Error(err))
		return fmt.Errorf("retrieve: %w", err)
	}

	return writeResults(cmd.OutOrStdout(), opts.format, app.Retrieval.Strategy().String(), records)
}

// applyOverrides layers CLI flags over the loaded config and revalidates it.
func applyOverrides(cfg *config.Config, opts queryOptions) error {
	if opts.strategy != "" {
		cfg.Retrieval.Strategy = opts.strategy
	}
	if opts.timeout > 0 && opts.timeout < time.Millisecond {
		return fmt.Errorf("invalid flags: timeout %s is below the 1ms resolution", opts.timeout)
	}
	if opts.timeout > 0 {
		cfg.Retrieval.TimeoutMs = int(opts.timeout.Milliseconds())
	}
	if opts.topN > 0 {
		cfg.Retrieval.TopN = opts.topN
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
