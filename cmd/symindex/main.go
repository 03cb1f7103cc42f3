package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0muji4/symindex/internal/config"
	"github.com/0muji4/symindex/internal/logging"
	"github.com/0muji4/symindex/internal/symbol"
	"github.com/0muji4/symindex/internal/workspace"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	root       string
	strict     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "symindex",
		Short: "Query Doxygen search indexes",
		Long: `symindex loads the search/*.js tables Doxygen writes next to its HTML
output and answers prefix searches and exact key lookups against them.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to symindex.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.root, "root", "", "Documentation root (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&opts.strict, "strict", false, "Fail on the first malformed record")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log loading details to stderr")

	rootCmd.AddCommand(
		newSearchCmd(opts),
		newLookupCmd(opts),
		newExportCmd(opts),
		newCheckCmd(opts),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadIndex resolves configuration and flags, then builds the index.
func (o *globalOptions) loadIndex(cmd *cobra.Command) (*symbol.Index, *config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.root != "" {
		cfg.Root = o.root
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = o.strict
	}

	logger := zap.NewNop()
	if o.verbose {
		level := cfg.LogLevel
		if level == "info" {
			level = "debug"
		}
		if logger, err = logging.New(level, logging.Format(cfg.LogFormat)); err != nil {
			return nil, nil, err
		}
	}

	root := cfg.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	idx, err := workspace.LoadIndex(cmd.Context(), workspace.NewFSReader(root), cfg.Patterns, logger, cfg.Strict)
	if err != nil {
		if workspace.IsMalformed(err) {
			return nil, nil, fmt.Errorf("%w (rerun without --strict to skip malformed records)", err)
		}
		return nil, nil, err
	}
	return idx, cfg, nil
}
