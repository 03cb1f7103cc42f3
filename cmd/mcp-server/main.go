package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0muji4/symindex/internal/agent"
	"github.com/0muji4/symindex/internal/config"
	"github.com/0muji4/symindex/internal/logging"
	"github.com/0muji4/symindex/internal/server"
	"github.com/0muji4/symindex/internal/workspace"
)

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve Doxygen search indexes over MCP stdio",
		Long: `mcp-server loads the configured search/*.js tables and exposes the
search_symbols, lookup_symbol and (with GEMINI_API_KEY) ask tools on stdio.
Logs go to stderr; stdout carries the protocol.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// --- 設定の読み込み ---
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, logging.Format(cfg.LogFormat))
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("server error", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to symindex.yaml")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	root := cfg.Root
	if !filepath.IsAbs(root) {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	// --- 索引の構築 ---
	idx, err := workspace.LoadIndex(ctx, workspace.NewFSReader(root), cfg.Patterns, logger, cfg.Strict)
	if err != nil {
		return err
	}

	// --- DI: Adapter 層の組み立て ---
	var asker server.Asker
	if cfg.Assistant.Enabled() {
		a, err := agent.New(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.SystemPrompt, idx, logger.Named("agent"))
		if err != nil {
			return err
		}
		asker = a
	} else {
		logger.Info("GEMINI_API_KEY not set, ask tool disabled")
	}
	handler := server.NewHandler(idx, asker, cfg.Limit, logger.Named("server"))
	s := server.New(handler)

	// --- Framework: MCP stdio サーバーの起動 ---
	logger.Info("symindex MCP server starting", zap.String("root", root), zap.Int("entries", idx.Len()))
	return mcpserver.ServeStdio(s)
}
