package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/logger"
	mcpTransport "github.com/kailas-cloud/semsearch/internal/transport/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Exposes the corpus to MCP clients over stdin/stdout.

Tools: search_corpus, get_document, list_spaces.
Logs are written to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	cfg := globalConfig
	log, err := logger.NewLogger(globalEnv,
		logger.WithLevel(cfg.Logging.Level),
		logger.WithOutputPaths("stderr"),
	)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := buildApp(ctx, cfg, log)
	defer a.close()
	go a.warmup(ctx)

	srv, err := mcpTransport.NewServer(a.search,
		mcpTransport.WithLimits(cfg.Search.DefaultK, cfg.Search.MaxK),
		mcpTransport.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create mcp server: %w", err)
	}

	log.Info("Serving MCP on stdio")
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Error("MCP server stopped", zap.Error(err))
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
