// Package main provides the stdio entry point for xlsm-mcp.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orlando2019/xlsm-mcp-server/internal/config"
	"github.com/orlando2019/xlsm-mcp-server/internal/logging"
	"github.com/orlando2019/xlsm-mcp-server/internal/server"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlsm-mcp",
		Short: "MCP server for Excel workbooks with macros",
		Long: `xlsm-mcp serves tools over stdio for reading, writing and formatting
.xlsx/.xlsm workbooks, inspecting their VBA macros and converting
workbooks to the macro-enabled format.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.RegisterFlags(rootCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		NoConsole:  cfg.NoConsoleLog,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("version", Version).Info("starting xlsm-mcp")
	srv := server.New(xlsm.New(logger), logger, Version)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("server stopped")
		return err
	}
	logger.Info("server stopped")
	return nil
}
