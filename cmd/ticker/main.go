package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crypto_ticker/internal/app"
	"crypto_ticker/internal/infra"

	"github.com/spf13/cobra"
)

var (
	dryRun     bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ticker",
	Short: "Crypto price ticker for a 2.13\" e-paper display",
	Long: `Ticker polls the CoinGecko API for one coin, draws a 7 day sparkline with
the current price and pushes the frame to a Waveshare 2.13" V2 e-paper HAT.

Use --dry-run to open each frame in a desktop image viewer instead.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show frames in an image viewer instead of the e-paper display")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", infra.DefaultConfigPath, "path to config file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		return fmt.Errorf("bootstrapping failed: %w", err)
	}
	defer bootstrap.Close()

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.LoadAssets(ctx); err != nil {
		return err
	}

	if err := bootstrap.OpenSink(dryRun); err != nil {
		return fmt.Errorf("display init failed: %w", err)
	}

	loop, err := bootstrap.NewLoop()
	if err != nil {
		bootstrap.Sink.Close()
		return err
	}

	slog.InfoContext(ctx, "✨ Ticker running. Press Ctrl+C to exit.")
	code := loop.Run(ctx)

	bootstrap.Close()
	os.Exit(code)
	return nil
}
