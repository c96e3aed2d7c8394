package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "CoinPilot"
	version = "v1.0.0"
)

var (
	configPath string
	logLevel   string
	userID     string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "coinpilot",
		Short:   "Coin scoring, safety screening and dual-advisory auto-buy",
		Version: version,
		Long: `CoinPilot scores exchange coins by confidence, filters them through
market-cap, liquidity, risk and budget gates, screens out known scams and
unverified symbols, and can auto-favorite or buy coins two advisors agree on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "coinpilot.yaml", "Path to the YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	flags.StringVar(&userID, "user", "local", "User the favorites and auto-buy settings belong to")

	rootCmd.AddCommand(
		newScanCmd(),
		newVerifyCmd(),
		newFavoritesCmd(),
		newAutoBuyCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// setupLogging writes human-readable logs on a terminal and JSON otherwise.
func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", appName).Logger()
	}
	return nil
}
