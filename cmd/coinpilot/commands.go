package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/domain/coin"
	httpapi "github.com/sawpanic/coinpilot/internal/interfaces/http"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/report"
	"github.com/sawpanic/coinpilot/internal/safety"
)

// withApp wires the application for the duration of one command.
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, cmd, args)
	}
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch exchange tickers, filter and rank coins by confidence",
		Long: `Fetches 24h tickers, drops unsafe symbols, enriches with registry market
data, applies the filter gates and the budget band, and prints the top picks.`,
		RunE: withApp(runScan),
	}
	f := cmd.Flags()
	f.Int("limit", 0, "Number of picks (default from config)")
	f.Float64("amount", 0, "Investment amount in USDT for the budget band")
	f.Int("coins", 0, "Number of coins the amount is split across")
	f.String("quote", "", "Quote asset tickers must be priced in")
	f.Bool("verify", false, "Confirm picks against the coin registry")
	f.Bool("json", false, "Print the result as JSON")
	f.Bool("autobuy", false, "Pass the picks through the dual-advisory gate")
	return cmd
}

func runScan(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	opts := scanOverrides(f, a.cfg.ScanOptions())

	res, err := a.pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	if asJSON, _ := f.GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printScan(cmd.OutOrStdout(), res)

	if run, _ := f.GetBool("autobuy"); run && len(res.Picks) > 0 {
		if err := a.requireDB(); err != nil {
			return err
		}
		pool := make([]coin.Candidate, len(res.Picks))
		for i, p := range res.Picks {
			pool[i] = p.Candidate
		}
		results, err := a.autobuy.Process(ctx, userID, pool)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), divider)
		printAutoBuyResults(cmd.OutOrStdout(), results)
	}
	return nil
}

// scanOverrides applies the flags the user set on top of the configured options.
func scanOverrides(f *pflag.FlagSet, opts pipeline.Options) pipeline.Options {
	if f.Changed("limit") {
		opts.Limit, _ = f.GetInt("limit")
	}
	if f.Changed("amount") {
		amount, _ := f.GetFloat64("amount")
		opts.Amount = decimal.NewFromFloat(amount)
	}
	if f.Changed("coins") {
		opts.CoinCount, _ = f.GetInt("coins")
	}
	if f.Changed("quote") {
		opts.QuoteAsset, _ = f.GetString("quote")
	}
	if f.Changed("verify") {
		opts.VerifyExternal, _ = f.GetBool("verify")
	}
	return opts
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify SYMBOL...",
		Short: "Check symbols against the safety lists and the coin registry",
		Args:  cobra.MinimumNArgs(1),
		RunE:  withApp(runVerify),
	}
	cmd.Flags().Bool("quick", false, "Run only the local list and pattern checks")
	return cmd
}

func runVerify(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	if quick, _ := cmd.Flags().GetBool("quick"); quick {
		for _, s := range args {
			q := a.verifier.Check(s)
			printVerification(cmd.OutOrStdout(), q, quickOnly(s, q))
		}
		return nil
	}

	results := a.verifier.VerifyBatch(ctx, args)
	for i, res := range results {
		printVerification(cmd.OutOrStdout(), a.verifier.Check(args[i]), res)
	}
	if len(results) < len(args) {
		return ctx.Err()
	}
	return nil
}

func newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage pinned coins",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List favorites ranked by favorite score",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			ranked, err := a.favorites.Ranked(ctx, userID)
			if err != nil {
				return err
			}
			printFavorites(cmd.OutOrStdout(), userID, ranked)
			return nil
		}),
	}

	add := &cobra.Command{
		Use:   "add SYMBOL",
		Short: "Pin a coin with a snapshot of its market data",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			c, err := snapshotFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			added, err := a.favorites.Add(ctx, userID, c, persistence.SourceManual)
			if err != nil {
				return err
			}
			if added {
				good.Fprintf(cmd.OutOrStdout(), "added %s\n", c.Symbol)
			} else {
				dimmed.Fprintf(cmd.OutOrStdout(), "%s is already a favorite\n", c.Symbol)
			}
			return nil
		}),
	}
	af := add.Flags()
	af.Float64("price", 0, "Current price")
	af.Float64("growth", 0, "24h percent change")
	af.String("liquidity", "", "Liquidity tier (high|medium|low)")
	af.String("risk", "", "Risk tier (low|medium|high)")
	af.String("market-cap", "", "Market cap, e.g. 1.2B")
	af.Float64("performance", 0, "Performance score 0-10")

	remove := &cobra.Command{
		Use:   "remove SYMBOL",
		Short: "Unpin a coin",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			removed, err := a.favorites.Remove(ctx, userID, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%s is not a favorite", strings.ToUpper(args[0]))
			}
			good.Fprintf(cmd.OutOrStdout(), "removed %s\n", strings.ToUpper(args[0]))
			return nil
		}),
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write ranked favorites to an xlsx workbook",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			ranked, err := a.favorites.Ranked(ctx, userID)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := report.WriteFavorites(file, userID, ranked); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			log.Info().Str("path", out).Int("favorites", len(ranked)).Msg("Favorites exported")
			return nil
		}),
	}
	export.Flags().String("out", "favorites.xlsx", "Output file")

	cmd.AddCommand(list, add, remove, export)
	return cmd
}

func snapshotFromFlags(cmd *cobra.Command, symbol string) (coin.Candidate, error) {
	f := cmd.Flags()
	price, _ := f.GetFloat64("price")
	growth, _ := f.GetFloat64("growth")
	liquidity, _ := f.GetString("liquidity")
	risk, _ := f.GetString("risk")
	mcap, _ := f.GetString("market-cap")

	c := coin.Candidate{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Price:     price,
		Growth:    growth,
		Liquidity: coin.ParseLiquidity(liquidity),
		Risk:      coin.ParseRisk(risk),
		MarketCap: mcap,
	}
	if f.Changed("performance") {
		perf, _ := f.GetFloat64("performance")
		if perf < 0 || perf > coin.MaxPerformance {
			return coin.Candidate{}, fmt.Errorf("performance must be within 0-%g, got %g", coin.MaxPerformance, perf)
		}
		c.Performance = &perf
	}
	return c, nil
}

func newAutoBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autobuy",
		Short: "Show or change auto-buy settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			st, err := a.autobuy.Settings(ctx, userID)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), st)
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Update the settings; unset flags keep their stored value",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			st, err := a.autobuy.Settings(ctx, userID)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("enabled") {
				st.Enabled, _ = f.GetBool("enabled")
			}
			if f.Changed("amount") {
				amount, _ := f.GetFloat64("amount")
				st.Amount = decimal.NewFromFloat(amount)
			}
			if f.Changed("max-coins") {
				st.MaxCoins, _ = f.GetInt("max-coins")
			}
			if err := a.autobuy.UpdateSettings(ctx, st); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), st)
			return nil
		}),
	}
	sf := set.Flags()
	sf.Bool("enabled", false, "Place orders for coins both advisors approve")
	sf.Float64("amount", 0, "USDT spent per coin")
	sf.Int("max-coins", 0, "Maximum coins evaluated per run")

	cmd.AddCommand(show, set)
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serves /health, /metrics, /score, /verify and the per-user favorites and auto-buy endpoints",
		RunE:  withApp(runServe),
	}
	cmd.Flags().Int("port", 0, "HTTP port (default from config)")
	cmd.Flags().String("host", "", "HTTP host (default from config)")
	return cmd
}

func runServe(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	hc := a.cfg.HTTP
	if cmd.Flags().Changed("port") {
		hc.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		hc.Host, _ = cmd.Flags().GetString("host")
	}

	sc := httpapi.DefaultServerConfig()
	sc.Host = hc.Host
	sc.Port = hc.Port
	sc.ReadTimeout = hc.ReadTimeout
	sc.WriteTimeout = hc.WriteTimeout
	sc.IdleTimeout = hc.IdleTimeout

	deps := httpapi.Deps{
		Verifier:  a.verifier,
		Favorites: a.favorites,
		AutoBuy:   a.autobuy,
		Scan:      a.cfg.ScanOptions(),
		Version:   version,
	}
	if a.db.IsEnabled() {
		deps.DBHealth = a.db.Health()
	}
	server := httpapi.NewServer(sc, deps, nil)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("health", fmt.Sprintf("http://%s/health", server.Address())).
			Str("metrics", fmt.Sprintf("http://%s/metrics", server.Address())).
			Msg("API endpoints available")
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	log.Info().Msg("Server shutdown complete")
	return nil
}

// quickOnly renders a quick check in the registry result shape.
func quickOnly(symbol string, q safety.QuickResult) safety.RegistryResult {
	return safety.RegistryResult{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Verified: q.Safe,
		Reason:   q.Reason,
		Source:   safety.SourceQuickCheck,
	}
}
