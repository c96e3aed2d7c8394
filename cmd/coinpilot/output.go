package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sawpanic/coinpilot/internal/application/autobuy"
	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/safety"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

var (
	header  = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
	dimmed  = color.New(color.Faint)
	divider = strings.Repeat("─", 78)
)

func confidenceColor(score int) *color.Color {
	switch {
	case score >= 70:
		return good
	case score >= 50:
		return warn
	default:
		return bad
	}
}

func printScan(w io.Writer, res *pipeline.Result) {
	header.Fprintf(w, "%s scan: %d scanned, %d picks in %s\n", appName, res.Scanned, len(res.Picks), res.Duration.Round(1e6))
	fmt.Fprintln(w, divider)

	if res.NoCandidates {
		warn.Fprintln(w, "No coins passed the filters.")
	} else {
		fmt.Fprintf(w, "%-4s %-10s %14s %8s %-7s %-7s %-10s %5s\n",
			"#", "SYMBOL", "PRICE", "24H%", "LIQ", "RISK", "MCAP", "CONF")
		for i, p := range res.Picks {
			fmt.Fprintf(w, "%-4d %-10s %14.6g %+7.2f%% %-7s %-7s %-10s %s\n",
				i+1, p.Symbol, p.Price, p.Growth, p.Liquidity, p.Risk, p.MarketCap,
				confidenceColor(p.Confidence).Sprintf("%5d", p.Confidence))
			if len(p.Reasons) > 0 {
				dimmed.Fprintf(w, "     %s\n", strings.Join(p.Reasons, ", "))
			}
		}
	}

	if len(res.Unsafe) > 0 {
		fmt.Fprintln(w, divider)
		for _, u := range res.Unsafe {
			bad.Fprintf(w, "unsafe   %-10s %s\n", u.Symbol, u.Reason)
		}
	}
	if n := len(res.Rejected); n > 0 {
		gates := map[string]int{}
		for _, r := range res.Rejected {
			gates[r.Gate]++
		}
		dimmed.Fprintf(w, "rejected %d: %v\n", n, gates)
	}
	if res.Degraded {
		warn.Fprintf(w, "degraded: %s\n", strings.Join(res.DegradedReasons, "; "))
	}
}

func printVerification(w io.Writer, quick safety.QuickResult, res safety.RegistryResult) {
	status := good.Sprint("VERIFIED")
	if !res.Verified {
		status = bad.Sprint("REJECTED")
	}
	fmt.Fprintf(w, "%-10s %s  source=%s", res.Symbol, status, res.Source)
	if res.Reason != "" {
		fmt.Fprintf(w, " reason=%q", res.Reason)
	}
	if res.Info != nil {
		fmt.Fprintf(w, " name=%q rank=%d", res.Info.Name, res.Info.MarketCapRank)
	}
	if !quick.Safe {
		fmt.Fprintf(w, " quick=%q", quick.Reason)
	}
	fmt.Fprintln(w)
}

func printFavorites(w io.Writer, user string, ranked []scoring.RankedFavorite) {
	header.Fprintf(w, "Favorites for %s (%d)\n", user, len(ranked))
	fmt.Fprintln(w, divider)
	if len(ranked) == 0 {
		dimmed.Fprintln(w, "No favorites yet.")
		return
	}
	for _, r := range ranked {
		c := r.Candidate
		fmt.Fprintf(w, "%-4s %-10s %14.6g %+7.2f%% %-7s %-7s %8.2f\n",
			r.Badge, c.Symbol, c.Price, c.Growth, c.Liquidity, c.Risk, r.Score)
	}
}

func printSettings(w io.Writer, st persistence.AutoBuySettings) {
	state := bad.Sprint("disabled")
	if st.Enabled {
		state = good.Sprint("enabled")
	}
	fmt.Fprintf(w, "auto-buy for %s: %s, %s USDT per coin, max %d coins\n",
		st.UserID, state, st.Amount.StringFixed(2), st.MaxCoins)
}

func printAutoBuyResults(w io.Writer, results []autobuy.Result) {
	for _, r := range results {
		d := r.Decision
		if r.Unsafe != "" {
			bad.Fprintf(w, "%-10s unsafe  %s\n", d.Subject.Symbol, r.Unsafe)
			continue
		}
		verdict := dimmed.Sprint("skip")
		if d.Buy {
			verdict = good.Sprint("buy ")
		}
		fmt.Fprintf(w, "%-10s %s  %s=%t %s=%t", d.Subject.Symbol, verdict,
			d.First.Advisor, d.First.Recommended, d.Second.Advisor, d.Second.Recommended)
		if d.Degraded {
			warn.Fprint(w, " (heuristic)")
		}
		if r.Order != nil {
			fmt.Fprintf(w, " order=%s", r.Order.ID)
		}
		if r.Error != "" {
			bad.Fprintf(w, " error=%s", r.Error)
		}
		fmt.Fprintln(w)
	}
}
