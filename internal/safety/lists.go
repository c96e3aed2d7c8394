// Package safety decides whether a symbol may enter scoring at all. Check
// is the synchronous quick path over curated lists and naming patterns;
// VerifyExternal confirms survivors against a coin registry.
package safety

import (
	"regexp"
	"strings"
)

// Lists holds the curated symbol sets and suspicious naming patterns.
type Lists struct {
	Whitelist map[string]struct{}
	Blacklist map[string]struct{}
	Patterns  []*regexp.Regexp
}

var defaultWhitelist = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "ADA", "DOGE", "AVAX", "DOT", "MATIC",
	"LINK", "TRX", "LTC", "BCH", "ATOM", "XLM", "ETC", "FIL", "APT", "ARB",
	"OP", "NEAR", "ICP", "HBAR", "VET", "ALGO", "AAVE", "UNI", "MKR", "INJ",
	"SUI", "TON", "SHIB", "USDC", "USDT",
}

var defaultBlacklist = []string{
	"LUNA", "UST", "FTT", "SQUID", "SAFEMOON", "BITCONNECT", "BCC", "TITAN",
	"IRON", "ONECOIN", "LUNC",
}

var defaultPatterns = []string{
	`^[A-Z]$`,
	`^\d+$`,
	`^[A-Z]\d+$`,
	`(?i)safe`,
	`(?i)baby`,
	`(?i)moon`,
	`(?i)elon`,
	`(?i)inu$`,
	`(?i)^test`,
	`(?i)^fake`,
}

// DefaultLists returns the shipped whitelist, blacklist and patterns.
func DefaultLists() Lists {
	l := Lists{
		Whitelist: make(map[string]struct{}, len(defaultWhitelist)),
		Blacklist: make(map[string]struct{}, len(defaultBlacklist)),
		Patterns:  make([]*regexp.Regexp, 0, len(defaultPatterns)),
	}
	for _, s := range defaultWhitelist {
		l.Whitelist[s] = struct{}{}
	}
	for _, s := range defaultBlacklist {
		l.Blacklist[s] = struct{}{}
	}
	for _, p := range defaultPatterns {
		l.Patterns = append(l.Patterns, regexp.MustCompile(p))
	}
	return l
}

// AllowSymbol adds symbol to the whitelist.
func (l *Lists) AllowSymbol(symbol string) {
	if l.Whitelist == nil {
		l.Whitelist = make(map[string]struct{})
	}
	l.Whitelist[normalize(symbol)] = struct{}{}
}

// BlockSymbol adds symbol to the blacklist.
func (l *Lists) BlockSymbol(symbol string) {
	if l.Blacklist == nil {
		l.Blacklist = make(map[string]struct{})
	}
	l.Blacklist[normalize(symbol)] = struct{}{}
}

// IsWhitelisted reports a case-insensitive whitelist match.
func (l Lists) IsWhitelisted(symbol string) bool {
	_, ok := l.Whitelist[normalize(symbol)]
	return ok
}

// IsBlacklisted reports a case-insensitive blacklist match.
func (l Lists) IsBlacklisted(symbol string) bool {
	_, ok := l.Blacklist[normalize(symbol)]
	return ok
}

// Suspicious reports whether any pattern matches the normalized symbol.
func (l Lists) Suspicious(symbol string) bool {
	s := normalize(symbol)
	for _, p := range l.Patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
