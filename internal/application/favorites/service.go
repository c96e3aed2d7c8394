// Package favorites manages per-user pinned coins and ranks them with the
// favorite scorer.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

var (
	ErrInvalidUser   = errors.New("user id is required")
	ErrInvalidSymbol = errors.New("symbol is required")
)

// Service adds, removes and ranks favorites.
type Service struct {
	repo persistence.FavoritesRepo
	opts scoring.FavoriteOptions
	now  func() time.Time
}

// NewService wraps repo. opts controls favorite scoring.
func NewService(repo persistence.FavoritesRepo, opts scoring.FavoriteOptions) *Service {
	return &Service{repo: repo, opts: opts, now: time.Now}
}

// Add pins c for user. It reports false when the symbol was already pinned.
func (s *Service) Add(ctx context.Context, userID string, c coin.Candidate, source string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, ErrInvalidUser
	}
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	if c.Symbol == "" {
		return false, ErrInvalidSymbol
	}
	if source == "" {
		source = persistence.SourceManual
	}

	added, err := s.repo.Add(ctx, persistence.Favorite{
		UserID:   userID,
		Symbol:   c.Symbol,
		Source:   source,
		Snapshot: c,
		AddedAt:  s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("add favorite %s: %w", c.Symbol, err)
	}
	log.Info().Str("user", userID).Str("symbol", c.Symbol).Str("source", source).Bool("added", added).Msg("Favorite added")
	return added, nil
}

// Remove unpins symbol for user.
func (s *Service) Remove(ctx context.Context, userID, symbol string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, ErrInvalidUser
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, ErrInvalidSymbol
	}
	removed, err := s.repo.Remove(ctx, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("remove favorite %s: %w", symbol, err)
	}
	return removed, nil
}

// Ranked returns the user's favorites ordered by favorite score with badges.
func (s *Service) Ranked(ctx context.Context, userID string) ([]scoring.RankedFavorite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	favs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	pool := make([]coin.Candidate, len(favs))
	for i, f := range favs {
		pool[i] = f.Snapshot
		if pool[i].Symbol == "" {
			pool[i].Symbol = f.Symbol
		}
	}
	return scoring.RankFavorites(pool, s.opts), nil
}
