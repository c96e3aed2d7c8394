package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/application/autobuy"
	"github.com/sawpanic/coinpilot/internal/application/favorites"
	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/persistence"
	"github.com/sawpanic/coinpilot/internal/safety"
	"github.com/sawpanic/coinpilot/internal/scoring"
)

const maxBodyBytes = 1 << 20

// Verifier is the part of the safety verifier the API uses.
type Verifier interface {
	Check(symbol string) safety.QuickResult
	VerifyExternal(ctx context.Context, symbol string) safety.RegistryResult
}

// Deps are the services behind the handlers. Favorites and AutoBuy are nil
// when persistence is disabled; their routes then answer 503.
type Deps struct {
	Verifier  Verifier
	Favorites *favorites.Service
	AutoBuy   *autobuy.Service
	DBHealth  persistence.RepositoryHealth
	Scan      pipeline.Options
	Version   string
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	deps    Deps
	metrics *MetricsRegistry
	scorer  *scoring.Scorer
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps, metrics *MetricsRegistry) *Handlers {
	return &Handlers{deps: deps, metrics: metrics, scorer: scoring.NewScorer(scoring.DefaultWeights())}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// serviceError maps service errors onto status codes.
func (h *Handlers) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, favorites.ErrInvalidUser), errors.Is(err, favorites.ErrInvalidSymbol),
		errors.Is(err, autobuy.ErrInvalidSettings):
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, r, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		log.Error().Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Msg("Request failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (h *Handlers) normalize(suggestions []coin.Suggestion) []coin.Candidate {
	n := coin.NewNormalizer(h.deps.Scan.QuoteAsset)
	pool := make([]coin.Candidate, 0, len(suggestions))
	for _, s := range suggestions {
		pool = append(pool, n.FromSuggestion(s))
	}
	return pool
}

// Health reports liveness and database health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.deps.Version, Timestamp: time.Now().UTC()}
	status := http.StatusOK
	if h.deps.DBHealth != nil {
		hc := h.deps.DBHealth.Health(r.Context())
		resp.Database = &hc
		if !hc.Healthy {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	h.writeJSON(w, status, resp)
}

// Score screens, filters and ranks a caller-supplied pool.
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Candidates) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "empty_pool", "candidates must not be empty")
		return
	}

	opts := h.deps.Scan
	if req.Filter != nil {
		opts.Filter = *req.Filter
	}
	if !req.AmountUSDT.IsZero() {
		opts.Amount = req.AmountUSDT
	}
	if req.CoinCount > 0 {
		opts.CoinCount = req.CoinCount
	}
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}

	pool := h.normalize(req.Candidates)
	var unsafe []pipeline.Unsafe
	if h.deps.Verifier != nil {
		safe := pool[:0:0]
		for _, c := range pool {
			if q := h.deps.Verifier.Check(c.Symbol); !q.Safe {
				unsafe = append(unsafe, pipeline.Unsafe{Symbol: c.Symbol, Reason: q.Reason})
				continue
			}
			safe = append(safe, c)
		}
		pool = safe
	}

	res := pipeline.Select(pool, opts)
	res.Scanned = len(req.Candidates)
	res.Unsafe = unsafe
	h.metrics.RecordScan(res)

	breakdowns := make([]scoring.Breakdown, len(res.Picks))
	for i, p := range res.Picks {
		breakdowns[i] = h.scorer.Breakdown(p.Candidate)
	}
	h.writeJSON(w, http.StatusOK, ScoreResponse{Result: res, Breakdowns: breakdowns})
}

// Verify runs the quick check and the registry verification for one symbol.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	if h.deps.Verifier == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "verifier_disabled", "verification is not configured")
		return
	}
	symbol := mux.Vars(r)["symbol"]
	res := h.deps.Verifier.VerifyExternal(r.Context(), symbol)
	h.metrics.RecordVerification(res)
	h.writeJSON(w, http.StatusOK, VerifyResponse{
		Symbol: res.Symbol,
		Quick:  h.deps.Verifier.Check(symbol),
		Result: res,
	})
}

func (h *Handlers) favoritesEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.Favorites == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "persistence_disabled", "favorites require a database")
		return false
	}
	return true
}

// ListFavorites returns the user's favorites ranked by favorite score.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	if !h.favoritesEnabled(w, r) {
		return
	}
	user := mux.Vars(r)["user"]
	ranked, err := h.deps.Favorites.Ranked(r.Context(), user)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, FavoritesResponse{UserID: user, Favorites: ranked})
}

// AddFavorite pins a coin; an existing pin answers 200 with added=false.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	if !h.favoritesEnabled(w, r) {
		return
	}
	var req FavoriteRequest
	if !h.decode(w, r, &req) {
		return
	}
	c := h.normalize([]coin.Suggestion{req.Suggestion})[0]
	added, err := h.deps.Favorites.Add(r.Context(), mux.Vars(r)["user"], c, req.Source)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, FavoriteResponse{Symbol: c.Symbol, Added: added})
}

// RemoveFavorite unpins a coin.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if !h.favoritesEnabled(w, r) {
		return
	}
	vars := mux.Vars(r)
	removed, err := h.deps.Favorites.Remove(r.Context(), vars["user"], vars["symbol"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if !removed {
		h.writeError(w, r, http.StatusNotFound, "favorite_not_found", "no such favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) autoBuyEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.deps.AutoBuy == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "persistence_disabled", "auto-buy requires a database")
		return false
	}
	return true
}

// GetAutoBuy returns stored settings, or the defaults.
func (h *Handlers) GetAutoBuy(w http.ResponseWriter, r *http.Request) {
	if !h.autoBuyEnabled(w, r) {
		return
	}
	st, err := h.deps.AutoBuy.Settings(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// PutAutoBuy replaces the user's settings.
func (h *Handlers) PutAutoBuy(w http.ResponseWriter, r *http.Request) {
	if !h.autoBuyEnabled(w, r) {
		return
	}
	var req AutoBuyRequest
	if !h.decode(w, r, &req) {
		return
	}
	user := mux.Vars(r)["user"]
	err := h.deps.AutoBuy.UpdateSettings(r.Context(), persistence.AutoBuySettings{
		UserID:   user,
		Enabled:  req.Enabled,
		Amount:   req.AmountUSDT,
		MaxCoins: req.MaxCoins,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	st, err := h.deps.AutoBuy.Settings(r.Context(), user)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// RunAutoBuy passes a pool through the dual-advisory gate for the user.
func (h *Handlers) RunAutoBuy(w http.ResponseWriter, r *http.Request) {
	if !h.autoBuyEnabled(w, r) {
		return
	}
	var req AutoBuyRunRequest
	if !h.decode(w, r, &req) {
		return
	}
	user := mux.Vars(r)["user"]
	results, err := h.deps.AutoBuy.Process(r.Context(), user, h.normalize(req.Candidates))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	for _, res := range results {
		if res.Decision.Degraded {
			h.metrics.AdvisorFallback.Inc()
		}
	}
	h.writeJSON(w, http.StatusOK, AutoBuyRunResponse{UserID: user, Results: results})
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}
