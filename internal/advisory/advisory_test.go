package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
)

type stubAdvisor struct {
	name   string
	advice Advice
	err    error
	calls  int
}

func (s *stubAdvisor) Name() string { return s.name }

func (s *stubAdvisor) Advise(context.Context, Subject) (Advice, error) {
	s.calls++
	return s.advice, s.err
}

func TestAggregate_TruthTable(t *testing.T) {
	yes := Advice{Recommended: true}
	no := Advice{Recommended: false}
	assert.True(t, Aggregate(yes, yes))
	assert.False(t, Aggregate(yes, no))
	assert.False(t, Aggregate(no, yes))
	assert.False(t, Aggregate(no, no))
}

func TestHeuristic_Rules(t *testing.T) {
	never := func() bool { t.Fatal("tie-break consulted for a decided case"); return false }

	cases := []struct {
		name  string
		s     Subject
		buy   bool
		level Level
	}{
		{"strong", Subject{Performance: 8, Growth: 3, Liquidity: coin.TierHigh, Risk: coin.TierLow}, true, LevelHigh},
		{"good", Subject{Performance: 6, Growth: 1, Liquidity: coin.TierMedium, Risk: coin.TierLow}, true, LevelHigh},
		{"average", Subject{Performance: 5, Growth: 0.5, Liquidity: coin.TierLow, Risk: coin.TierHigh}, true, LevelMedium},
		{"stable medium risk", Subject{Performance: 4, Growth: 0, Risk: coin.TierMedium}, true, LevelMedium},
		{"momentum", Subject{Performance: 3, Growth: 9}, true, LevelLow},
		{"falling", Subject{Performance: 6, Growth: -7}, false, LevelHigh},
		{"weak", Subject{Performance: 2, Growth: 1}, false, LevelHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Heuristic(tc.s, never)
			assert.Equal(t, tc.buy, got.Recommended)
			assert.Equal(t, tc.level, got.Confidence)
			assert.Equal(t, SourceHeuristic, got.Source)
		})
	}
}

func TestHeuristic_NeutralUsesTieBreak(t *testing.T) {
	neutral := Subject{Performance: 4, Growth: -2, Risk: coin.TierHigh}

	assert.True(t, Heuristic(neutral, FixedTieBreak(true)).Recommended)
	assert.False(t, Heuristic(neutral, FixedTieBreak(false)).Recommended)
	assert.Equal(t, LevelLow, Heuristic(neutral, FixedTieBreak(true)).Confidence)

	// the default tie-break still yields a boolean answer
	for i := 0; i < 10; i++ {
		got := Heuristic(neutral, nil)
		assert.Contains(t, []bool{true, false}, got.Recommended)
	}
}

func TestSubjectFrom_DefaultsPerformance(t *testing.T) {
	s := SubjectFrom(coin.Candidate{Symbol: "SOL", Price: 150, Growth: 2})
	assert.Equal(t, 5.0, s.Performance)

	perf := 8.5
	s = SubjectFrom(coin.Candidate{Symbol: "SOL", Performance: &perf})
	assert.Equal(t, 8.5, s.Performance)
}

func TestAggregator_BothMustAgree(t *testing.T) {
	a := &stubAdvisor{name: "a", advice: Advice{Recommended: true, Source: SourceRemote}}
	b := &stubAdvisor{name: "b", advice: Advice{Recommended: false, Source: SourceRemote}}
	agg := NewAggregator(a, b, FixedTieBreak(true), time.Millisecond)

	d := agg.Evaluate(context.Background(), Subject{Symbol: "SOL"})
	assert.False(t, d.Buy)
	assert.False(t, d.Degraded)

	b.advice.Recommended = true
	d = agg.Evaluate(context.Background(), Subject{Symbol: "SOL"})
	assert.True(t, d.Buy)
}

func TestAggregator_FallsBackToHeuristic(t *testing.T) {
	a := &stubAdvisor{name: "a", advice: Advice{Recommended: true, Source: SourceRemote}}
	b := &stubAdvisor{name: "b", err: ErrNotConfigured}
	agg := NewAggregator(a, b, FixedTieBreak(false), time.Millisecond)

	strong := Subject{Symbol: "ETH", Performance: 8, Growth: 4, Liquidity: coin.TierHigh, Risk: coin.TierLow}
	d := agg.Evaluate(context.Background(), strong)
	assert.True(t, d.Buy)
	assert.True(t, d.Degraded)
	assert.Equal(t, SourceHeuristic, d.Second.Source)
	assert.Equal(t, "b", d.Second.Advisor)

	weak := Subject{Symbol: "ETH", Performance: 2, Growth: 4}
	d = agg.Evaluate(context.Background(), weak)
	assert.False(t, d.Buy)
}

func TestAggregator_EvaluateBatch(t *testing.T) {
	a := &stubAdvisor{name: "a", advice: Advice{Recommended: true}}
	b := &stubAdvisor{name: "b", advice: Advice{Recommended: true}}
	agg := NewAggregator(a, b, nil, 10*time.Millisecond)

	subjects := []Subject{{Symbol: "A1"}, {Symbol: "B2"}, {Symbol: "C3"}}
	start := time.Now()
	out := agg.EvaluateBatch(context.Background(), subjects)
	require.Len(t, out, 3)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	for i, d := range out {
		assert.Equal(t, subjects[i].Symbol, d.Subject.Symbol)
		assert.True(t, d.Buy)
	}
	assert.Equal(t, 3, a.calls)
}

func TestHTTPAdvisor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var s Subject
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		assert.Equal(t, "SOL", s.Symbol)
		w.Write([]byte(`{"recommended":"yes","confidence":"High","reason":"trend","summary":"ok"}`))
	}))
	defer srv.Close()

	adv := NewHTTPAdvisor(HTTPConfig{Name: "remote", URL: srv.URL, APIKey: "secret"})
	got, err := adv.Advise(context.Background(), Subject{Symbol: "SOL"})
	require.NoError(t, err)
	assert.True(t, got.Recommended)
	assert.Equal(t, LevelHigh, got.Confidence)
	assert.Equal(t, "trend", got.Reason)
	assert.Equal(t, SourceRemote, got.Source)
}

func TestHTTPAdvisor_Errors(t *testing.T) {
	_, err := NewHTTPAdvisor(HTTPConfig{Name: "none"}).Advise(context.Background(), Subject{})
	assert.True(t, errors.Is(err, ErrNotConfigured))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = NewHTTPAdvisor(HTTPConfig{URL: srv.URL}).Advise(context.Background(), Subject{})
	assert.Error(t, err)

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence":"high"}`))
	}))
	defer garbled.Close()
	_, err = NewHTTPAdvisor(HTTPConfig{URL: garbled.URL}).Advise(context.Background(), Subject{})
	assert.Error(t, err)
}
