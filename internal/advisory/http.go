package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sawpanic/coinpilot/internal/domain/coin"
	"github.com/sawpanic/coinpilot/internal/providers/guards"
)

// HTTPConfig describes a remote advisor endpoint.
type HTTPConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPAdvisor posts the subject as JSON and reads
// {recommended, confidence, reason, summary}.
type HTTPAdvisor struct {
	name   string
	path   string
	apiKey string
	guard  *guards.ProviderGuard
}

// NewHTTPAdvisor returns an advisor; an empty URL yields one that always
// answers ErrNotConfigured.
func NewHTTPAdvisor(cfg HTTPConfig) *HTTPAdvisor {
	a := &HTTPAdvisor{name: cfg.Name, apiKey: cfg.APIKey}
	if a.name == "" {
		a.name = "advisor"
	}
	if cfg.URL == "" {
		return a
	}
	pc := guards.DefaultProviderConfig(a.name, cfg.URL)
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout
	}
	a.guard = guards.NewProviderGuard(pc)
	return a
}

func (a *HTTPAdvisor) Name() string { return a.name }

type adviceResponse struct {
	Recommended coin.FlexBool `json:"recommended"`
	Confidence  coin.FlexText `json:"confidence"`
	Reason      coin.FlexText `json:"reason"`
	Summary     coin.FlexText `json:"summary"`
}

func (a *HTTPAdvisor) Advise(ctx context.Context, s Subject) (Advice, error) {
	if a.guard == nil {
		return Advice{}, ErrNotConfigured
	}

	resp, err := a.guard.Execute(func() (*resty.Response, error) {
		req := a.guard.R(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(s)
		if a.apiKey != "" {
			req.SetAuthToken(a.apiKey)
		}
		return req.Post("")
	})
	if err != nil {
		return Advice{}, err
	}

	var body adviceResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Advice{}, fmt.Errorf("decode %s response: %w", a.name, err)
	}
	if !body.Recommended.Valid {
		return Advice{}, fmt.Errorf("%s response missing recommended flag", a.name)
	}

	return Advice{
		Advisor:     a.name,
		Recommended: body.Recommended.Value,
		Confidence:  ParseLevel(strings.TrimSpace(string(body.Confidence))),
		Reason:      string(body.Reason),
		Summary:     string(body.Summary),
		Source:      SourceRemote,
	}, nil
}
