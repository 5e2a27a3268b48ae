// Package market supplies current poker-market context for the bot's
// prompts: running tournament series, trending games and strategy topics.
//
// Data comes from an optional upstream HTTP API. When no upstream is
// configured or the fetch fails, a static snapshot is served instead, and
// on any partial failure a smaller fallback payload. The provider never
// returns an error: prompt assembly must not fail because market data is
// unavailable.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pokerprotrack/chatbot/internal/models"
)

const fetchTimeout = 5 * time.Second

// Opts holds configuration options for the market provider.
type Opts struct {
	UpstreamURL string
	HTTPClient  *http.Client
}

// Option configures provider creation.
type Option func(*Opts)

// WithUpstreamURL points the provider at an external market-data API.
func WithUpstreamURL(url string) Option {
	return func(o *Opts) { o.UpstreamURL = url }
}

// WithHTTPClient overrides the HTTP client used for upstream fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Provider serves market info, preferring the upstream API when set.
type Provider struct {
	upstreamURL string
	client      *http.Client
}

// NewProvider creates a market-info provider.
func NewProvider(opts ...Option) *Provider {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: fetchTimeout}
	}
	return &Provider{upstreamURL: cfg.UpstreamURL, client: cfg.HTTPClient}
}

// GetMarketInfo returns the current market snapshot. It never fails:
// upstream errors degrade to the static snapshot, and any other problem
// degrades to the minimal fallback payload.
func (p *Provider) GetMarketInfo(ctx context.Context) models.MarketInfo {
	if p.upstreamURL == "" {
		return staticMarketInfo()
	}
	info, err := p.fetchUpstream(ctx)
	if err != nil {
		slog.Warn("Provider.GetMarketInfo: upstream fetch failed, using fallback data", "error", err, "url", p.upstreamURL)
		return fallbackMarketInfo()
	}
	return info
}

func (p *Provider) fetchUpstream(ctx context.Context) (models.MarketInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.upstreamURL, nil)
	if err != nil {
		return models.MarketInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return models.MarketInfo{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.MarketInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var info models.MarketInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.MarketInfo{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(info.Tournaments) == 0 && len(info.TrendingGames) == 0 {
		return models.MarketInfo{}, fmt.Errorf("empty market payload")
	}
	return info, nil
}

// staticMarketInfo is the full snapshot served when no upstream API is
// configured.
func staticMarketInfo() models.MarketInfo {
	return models.MarketInfo{
		Tournaments: []models.Tournament{
			{Name: "Sunday Million", Platform: "PokerStars", Prize: "$1M garantizado", StartDate: "2025-05-19"},
			{Name: "Super MILLION$", Platform: "GGPoker", Prize: "$2M garantizado", StartDate: "2025-05-18"},
			{Name: "WCOOP Main Event", Platform: "PokerStars", Prize: "$5M garantizado", StartDate: "2025-06-01"},
			{Name: "WSOP Online", Platform: "GGPoker", Prize: "$10M garantizado", StartDate: "2025-06-15"},
		},
		TrendingGames:     []string{"No-Limit Hold'em", "Pot-Limit Omaha", "Short Deck", "5-Card PLO"},
		PopularStrategies: []string{"GTO play", "Estrategias explotativas", "Rango de 3-bet/4-bet", "Defensa del BB"},
		RakebackDeals: []models.RakebackDeal{
			{Platform: "PokerStars", Percentage: "25-30%", Conditions: "Nivel VIP Platino o superior"},
			{Platform: "GGPoker", Percentage: "15-60%", Conditions: "Sistema Fish Buffet"},
			{Platform: "PartyPoker", Percentage: "20-40%", Conditions: "Según nivel de actividad"},
		},
		BankrollRecommendations: map[string]string{
			"micro": "20 buy-ins mínimo (hasta $0.25/$0.50)",
			"low":   "30 buy-ins mínimo ($0.5/$1 - $2/$5)",
			"mid":   "40 buy-ins mínimo ($5/$10 - $10/$20)",
			"high":  "50 buy-ins mínimo ($25/$50+)",
		},
	}
}

// fallbackMarketInfo is the minimal payload served when an upstream fetch
// fails.
func fallbackMarketInfo() models.MarketInfo {
	return models.MarketInfo{
		Tournaments: []models.Tournament{
			{Name: "Sunday Million", Platform: "PokerStars", Prize: "$1M garantizado"},
			{Name: "Super MILLION$", Platform: "GGPoker", Prize: "$2M garantizado"},
		},
		TrendingGames:     []string{"No-Limit Hold'em", "Pot-Limit Omaha"},
		PopularStrategies: []string{"GTO play", "Estrategias explotativas"},
	}
}
