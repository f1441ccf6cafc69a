// Package coingecko fetches cryptocurrency market data from the CoinGecko REST API.
// Detail and history requests degrade to synthetic data instead of failing.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	maxBodySize     = 16 << 20
)

// Config holds the fetch parameters.
type Config struct {
	BaseURL         string
	CoinsPerPage    int
	TotalPages      int
	PaginationDelay time.Duration
	Timeout         time.Duration
}

// Client for the CoinGecko API
type Client struct {
	baseURL         string
	perPage         int
	totalPages      int
	paginationDelay time.Duration

	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	cacheRepo *clientdata.Repository
	metrics   *metrics.Registry
	log       zerolog.Logger

	now    func() time.Time
	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records fetch durations and fallbacks.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRandSource makes synthetic series reproducible.
func WithRandSource(src rand.Source) Option {
	return func(c *Client) {
		c.rand = rand.New(src)
	}
}

// WithClock replaces time.Now for synthetic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new CoinGecko client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CoinsPerPage <= 0 {
		cfg.CoinsPerPage = 100
	}
	if cfg.TotalPages <= 0 {
		cfg.TotalPages = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:         cfg.BaseURL,
		perPage:         cfg.CoinsPerPage,
		totalPages:      cfg.TotalPages,
		paginationDelay: cfg.PaginationDelay,
		client:          &http.Client{Timeout: cfg.Timeout},
		cacheRepo:       cacheRepo,
		log:             log.With().Str("client", "coingecko").Logger(),
		now:             time.Now,
		rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "coingecko",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// Client errors say nothing about upstream health, except 429.
		IsSuccessful: func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState reports the transport circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// FetchMarketSnapshot returns the first TotalPages pages of coins by market cap.
// A failing first page is an error; later failing pages are skipped.
func (c *Client) FetchMarketSnapshot(ctx context.Context) ([]domain.Asset, error) {
	if c.cacheRepo != nil {
		var cached []domain.Asset
		if c.cacheRepo.GetInto(ctx, clientdata.KeyMarketData, &cached) {
			c.log.Debug().Int("coins", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	c.log.Info().Int("pages", c.totalPages).Msg("Fetching fresh market data")

	// burst of 1: the first page goes out immediately, later pages wait paginationDelay
	pacer := rate.NewLimiter(rate.Every(c.paginationDelay), 1)
	assets := make([]domain.Asset, 0, c.perPage*c.totalPages)

	for page := 1; page <= c.totalPages; page++ {
		if err := pacer.Wait(ctx); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch market page 1: %w", err)
			}
			c.log.Warn().Err(err).Int("page", page).Msg("Pagination interrupted, returning partial snapshot")
			break
		}

		coins, err := c.fetchMarketsPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to fetch market page 1: %w", err)
			}
			c.log.Warn().Err(err).Int("page", page).Msg("Failed to load market page")
			continue
		}

		for _, coin := range coins {
			assets = append(assets, toAsset(coin))
		}
		c.log.Debug().
			Int("page", page).
			Int("total_pages", c.totalPages).
			Int("coins", len(coins)).
			Msg("Loaded market page")
	}

	c.log.Info().Int("coins", len(assets)).Msg("Fetched market data")

	if c.cacheRepo != nil {
		c.cacheRepo.Set(ctx, clientdata.KeyMarketData, assets)
	}
	return assets, nil
}

func (c *Client) fetchMarketsPage(ctx context.Context, page int) ([]marketCoin, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprint(c.perPage))
	q.Set("page", fmt.Sprint(page))
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h,7d,30d")

	data, err := c.get(ctx, "markets", c.baseURL+"/coins/markets?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseMarkets(data)
}

// FetchAssetDetail returns the typed detail record for a coin.
// Any failure yields the placeholder record with Placeholder set.
func (c *Client) FetchAssetDetail(ctx context.Context, id string) domain.DetailRecord {
	key := clientdata.DetailKey(id)
	if c.cacheRepo != nil {
		var cached domain.DetailRecord
		if c.cacheRepo.GetInto(ctx, key, &cached) {
			return cached
		}
	}

	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("community_data", "true")
	q.Set("developer_data", "true")

	data, err := c.get(ctx, "detail", c.baseURL+"/coins/"+url.PathEscape(id)+"?"+q.Encode())
	var rec domain.DetailRecord
	if err == nil {
		rec, err = parseDetail(data)
	}
	if err != nil {
		reason := fallbackReason(err)
		c.log.Warn().
			Err(err).
			Str("coin", id).
			Str("reason", reason).
			Msg("Detail fetch failed, serving placeholder data")
		c.metrics.Fallback("detail")

		placeholder := placeholderDetail(id)
		placeholder.FallbackReason = reason
		return placeholder
	}

	if c.cacheRepo != nil {
		c.cacheRepo.Set(ctx, key, rec)
	}
	return rec
}

// FetchPriceHistory returns daily prices for a coin.
// 429 is returned as ErrRateLimited; any other failure yields a synthetic series and a nil error.
func (c *Client) FetchPriceHistory(ctx context.Context, id string, rng HistoryRange) ([]domain.PricePoint, error) {
	key := clientdata.HistoryKey(id, rng.String())
	if c.cacheRepo != nil {
		var cached []domain.PricePoint
		if c.cacheRepo.GetInto(ctx, key, &cached) {
			return cached, nil
		}
	}

	points, err := c.fetchHistory(ctx, id, rng)

	var httpErr *HTTPError
	if rng.IsMax() && errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
		c.log.Info().Str("coin", id).Msg("Full history restricted, retrying with 365 days")
		points, err = c.fetchHistory(ctx, id, Days(maxFallbackDays))
	}

	if errors.Is(err, ErrRateLimited) {
		c.log.Warn().Str("coin", id).Msg("Rate limit hit for price history")
		return nil, fmt.Errorf("price history for %s: %w", id, err)
	}
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("coin", id).
			Str("range", rng.String()).
			Str("reason", fallbackReason(err)).
			Msg("History fetch failed, serving synthetic series")
		c.metrics.Fallback("history")
		return c.syntheticHistory(rng), nil
	}

	if c.cacheRepo != nil {
		c.cacheRepo.Set(ctx, key, points)
	}
	return points, nil
}

// HistoryWithFallback is FetchPriceHistory for chart callers: rate limiting also yields a synthetic series.
func (c *Client) HistoryWithFallback(ctx context.Context, id string, rng HistoryRange) []domain.PricePoint {
	points, err := c.FetchPriceHistory(ctx, id, rng)
	if err != nil {
		c.metrics.Fallback("history")
		return c.syntheticHistory(rng)
	}
	return points
}

func (c *Client) fetchHistory(ctx context.Context, id string, rng HistoryRange) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", rng.String())

	data, err := c.get(ctx, "market_chart", c.baseURL+"/coins/"+url.PathEscape(id)+"/market_chart?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseMarketChart(data)
}

// get performs a GET through the circuit breaker and returns the 2xx body.
func (c *Client) get(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	start := time.Now()
	c.log.Debug().Str("url", reqURL).Msg("Requesting")

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, URL: reqURL}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return data, nil
	})
	c.metrics.ObserveFetch(endpoint, start, err)
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}
