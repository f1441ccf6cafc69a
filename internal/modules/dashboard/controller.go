// Package dashboard owns the dashboard state: the loaded assets, the user's
// filter state and the loading/error/offline flags read by the UI.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/internal/metrics"
	"github.com/aristath/marketboard/internal/modules/charts"
	"github.com/aristath/marketboard/internal/modules/filtering"
	"github.com/aristath/marketboard/internal/modules/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrLoadInProgress is returned when a load cycle is already running.
	ErrLoadInProgress = errors.New("load already in progress")
	// ErrAssetNotFound is returned for ids that are not in the loaded collection.
	ErrAssetNotFound = errors.New("asset not found")
)

// detailDays is the history window of the stock and steam detail view.
const detailDays = 30

// CryptoSource is the live crypto market client.
type CryptoSource interface {
	FetchMarketSnapshot(ctx context.Context) ([]domain.Asset, error)
	FetchAssetDetail(ctx context.Context, id string) domain.DetailRecord
	HistoryWithFallback(ctx context.Context, id string, rng coingecko.HistoryRange) []domain.PricePoint
}

// StockSource serves stock listings.
type StockSource interface {
	FetchAll(ctx context.Context) ([]domain.Asset, error)
	History(symbol string, days int) []domain.PricePoint
}

// SteamSource serves Steam marketplace listings.
type SteamSource interface {
	FetchAll(ctx context.Context) ([]domain.Asset, error)
	History(appID int, hashName string, days int) []domain.PricePoint
}

// Config holds controller settings
type Config struct {
	ChartDays      int
	EnableCharts   bool
	RateLimitDelay time.Duration
	PreviewBaseURL string
}

// State is the UI-facing status of the dashboard.
type State struct {
	Filter       domain.FilterState `json:"filter"`
	Loading      bool               `json:"loading"`
	LastError    string             `json:"last_error,omitempty"`
	LastLoadedAt time.Time          `json:"last_loaded_at"`
	DetailOpen   string             `json:"detail_open,omitempty"`
	Offline      bool               `json:"offline"`
	AssetCount   int                `json:"asset_count"`
}

// View is the filtered asset list together with the state it was built from.
type View struct {
	State  State                `json:"state"`
	Assets []domain.ScoredAsset `json:"assets"`
}

// Detail is the content of the detail view.
type Detail struct {
	Record  domain.DetailRecord `json:"detail"`
	History []domain.PricePoint `json:"history"`
	Summary charts.Summary      `json:"summary"`
}

// ScoreReport explains an asset's recommendation score.
type ScoreReport struct {
	ID         string             `json:"id"`
	Score      int                `json:"score"`
	Raw        int                `json:"raw"`
	Components scoring.Components `json:"components"`
}

// Controller is the single owner of dashboard state.
type Controller struct {
	crypto CryptoSource
	stocks StockSource
	steam  SteamSource
	cfg    Config

	metrics *metrics.Registry
	now     func() time.Time
	log     zerolog.Logger

	mu           sync.RWMutex
	assets       []domain.Asset
	filter       domain.FilterState
	loading      bool
	lastError    string
	lastLoadedAt time.Time
	detailOpen   string
	offline      bool
}

// Option configures a Controller
type Option func(*Controller)

// WithMetrics records load cycles in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock overrides the clock used for LastLoadedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller on the crypto tab with no assets loaded.
func NewController(crypto CryptoSource, stocks StockSource, steam SteamSource, cfg Config, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		crypto: crypto,
		stocks: stocks,
		steam:  steam,
		cfg:    cfg,
		now:    time.Now,
		log:    log.With().Str("service", "dashboard").Logger(),
		filter: domain.DefaultFilterState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the active tab's assets and replaces the collection.
// On failure the previous assets are kept and the error is recorded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	c.loading = true
	tab := c.filter.ActiveTab
	c.mu.Unlock()

	c.metrics.SetLoading(true)
	defer c.metrics.SetLoading(false)

	log := c.log.With().
		Str("cycle_id", uuid.New().String()).
		Str("tab", string(tab)).
		Logger()
	start := time.Now()
	log.Debug().Msg("Load cycle started")

	assets, err := c.fetch(ctx, tab)
	c.metrics.LoadCycle(string(tab), err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.lastError = err.Error()
		c.offline = c.countLocked(tab) == 0
		log.Error().Err(err).Bool("offline", c.offline).Msg("Load cycle failed")
		return err
	}

	c.assets = assets
	c.lastError = ""
	c.offline = false
	c.lastLoadedAt = c.now()

	log.Info().
		Int("assets", len(assets)).
		Dur("duration", time.Since(start)).
		Msg("Load cycle completed")
	return nil
}

func (c *Controller) fetch(ctx context.Context, tab domain.AssetType) ([]domain.Asset, error) {
	var (
		assets []domain.Asset
		err    error
	)
	switch tab {
	case domain.AssetTypeCrypto:
		assets, err = c.crypto.FetchMarketSnapshot(ctx)
	case domain.AssetTypeStock:
		assets, err = c.stocks.FetchAll(ctx)
	case domain.AssetTypeSteam:
		assets, err = c.steam.FetchAll(ctx)
	default:
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s assets: %w", tab, err)
	}
	return assets, nil
}

// State returns the current status flags.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Filter:       c.filter,
		Loading:      c.loading,
		LastError:    c.lastError,
		LastLoadedAt: c.lastLoadedAt,
		DetailOpen:   c.detailOpen,
		Offline:      c.offline,
		AssetCount:   len(c.assets),
	}
}

// View applies the filter pipeline to the current state.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return View{
		State:  c.stateLocked(),
		Assets: filtering.Apply(c.assets, c.filter),
	}
}

// SetTab switches tab, resets the filter mode and reloads. The search query is kept.
func (c *Controller) SetTab(ctx context.Context, tab domain.AssetType) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	c.filter.ActiveTab = tab
	c.filter.ActiveFilter = domain.FilterAll
	c.mu.Unlock()

	return c.Load(ctx)
}

// SetFilter changes the filter mode without reloading.
func (c *Controller) SetFilter(mode domain.FilterMode) {
	c.mu.Lock()
	c.filter.ActiveFilter = mode
	c.mu.Unlock()
}

// SetSearch changes the search query without reloading.
func (c *Controller) SetSearch(query string) {
	c.mu.Lock()
	c.filter.SearchQuery = query
	c.mu.Unlock()
}

// OpenDetail marks the detail view open and returns its content.
// Upstream failures are served as placeholder or synthetic data, never as errors.
func (c *Controller) OpenDetail(ctx context.Context, id string) (Detail, error) {
	asset, typ, err := c.resolve(id)
	if err != nil {
		return Detail{}, err
	}

	c.mu.Lock()
	c.detailOpen = id
	c.mu.Unlock()

	var (
		rec    domain.DetailRecord
		points []domain.PricePoint
	)
	switch typ {
	case domain.AssetTypeCrypto:
		rec = c.crypto.FetchAssetDetail(ctx, id)
		points = c.crypto.HistoryWithFallback(ctx, id, coingecko.MaxRange)
	default:
		rec = domain.DetailFromAsset(asset)
		points = c.history(asset, detailDays)
	}

	return Detail{
		Record:  rec,
		History: points,
		Summary: charts.Summarize(points),
	}, nil
}

// CloseDetail marks the detail view closed, re-enabling auto-refresh.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.detailOpen = ""
	c.mu.Unlock()
}

// DetailOpen reports whether a detail view is open.
func (c *Controller) DetailOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detailOpen != ""
}

// History returns price history for an asset, falling back to synthetic data.
func (c *Controller) History(ctx context.Context, id string, rng coingecko.HistoryRange) ([]domain.PricePoint, error) {
	asset, typ, err := c.resolve(id)
	if err != nil {
		return nil, err
	}
	if typ == domain.AssetTypeCrypto {
		return c.crypto.HistoryWithFallback(ctx, id, rng), nil
	}

	days := int(rng)
	if rng.IsMax() {
		days = 365
	}
	return c.history(asset, days), nil
}

func (c *Controller) history(asset domain.Asset, days int) []domain.PricePoint {
	if asset.Type == domain.AssetTypeSteam {
		return c.steam.History(asset.AppID, asset.HashName, days)
	}
	return c.stocks.History(asset.Symbol, days)
}

// ScoreBreakdown returns the recommendation score of a loaded asset.
func (c *Controller) ScoreBreakdown(id string) (ScoreReport, error) {
	asset, ok := c.find(id)
	if !ok {
		return ScoreReport{}, fmt.Errorf("%s: %w", id, ErrAssetNotFound)
	}
	components := scoring.Breakdown(asset)
	return ScoreReport{
		ID:         id,
		Score:      components.Total(),
		Raw:        components.Raw(),
		Components: components,
	}, nil
}

// resolve finds the asset for id. Unknown ids on the crypto tab are treated as
// coin ids, since any coin can be looked up upstream.
func (c *Controller) resolve(id string) (domain.Asset, domain.AssetType, error) {
	if asset, ok := c.find(id); ok {
		return asset, asset.Type, nil
	}

	c.mu.RLock()
	tab := c.filter.ActiveTab
	c.mu.RUnlock()

	if tab == domain.AssetTypeCrypto {
		return domain.Asset{ID: id, Type: domain.AssetTypeCrypto}, domain.AssetTypeCrypto, nil
	}
	return domain.Asset{}, "", fmt.Errorf("%s: %w", id, ErrAssetNotFound)
}

func (c *Controller) find(id string) (domain.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.assets {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Asset{}, false
}

func (c *Controller) countLocked(tab domain.AssetType) int {
	n := 0
	for _, a := range c.assets {
		if a.Type == tab {
			n++
		}
	}
	return n
}
