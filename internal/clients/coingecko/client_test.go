package coingecko

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// memStorage is an in-process clientdata.Storage.
type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (m *memStorage) Read(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) Write(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStorage) Delete(_ context.Context, keys ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestClient(t *testing.T, baseURL string, cfg Config) (*Client, *clientdata.Repository) {
	t.Helper()
	cfg.BaseURL = baseURL
	repo := clientdata.NewRepository(newMemStorage(), zerolog.Nop(),
		clientdata.WithClock(func() time.Time { return testNow }))
	client := NewClient(cfg, repo, zerolog.Nop(),
		WithClock(func() time.Time { return testNow }),
		WithRandSource(rand.NewSource(42)),
	)
	return client, repo
}

const marketsPage = `[
	{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":50000,
	 "market_cap":1000000000000,"market_cap_rank":1,"total_volume":30000000000,"high_24h":51000,"low_24h":49000,
	 "price_change_percentage_24h":2.5,"price_change_percentage_7d_in_currency":5.5,
	 "price_change_percentage_30d_in_currency":-3.1,"ath":69000},
	{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000,"market_cap":null,"market_cap_rank":2}
]`

func TestFetchMarketSnapshot_SinglePage(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		assert.Equal(t, "100", q.Get("per_page"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "false", q.Get("sparkline"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, marketsPage)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	assets, err := client.FetchMarketSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	btc := assets[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, domain.AssetTypeCrypto, btc.Type)
	assert.Equal(t, 50000.0, btc.CurrentPrice)
	assert.Equal(t, 2.5, btc.Change24h())
	assert.Equal(t, 5.5, btc.Change7d())
	assert.Equal(t, -3.1, btc.Change30d())
	assert.Equal(t, 1, btc.Rank())
	assert.Equal(t, 69000.0, btc.ATH())

	eth := assets[1]
	assert.Equal(t, domain.AssetTypeCrypto, eth.Type)
	assert.Nil(t, eth.MarketCap)
	assert.Nil(t, eth.ChangePercent24h)

	// served from cache
	again, err := client.FetchMarketSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, assets, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchMarketSnapshot_FirstPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	assets, err := client.FetchMarketSnapshot(ctx)
	require.Error(t, err)
	assert.Nil(t, assets)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)

	_, ok := repo.Get(ctx, clientdata.KeyMarketData)
	assert.False(t, ok, "failed snapshot must not be cached")
}

func TestFetchMarketSnapshot_MalformedFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":{"error_code":429}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	_, err := client.FetchMarketSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFetchMarketSnapshot_NullFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `null`)
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	assets, err := client.FetchMarketSnapshot(ctx)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, assets)

	_, ok := repo.Get(ctx, clientdata.KeyMarketData)
	assert.False(t, ok, "null page must not be cached")
}

func TestParseMarkets_EmptyArrayIsValid(t *testing.T) {
	coins, err := parseMarkets([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, coins)
}

func TestFetchMarketSnapshot_PartialPages(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		switch page {
		case "1":
			fmt.Fprint(w, `[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000}]`)
		case "2":
			w.WriteHeader(http.StatusBadGateway)
		case "3":
			fmt.Fprint(w, `[{"id":"dogecoin","symbol":"doge","name":"Dogecoin","current_price":0.1}]`)
		}
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{
		CoinsPerPage:    1,
		TotalPages:      3,
		PaginationDelay: time.Millisecond,
	})
	ctx := context.Background()

	assets, err := client.FetchMarketSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "bitcoin", assets[0].ID)
	assert.Equal(t, "dogecoin", assets[1].ID)
	assert.Equal(t, []string{"1", "2", "3"}, pages)

	var cached []domain.Asset
	assert.True(t, repo.GetInto(ctx, clientdata.KeyMarketData, &cached))
	assert.Len(t, cached, 2)
}

func TestFetchMarketSnapshot_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchMarketSnapshot(ctx)
	assert.Error(t, err)
}

func TestToAsset_ClampsNegativePrice(t *testing.T) {
	price := -4.0
	asset := toAsset(marketCoin{ID: "weird", CurrentPrice: &price})
	assert.Equal(t, 0.0, asset.CurrentPrice)

	asset = toAsset(marketCoin{ID: "missing"})
	assert.Equal(t, 0.0, asset.CurrentPrice)
}

const detailBody = `{
	"id":"bitcoin","symbol":"btc","name":"Bitcoin",
	"description":{"en":"The first cryptocurrency."},
	"image":{"large":"https://img/btc-large.png"},
	"links":{"homepage":["https://bitcoin.org","",""],"blockchain_site":["https://blockchair.com/bitcoin",""]},
	"market_data":{
		"current_price":{"usd":50000,"eur":46000},
		"market_cap":{"usd":980000000000},
		"total_volume":{"usd":25000000000},
		"high_24h":{"usd":51000},"low_24h":{"usd":49000},
		"ath":{"usd":69045},"atl":{"usd":67.81},
		"ath_date":{"usd":"2021-11-10T14:24:11.849Z"},
		"atl_date":{"usd":"2013-07-06T00:00:00.000Z"},
		"price_change_percentage_24h":1.2,
		"price_change_percentage_7d":-3.4,
		"price_change_percentage_30d":10.5,
		"price_change_percentage_1y":120.3,
		"circulating_supply":19600000,
		"total_supply":21000000
	}
}`

func TestFetchAssetDetail_Success(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("localization"))
		assert.Equal(t, "false", r.URL.Query().Get("tickers"))
		fmt.Fprint(w, detailBody)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	rec := client.FetchAssetDetail(ctx, "bitcoin")
	assert.False(t, rec.Placeholder)
	assert.Empty(t, rec.FallbackReason)
	assert.Equal(t, "Bitcoin", rec.Name)
	assert.Equal(t, domain.AssetTypeCrypto, rec.Type)
	assert.Equal(t, "The first cryptocurrency.", rec.Description)
	assert.Equal(t, 50000.0, rec.MarketData.CurrentPrice)
	assert.Equal(t, 120.3, rec.MarketData.Change1y)
	assert.Equal(t, 21000000.0, rec.MarketData.TotalSupply)
	assert.Equal(t, 2021, rec.MarketData.ATHDate.Year())
	assert.Equal(t, []string{"https://bitcoin.org"}, rec.Links.Homepage)
	assert.Equal(t, []string{"https://blockchair.com/bitcoin"}, rec.Links.BlockchainSite)
	assert.Equal(t, "https://img/btc-large.png", rec.ImageLarge)

	cached := client.FetchAssetDetail(ctx, "bitcoin")
	assert.Equal(t, rec.MarketData.CurrentPrice, cached.MarketData.CurrentPrice)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func assertPlaceholder(t *testing.T, rec domain.DetailRecord, id string) {
	t.Helper()
	assert.True(t, rec.Placeholder)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, 54321.0, rec.MarketData.CurrentPrice)
	assert.Equal(t, 1e12, rec.MarketData.MarketCap)
	assert.Equal(t, 3.5e10, rec.MarketData.TotalVolume)
	assert.Equal(t, 55000.0, rec.MarketData.High24h)
	assert.Equal(t, 53000.0, rec.MarketData.Low24h)
	assert.Equal(t, -2.5, rec.MarketData.Change24h)
	assert.Equal(t, 5.1, rec.MarketData.Change7d)
	assert.Equal(t, 12.4, rec.MarketData.Change30d)
	assert.Equal(t, 45.8, rec.MarketData.Change1y)
	assert.Equal(t, 19e6, rec.MarketData.CirculatingSupply)
	assert.Equal(t, 21e6, rec.MarketData.TotalSupply)
	assert.Equal(t, 69000.0, rec.MarketData.ATH)
	assert.Equal(t, 67.0, rec.MarketData.ATL)
	assert.Contains(t, rec.Description, "DEMO MODE")
}

func TestFetchAssetDetail_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{})

	rec := client.FetchAssetDetail(context.Background(), "nonexistent-coin")
	assertPlaceholder(t, rec, "nonexistent-coin")
	assert.Equal(t, "not_found", rec.FallbackReason)
	assert.Equal(t, "Nonexistent-coin", rec.Name)
	assert.Equal(t, "NON", rec.Symbol)

	_, ok := repo.Get(context.Background(), clientdata.DetailKey("nonexistent-coin"))
	assert.False(t, ok, "placeholders are never cached")
}

func TestFetchAssetDetail_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, _ := newTestClient(t, baseURL, Config{})

	rec := client.FetchAssetDetail(context.Background(), "bitcoin")
	assertPlaceholder(t, rec, "bitcoin")
	assert.Equal(t, "unreachable", rec.FallbackReason)
}

func TestFetchAssetDetail_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"bitcoin","name":"Bitcoin"}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	rec := client.FetchAssetDetail(context.Background(), "bitcoin")
	assertPlaceholder(t, rec, "bitcoin")
	assert.Equal(t, "malformed", rec.FallbackReason)
}

func TestFetchPriceHistory_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		fmt.Fprint(w, `{"prices":[[1700000000000,50000.5],[1700086400000,51000]],"market_caps":[],"total_volumes":[]}`)
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	points, err := client.FetchPriceHistory(ctx, "bitcoin", Days(7))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1700000000000), points[0].TimestampMs)
	assert.Equal(t, 50000.5, points[0].Price)

	var cached []domain.PricePoint
	assert.True(t, repo.GetInto(ctx, clientdata.HistoryKey("bitcoin", "7"), &cached))
	assert.Equal(t, points, cached)
}

func TestFetchPriceHistory_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	points, err := client.FetchPriceHistory(context.Background(), "bitcoin", Days(30))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Nil(t, points)

	// chart callers still get a series
	series := client.HistoryWithFallback(context.Background(), "bitcoin", Days(30))
	assert.Len(t, series, 31)
}

func TestFetchPriceHistory_MaxUnauthorizedRetriesWith365(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		days := r.URL.Query().Get("days")
		mu.Lock()
		requested = append(requested, days)
		mu.Unlock()

		if days == "max" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"prices":[[1700000000000,1.5]]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	points, err := client.FetchPriceHistory(context.Background(), "bitcoin", MaxRange)
	require.NoError(t, err)
	assert.Equal(t, []string{"max", "365"}, requested)
	require.Len(t, points, 1)
	assert.Equal(t, 1.5, points[0].Price)
}

func TestFetchPriceHistory_UnauthorizedWithoutMaxFallsBack(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	points, err := client.FetchPriceHistory(context.Background(), "bitcoin", Days(7))
	require.NoError(t, err)
	assert.Len(t, points, 8)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchPriceHistory_NotFoundYieldsSyntheticSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, repo := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	points, err := client.FetchPriceHistory(ctx, "nonexistent-coin", Days(30))
	require.NoError(t, err)
	require.Len(t, points, 31)

	for i, p := range points {
		assert.Greater(t, p.Price, 0.0)
		assert.GreaterOrEqual(t, p.Price, 10.0)
		if i > 0 {
			assert.Equal(t, int64(24*time.Hour/time.Millisecond), p.TimestampMs-points[i-1].TimestampMs)
		}
	}
	assert.Equal(t, testNow.UnixMilli(), points[len(points)-1].TimestampMs)

	_, ok := repo.Get(ctx, clientdata.HistoryKey("nonexistent-coin", "30"))
	assert.False(t, ok, "synthetic series are never cached")
}

func TestFetchPriceHistory_MissingPricesYieldsSyntheticSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"market_caps":[]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	points, err := client.FetchPriceHistory(context.Background(), "bitcoin", MaxRange)
	require.NoError(t, err)
	assert.Len(t, points, 366)
}

func TestSyntheticHistory_SeedRange(t *testing.T) {
	client, _ := newTestClient(t, "http://unused", Config{})

	points := client.syntheticHistory(Days(0))
	require.Len(t, points, 1)
	// seed in [50000, 60000) moved by at most 2.5%
	assert.InDelta(t, 55000, points[0].Price, 5000+60000*0.025)
}

func TestFetchPriceHistory_HugeRangeIsCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	points, err := client.FetchPriceHistory(context.Background(), "bitcoin", Days(math.MaxInt))
	require.NoError(t, err)
	assert.Len(t, points, MaxHistoryDays+1)
}

func TestPlaceholderDetail_MultiByteID(t *testing.T) {
	rec := placeholderDetail("éclair")
	assert.Equal(t, "Éclair", rec.Name)
	assert.Equal(t, "ÉCL", rec.Symbol)
	assert.True(t, utf8.ValidString(rec.Name))
	assert.True(t, utf8.ValidString(rec.Symbol))

	rec = placeholderDetail("ab")
	assert.Equal(t, "Ab", rec.Name)
	assert.Equal(t, "AB", rec.Symbol)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	for i := 0; i < breakerFailures; i++ {
		client.FetchAssetDetail(ctx, "bitcoin")
	}
	assert.Equal(t, "open", client.BreakerState())

	rec := client.FetchAssetDetail(ctx, "bitcoin")
	assert.True(t, rec.Placeholder)
	assert.Equal(t, "unreachable", rec.FallbackReason)
	assert.Equal(t, int32(breakerFailures), atomic.LoadInt32(&hits))
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, Config{})

	for i := 0; i < breakerFailures+2; i++ {
		client.FetchAssetDetail(context.Background(), "missing")
	}
	assert.Equal(t, "closed", client.BreakerState())
}

func TestParseHistoryRange(t *testing.T) {
	rng, err := ParseHistoryRange("max")
	require.NoError(t, err)
	assert.True(t, rng.IsMax())
	assert.Equal(t, "max", rng.String())

	rng, err = ParseHistoryRange("30")
	require.NoError(t, err)
	assert.Equal(t, Days(30), rng)
	assert.Equal(t, "30", rng.String())

	rng, err = ParseHistoryRange("3650")
	require.NoError(t, err)
	assert.Equal(t, Days(MaxHistoryDays), rng)

	for _, bad := range []string{"", "0", "-3", "abc", "3651", "9223372036854775807"} {
		_, err := ParseHistoryRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: 404, URL: "http://x/coins/y"}
	assert.True(t, err.IsNotFound())
	assert.Contains(t, err.Error(), "404")
	assert.False(t, (&HTTPError{StatusCode: 500}).IsNotFound())
}
