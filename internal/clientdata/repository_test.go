package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/marketboard/internal/metrics"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE cache_entries (key TEXT PRIMARY KEY, data TEXT NOT NULL);`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own :memory: database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRepo(t *testing.T, opts ...Option) (*Repository, *sql.DB, *fakeClock) {
	db := setupTestDB(t)
	clock := &fakeClock{now: time.UnixMilli(1700000000000)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewRepository(NewSQLiteStorage(db), zerolog.Nop(), opts...), db, clock
}

func countRows(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&n))
	return n
}

func TestSetGet_RoundTrip(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	type coin struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
		Tags  []string
	}
	in := []coin{{ID: "bitcoin", Price: 50000.5, Tags: []string{"pow"}}, {ID: "ethereum", Price: 3000}}

	repo.Set(ctx, KeyMarketData, in)

	var out []coin
	require.True(t, repo.GetInto(ctx, KeyMarketData, &out))
	assert.Equal(t, in, out)
}

func TestGet_Missing(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	payload, ok := repo.Get(context.Background(), "crypto_nothing")
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestGet_TTLBoundary(t *testing.T) {
	repo, db, clock := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, []int{1, 2, 3})

	clock.Advance(TTLMarketData - time.Millisecond)
	payload, ok := repo.Get(ctx, KeyMarketData)
	require.True(t, ok)
	assert.JSONEq(t, `[1,2,3]`, string(payload))

	clock.Advance(time.Millisecond)
	_, ok = repo.Get(ctx, KeyMarketData)
	assert.False(t, ok, "entry at exactly TTL age is stale")
	assert.Equal(t, 0, countRows(t, db), "stale entry is deleted on read")
}

func TestGet_MockNamespacesUseLongerTTL(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyStocksData, []string{"AAPL"})
	repo.Set(ctx, KeySteamData, []string{"AK-47"})
	repo.Set(ctx, KeyMarketData, []string{"bitcoin"})

	clock.Advance(5 * time.Minute)
	_, ok := repo.Get(ctx, KeyStocksData)
	assert.True(t, ok)
	_, ok = repo.Get(ctx, KeySteamData)
	assert.True(t, ok)
	_, ok = repo.Get(ctx, KeyMarketData)
	assert.False(t, ok)

	clock.Advance(5 * time.Minute)
	_, ok = repo.Get(ctx, KeyStocksData)
	assert.False(t, ok)
}

func TestTTLFor_LongestPrefixWins(t *testing.T) {
	repo, _, _ := newTestRepo(t,
		WithDefaultTTL(time.Second),
		WithPrefixTTL("crypto_history_", 5*time.Minute),
	)

	assert.Equal(t, 5*time.Minute, repo.TTLFor(HistoryKey("bitcoin", "30")))
	assert.Equal(t, TTLMarketData, repo.TTLFor(DetailKey("bitcoin")))
	assert.Equal(t, TTLMockData, repo.TTLFor(KeySteamData))
	assert.Equal(t, time.Second, repo.TTLFor("unrelated"))
}

func TestGet_MalformedEntryIsDeleted(t *testing.T) {
	repo, db, _ := newTestRepo(t)
	ctx := context.Background()

	cases := map[string]string{
		"crypto_garbage":      "not json at all",
		"crypto_no_timestamp": `{"payload":{"a":1}}`,
		"crypto_no_payload":   `{"storedAtEpochMs":1700000000000}`,
	}
	for key, raw := range cases {
		_, err := db.Exec("INSERT INTO cache_entries (key, data) VALUES (?, ?)", key, raw)
		require.NoError(t, err)
	}

	for key := range cases {
		_, ok := repo.Get(ctx, key)
		assert.False(t, ok, key)
	}
	assert.Equal(t, 0, countRows(t, db))
}

func TestGetInto_TypeMismatchIsMiss(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, "a string")

	var out []int
	assert.False(t, repo.GetInto(ctx, KeyMarketData, &out))
}

func TestSet_OverwritesAndRefreshesTimestamp(t *testing.T) {
	repo, db, clock := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, "first")
	clock.Advance(50 * time.Second)
	repo.Set(ctx, KeyMarketData, "second")
	clock.Advance(50 * time.Second)

	var out string
	require.True(t, repo.GetInto(ctx, KeyMarketData, &out))
	assert.Equal(t, "second", out)
	assert.Equal(t, 1, countRows(t, db))
}

func TestSet_UnmarshalablePayloadIsSwallowed(t *testing.T) {
	m := metrics.New()
	repo, db, _ := newTestRepo(t, WithMetrics(m))

	assert.NotPanics(t, func() {
		repo.Set(context.Background(), KeyMarketData, make(chan int))
	})
	assert.Equal(t, 0, countRows(t, db))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWriteFailures.WithLabelValues("crypto")))
}

func TestClear_RemovesOnlyPrefix(t *testing.T) {
	repo, db, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, 1)
	repo.Set(ctx, DetailKey("bitcoin"), 2)
	repo.Set(ctx, KeyStocksData, 3)
	repo.Set(ctx, "CRYPTO_upper", 4)

	deleted := repo.Clear(ctx, PrefixCrypto)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 2, countRows(t, db))

	_, ok := repo.Get(ctx, KeyStocksData)
	assert.True(t, ok)
	_, ok = repo.Get(ctx, "CRYPTO_upper")
	assert.True(t, ok)
}

func TestDeleteExpired(t *testing.T) {
	repo, db, clock := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, 1)
	repo.Set(ctx, DetailKey("bitcoin"), 2)
	repo.Set(ctx, KeyStocksData, 3)
	_, err := db.Exec("INSERT INTO cache_entries (key, data) VALUES ('steam_broken', 'nope')")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	results, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"crypto": 2, "steam": 1}, results)
	assert.Equal(t, 1, countRows(t, db))
}

func TestDeleteExpired_NothingStale(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Set(ctx, KeyMarketData, 1)

	results, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

type failingStorage struct{}

var errStorage = errors.New("disk full")

func (failingStorage) Read(context.Context, string) (string, bool, error) {
	return "", false, errStorage
}
func (failingStorage) Write(context.Context, string, string) error { return errStorage }
func (failingStorage) Delete(context.Context, ...string) (int, error) {
	return 0, errStorage
}
func (failingStorage) Keys(context.Context, string) ([]string, error) { return nil, errStorage }

func TestRepository_StorageFailuresDegrade(t *testing.T) {
	m := metrics.New()
	repo := NewRepository(failingStorage{}, zerolog.Nop(), WithMetrics(m))
	ctx := context.Background()

	assert.NotPanics(t, func() { repo.Set(ctx, KeyMarketData, []int{1}) })

	_, ok := repo.Get(ctx, KeyMarketData)
	assert.False(t, ok)
	assert.Equal(t, 0, repo.Clear(ctx, PrefixCrypto))

	_, err := repo.DeleteExpired(ctx)
	assert.ErrorIs(t, err, errStorage)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("crypto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWriteFailures.WithLabelValues("crypto")))
}

func TestRepository_HitMetrics(t *testing.T) {
	m := metrics.New()
	repo, _, clock := newTestRepo(t, WithMetrics(m))
	ctx := context.Background()

	repo.Set(ctx, KeySteamData, 1)
	repo.Get(ctx, KeySteamData)
	clock.Advance(TTLMockData)
	repo.Get(ctx, KeySteamData)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("steam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheExpirations.WithLabelValues("steam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("steam")))
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "crypto", namespace(KeyMarketData))
	assert.Equal(t, "stocks", namespace(KeyStocksData))
	assert.Equal(t, "other", namespace("nounderscore"))
	assert.Equal(t, "other", namespace("_leading"))
}
