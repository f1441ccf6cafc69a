// Package clientdata provides persistent caching for upstream market data.
// Entries are JSON envelopes holding the payload and the time it was written;
// freshness is decided on read against a per-namespace TTL.
package clientdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/marketboard/internal/metrics"
	"github.com/rs/zerolog"
)

// entry is the stored envelope.
type entry struct {
	Payload         json.RawMessage `json:"payload"`
	StoredAtEpochMs *int64          `json:"storedAtEpochMs"`
}

// Repository provides TTL-bounded cache operations over a Storage backend.
// Storage failures never reach callers: reads degrade to misses and writes are best-effort.
type Repository struct {
	store      Storage
	defaultTTL time.Duration
	prefixTTLs map[string]time.Duration
	now        func() time.Time
	metrics    *metrics.Registry
	log        zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithDefaultTTL sets the TTL used when no prefix matches.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		r.defaultTTL = ttl
	}
}

// WithPrefixTTL sets the TTL for keys starting with prefix.
func WithPrefixTTL(prefix string, ttl time.Duration) Option {
	return func(r *Repository) {
		r.prefixTTLs[prefix] = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithMetrics records hits, misses, expirations and write failures.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// NewRepository creates a repository with the market data TTL as default
// and the mock TTL for the stock and Steam namespaces.
func NewRepository(store Storage, log zerolog.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		defaultTTL: TTLMarketData,
		prefixTTLs: map[string]time.Duration{
			PrefixCrypto: TTLMarketData,
			PrefixStocks: TTLMockData,
			PrefixSteam:  TTLMockData,
		},
		now: time.Now,
		log: log.With().Str("component", "clientdata").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTLFor resolves the TTL for key by longest matching prefix.
func (r *Repository) TTLFor(key string) time.Duration {
	best := ""
	ttl := r.defaultTTL
	for prefix, d := range r.prefixTTLs {
		if strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
			best = prefix
			ttl = d
		}
	}
	return ttl
}

// Get returns the payload for key if it is still fresh.
// Expired and malformed entries are deleted and reported as absent.
func (r *Repository) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	ns := namespace(key)

	raw, ok, err := r.store.Read(ctx, key)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		r.metrics.CacheMiss(ns)
		return nil, false
	}
	if !ok {
		r.metrics.CacheMiss(ns)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.StoredAtEpochMs == nil || len(e.Payload) == 0 {
		r.log.Warn().Str("key", key).Msg("Discarding malformed cache entry")
		r.remove(ctx, key)
		r.metrics.CacheMiss(ns)
		return nil, false
	}

	if !r.fresh(key, *e.StoredAtEpochMs) {
		r.remove(ctx, key)
		r.metrics.CacheExpired(ns)
		r.metrics.CacheMiss(ns)
		return nil, false
	}

	r.metrics.CacheHit(ns)
	return e.Payload, true
}

// GetInto decodes a fresh payload into dst. A payload that does not decode counts as a miss.
func (r *Repository) GetInto(ctx context.Context, key string, dst interface{}) bool {
	payload, ok := r.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Cached payload does not match requested type")
		return false
	}
	return true
}

// Set writes payload under key with the current time, replacing any existing entry.
// Failures are logged and swallowed.
func (r *Repository) Set(ctx context.Context, key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache payload")
		r.metrics.CacheWriteFailed(namespace(key))
		return
	}

	storedAt := r.now().UnixMilli()
	envelope, err := json.Marshal(entry{Payload: data, StoredAtEpochMs: &storedAt})
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache envelope")
		r.metrics.CacheWriteFailed(namespace(key))
		return
	}

	if err := r.store.Write(ctx, key, string(envelope)); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		r.metrics.CacheWriteFailed(namespace(key))
	}
}

// Clear deletes every entry whose key starts with prefix and returns how many were removed.
func (r *Repository) Clear(ctx context.Context, prefix string) int {
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		r.log.Warn().Err(err).Str("prefix", prefix).Msg("Failed to list cache keys")
		return 0
	}

	deleted, err := r.store.Delete(ctx, keys...)
	if err != nil {
		r.log.Warn().Err(err).Str("prefix", prefix).Msg("Failed to clear cache")
		return 0
	}

	r.log.Info().Str("prefix", prefix).Int("deleted", deleted).Msg("Cleared cache namespace")
	return deleted
}

// DeleteExpired removes every stale or malformed entry and reports the count per namespace.
func (r *Repository) DeleteExpired(ctx context.Context) (map[string]int, error) {
	keys, err := r.store.Keys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}

	var stale []string
	for _, key := range keys {
		raw, ok, err := r.store.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}

		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.StoredAtEpochMs == nil {
			stale = append(stale, key)
			continue
		}
		if !r.fresh(key, *e.StoredAtEpochMs) {
			stale = append(stale, key)
		}
	}

	results := make(map[string]int)
	if len(stale) == 0 {
		return results, nil
	}

	sort.Strings(stale)
	if _, err := r.store.Delete(ctx, stale...); err != nil {
		return nil, fmt.Errorf("failed to delete expired entries: %w", err)
	}
	for _, key := range stale {
		ns := namespace(key)
		results[ns]++
		r.metrics.CacheExpired(ns)
	}
	return results, nil
}

func (r *Repository) fresh(key string, storedAtMs int64) bool {
	age := r.now().UnixMilli() - storedAtMs
	return age < r.TTLFor(key).Milliseconds()
}

func (r *Repository) remove(ctx context.Context, key string) {
	if _, err := r.store.Delete(ctx, key); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to delete cache entry")
	}
}

// namespace is the first underscore-separated segment of a key, used as a metrics label.
func namespace(key string) string {
	ns, _, found := strings.Cut(key, "_")
	if !found || ns == "" {
		return "other"
	}
	return ns
}
