package clientdata

import "time"

// Key namespaces. Every cache key starts with one of these.
const (
	PrefixCrypto = "crypto_"
	PrefixStocks = "stocks_"
	PrefixSteam  = "steam_"
)

// Fixed cache keys.
const (
	KeyMarketData = "crypto_market_data"
	KeyStocksData = "stocks_data_cache"
	KeySteamData  = "steam_data_cache"
)

// Default TTLs, measured from the moment an entry is written.
const (
	TTLMarketData = 60 * time.Second // live CoinGecko snapshots, details and history
	TTLMockData   = 10 * time.Minute // generated stock and Steam data
)

// DetailKey returns the cache key for a coin detail record.
func DetailKey(id string) string {
	return PrefixCrypto + "detail_" + id
}

// HistoryKey returns the cache key for a coin price series.
// days is either a day count or "max".
func HistoryKey(id, days string) string {
	return PrefixCrypto + "history_" + id + "_" + days
}
