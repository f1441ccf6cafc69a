// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/clients/mockmarket"
	"github.com/aristath/marketboard/internal/database"
	"github.com/aristath/marketboard/internal/metrics"
	"github.com/aristath/marketboard/internal/modules/dashboard"
	"github.com/aristath/marketboard/internal/scheduler"
	"github.com/go-redis/redis/v8"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server for access to services.
type Container struct {
	// Databases
	CacheDB *database.DB // cache.db - Cache Store backing (unless Redis is configured)

	// Cache store
	RedisClient  *redis.Client          // nil unless REDIS_ADDR is set and reachable
	CacheStorage clientdata.Storage     // SQLite or Redis backend
	CacheRepo    *clientdata.Repository // TTL envelope layer used by every client

	// Observability
	Metrics *metrics.Registry

	// Clients
	CoinGeckoClient *coingecko.Client       // Live crypto market data
	StockSource     *mockmarket.StockSource // Generated stock listings
	SteamSource     *mockmarket.SteamSource // Generated Steam listings

	// Services
	Dashboard *dashboard.Controller
	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to registered jobs for manual triggering
type JobInstances struct {
	DashboardRefresh  scheduler.Job
	ClientDataCleanup scheduler.Job
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
}
