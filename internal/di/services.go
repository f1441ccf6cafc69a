// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/clients/mockmarket"
	"github.com/aristath/marketboard/internal/config"
	"github.com/aristath/marketboard/internal/metrics"
	"github.com/aristath/marketboard/internal/modules/dashboard"
	"github.com/aristath/marketboard/internal/scheduler"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const redisPingTimeout = 3 * time.Second

// InitializeServices creates the cache store, market clients, dashboard and scheduler
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.CacheDB == nil {
		return fmt.Errorf("cache database must be initialized first")
	}

	container.Metrics = metrics.New()

	// Cache store backend: Redis when configured and reachable, otherwise cache.db
	container.CacheStorage = clientdata.NewSQLiteStorage(container.CacheDB.Conn())
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err := client.Ping(ctx).Err()
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Str("addr", cfg.RedisAddr).
				Msg("Redis unreachable, using SQLite cache storage")
			client.Close()
		} else {
			container.RedisClient = client
			container.CacheStorage = clientdata.NewRedisStorage(client)
			log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis cache storage")
		}
	}

	container.CacheRepo = clientdata.NewRepository(
		container.CacheStorage,
		log,
		clientdata.WithDefaultTTL(cfg.Cache.MarketTTL),
		clientdata.WithPrefixTTL(clientdata.PrefixCrypto, cfg.Cache.MarketTTL),
		clientdata.WithPrefixTTL(clientdata.PrefixStocks, cfg.Cache.MockTTL),
		clientdata.WithPrefixTTL(clientdata.PrefixSteam, cfg.Cache.MockTTL),
		clientdata.WithMetrics(container.Metrics),
	)

	// Market data sources
	container.CoinGeckoClient = coingecko.NewClient(
		coingecko.Config{
			BaseURL:         cfg.Market.BaseURL,
			CoinsPerPage:    cfg.Market.CoinsPerPage,
			TotalPages:      cfg.Market.TotalPages,
			PaginationDelay: cfg.Market.PaginationDelay,
			Timeout:         cfg.Market.HTTPTimeout,
		},
		container.CacheRepo,
		log,
		coingecko.WithMetrics(container.Metrics),
	)
	container.StockSource = mockmarket.NewStockSource(container.CacheRepo, log)
	container.SteamSource = mockmarket.NewSteamSource(container.CacheRepo, log)

	container.Dashboard = dashboard.NewController(
		container.CoinGeckoClient,
		container.StockSource,
		container.SteamSource,
		dashboard.Config{
			ChartDays:      cfg.Dashboard.ChartDays,
			EnableCharts:   cfg.Dashboard.EnableCharts,
			RateLimitDelay: cfg.Dashboard.RateLimitDelay,
			PreviewBaseURL: cfg.Dashboard.PreviewBaseURL,
		},
		log,
		dashboard.WithMetrics(container.Metrics),
	)

	container.Scheduler = scheduler.New(log)

	log.Info().Msg("Services initialized")
	return nil
}
