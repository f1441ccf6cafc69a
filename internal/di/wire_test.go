package di

import (
	"testing"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, jobs, err := Wire(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(container.Close)

	// Verify container is fully populated
	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.CacheRepo)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.CoinGeckoClient)
	assert.NotNil(t, container.StockSource)
	assert.NotNil(t, container.SteamSource)
	assert.NotNil(t, container.Dashboard)
	assert.Nil(t, container.RedisClient)
	assert.IsType(t, &clientdata.SQLiteStorage{}, container.CacheStorage)

	// Verify jobs are registered
	assert.NotNil(t, jobs.DashboardRefresh)
	assert.NotNil(t, jobs.ClientDataCleanup)

	registered := container.Scheduler.Jobs()
	require.Len(t, registered, 2)
	assert.Equal(t, "client_data_cleanup", registered[0].Name)
	assert.Equal(t, "@every 10m", registered[0].Schedule)
	assert.Equal(t, "dashboard_refresh", registered[1].Name)
	assert.Equal(t, "@every 1m0s", registered[1].Schedule)
}

func TestWire_InvalidCleanupSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.CleanupSchedule = "whenever"

	_, _, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register jobs")
}

func TestInitializeServices_UnreachableRedisFallsBackToSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	require.NoError(t, InitializeServices(container, cfg, log))
	assert.Nil(t, container.RedisClient)
	assert.IsType(t, &clientdata.SQLiteStorage{}, container.CacheStorage)
}

func TestInitializeServices_RequiresDatabases(t *testing.T) {
	err := InitializeServices(&Container{}, testConfig(t), zerolog.Nop())
	assert.Error(t, err)

	err = InitializeServices(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs_RequiresServices(t *testing.T) {
	_, err := RegisterJobs(&Container{}, testConfig(t), zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
