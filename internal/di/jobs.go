// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/config"
	"github.com/aristath/marketboard/internal/modules/dashboard"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs and registers them with the scheduler.
// Returns JobInstances for manual triggering.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil || container.Dashboard == nil || container.CacheRepo == nil {
		return nil, fmt.Errorf("services must be initialized before jobs")
	}

	instances := &JobInstances{}

	// Auto-refresh of the active tab (skipped while a detail view is open)
	refresh := dashboard.NewRefreshJob(container.Dashboard, log)
	refreshSchedule := fmt.Sprintf("@every %s", cfg.Dashboard.UpdateInterval)
	if err := container.Scheduler.AddJob(refreshSchedule, refresh); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", refresh.Name(), err)
	}
	instances.DashboardRefresh = refresh

	// Expired cache entry cleanup
	cleanup := clientdata.NewCleanupJob(container.CacheRepo, log)
	if err := container.Scheduler.AddJob(cfg.Cache.CleanupSchedule, cleanup); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", cleanup.Name(), err)
	}
	instances.ClientDataCleanup = cleanup

	log.Info().Int("jobs", len(container.Scheduler.Jobs())).Msg("Jobs registered")
	return instances, nil
}
