package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const cleanupTimeout = 30 * time.Second

// CleanupJob removes expired entries from the cache.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new client data cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	results, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired client data")
		return err
	}

	total := 0
	for ns, count := range results {
		j.log.Info().
			Str("namespace", ns).
			Int("deleted", count).
			Msg("Cleaned up expired cache entries")
		total += count
	}

	if total > 0 {
		j.log.Info().
			Int("total_deleted", total).
			Msg("Client data cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
