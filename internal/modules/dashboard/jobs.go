package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// refreshTimeout bounds one scheduled load cycle.
const refreshTimeout = 2 * time.Minute

// RefreshJob reloads the active tab on a schedule
type RefreshJob struct {
	controller *Controller
	log        zerolog.Logger
}

// NewRefreshJob creates the auto-refresh job
func NewRefreshJob(controller *Controller, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		controller: controller,
		log:        log.With().Str("job", "dashboard_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "dashboard_refresh"
}

// Run executes one refresh. It does nothing while a detail view is open
// or when a load is already running.
func (j *RefreshJob) Run() error {
	if j.controller.DetailOpen() {
		j.log.Debug().Msg("Detail view open, skipping refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	err := j.controller.Load(ctx)
	if errors.Is(err, ErrLoadInProgress) {
		j.log.Debug().Msg("Load already running, skipping refresh")
		return nil
	}
	return err
}
