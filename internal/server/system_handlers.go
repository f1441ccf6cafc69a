package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/marketboard/internal/database"
	"github.com/aristath/marketboard/internal/modules/dashboard"
	"github.com/aristath/marketboard/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// BreakerReporter exposes the upstream circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	cacheDB     *database.DB
	cacheStore  string
	scheduler   *scheduler.Scheduler
	breaker     BreakerReporter
	dashboard   *dashboard.Controller

	// Jobs (set after job registration)
	refreshJob scheduler.Job
	cleanupJob scheduler.Job
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	Goroutines    int             `json:"goroutines"`
	CacheStore    string          `json:"cache_store"`
	Upstream      string          `json:"upstream_breaker"`
	Dashboard     dashboard.State `json:"dashboard"`
}

// JobsStatusResponse represents scheduler job status
type JobsStatusResponse struct {
	TotalJobs int                 `json:"total_jobs"`
	Jobs      []scheduler.JobInfo `json:"jobs"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Stats       *database.Stats `json:"stats,omitempty"`
	Healthy     bool            `json:"healthy"`
	LastChecked string          `json:"last_checked"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	cacheDB *database.DB,
	cacheStore string,
	sched *scheduler.Scheduler,
	breaker BreakerReporter,
	controller *dashboard.Controller,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		cacheDB:     cacheDB,
		cacheStore:  cacheStore,
		scheduler:   sched,
		breaker:     breaker,
		dashboard:   controller,
	}
}

// SetJobs registers job references for manual triggering
func (h *SystemHandlers) SetJobs(refresh, cleanup scheduler.Job) {
	h.refreshJob = refresh
	h.cleanupJob = cleanup
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		CacheStore:    h.cacheStore,
	}
	if h.breaker != nil {
		response.Upstream = h.breaker.BreakerState()
	}
	if h.dashboard != nil {
		response.Dashboard = h.dashboard.State()
		if response.Dashboard.Offline {
			response.Status = "degraded"
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	var jobs []scheduler.JobInfo
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	})
}

// HandleDatabaseStats returns cache database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.cacheDB == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "cache database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := DatabaseStatsResponse{
		Name:        h.cacheDB.Name(),
		Path:        h.cacheDB.Path(),
		Healthy:     h.cacheDB.QuickCheck(ctx) == nil,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get cache database stats")
	} else {
		response.Stats = stats
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerRefresh runs the dashboard refresh job immediately
// POST /api/system/jobs/refresh
func (h *SystemHandlers) HandleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.refreshJob)
}

// HandleTriggerCleanup runs the cache cleanup job immediately
// POST /api/system/jobs/cache-cleanup
func (h *SystemHandlers) HandleTriggerCleanup(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, h.cleanupJob)
}

func (h *SystemHandlers) runJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil || h.scheduler == nil {
		h.log.Warn().Msg("Job not registered yet")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job run triggered")

	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": job.Name() + " completed",
	})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short sampling interval (100ms) to keep the endpoint responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
