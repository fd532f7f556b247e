package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/paceline/paceline/pkg/types"
)

// RunStatus is the live view of the current race run served at /status
type RunStatus struct {
	RunID            string         `json:"run_id"`
	TaskID           string         `json:"task_id,omitempty"`
	Instance         string         `json:"instance"`
	StopMode         bool           `json:"stop_mode"`
	Phase            types.RunPhase `json:"phase"`
	Connected        bool           `json:"connected"`
	SolverRunning    bool           `json:"solver_running"`
	BestBound        float64        `json:"best_bound,omitempty"`
	HasBound         bool           `json:"has_bound"`
	RecordsPublished int64          `json:"records_published"`
	RecordsReceived  int64          `json:"records_received"`
	SolutionsStored  int64          `json:"solutions_stored"`
	KillRetries      int64          `json:"kill_retries"`
	StartedAt        time.Time      `json:"started_at"`
	Timestamp        time.Time      `json:"timestamp"`
}

var statusTracker = &StatusTracker{}

// StatusTracker accumulates the run view behind /status. Identity fields
// are set once at startup; counters and flags are updated by the Collector
// as race events flow through the broker.
type StatusTracker struct {
	mu     sync.RWMutex
	status RunStatus
}

// SetRun records the identity of the run this worker is executing
func SetRun(runID, taskID, instance string, stopMode bool) {
	statusTracker.mu.Lock()
	defer statusTracker.mu.Unlock()

	statusTracker.status = RunStatus{
		RunID:     runID,
		TaskID:    taskID,
		Instance:  instance,
		StopMode:  stopMode,
		Phase:     types.RunPhaseBootstrapping,
		StartedAt: time.Now(),
	}
}

// GetStatus returns a snapshot of the current run. Before SetRun the view
// reports the pending phase; the ops endpoint can come up ahead of the run.
func GetStatus() RunStatus {
	statusTracker.mu.RLock()
	defer statusTracker.mu.RUnlock()

	status := statusTracker.status
	if status.Phase == "" {
		status.Phase = types.RunPhasePending
	}
	status.Timestamp = time.Now()
	return status
}

func updateStatus(update func(*RunStatus)) {
	statusTracker.mu.Lock()
	defer statusTracker.mu.Unlock()
	update(&statusTracker.status)
}

// StatusHandler returns an HTTP handler for the /status endpoint
func StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(GetStatus())
	}
}
