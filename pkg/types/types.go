package types

import (
	"time"
)

// NoBound is the sentinel above which an incumbent bound means "no bound".
// Bounds at or above this value are never passed to a solver.
const NoBound = 1e22

// RunSpec describes one worker invocation: which solver to race on which
// problem instance, and how the race should end.
type RunSpec struct {
	Solver       string  `yaml:"solver"`
	Stub         string  `yaml:"instance"`
	StopMode     bool    `yaml:"stopMode"`
	ParamsFile   string  `yaml:"paramsFile,omitempty"`
	InitialBound float64 `yaml:"initialBound,omitempty"`
	WorkDir      string  `yaml:"workDir,omitempty"`
}

// AgentInfo locates the coordination agent for a run
type AgentInfo struct {
	Address string
	Port    int // 0 means standalone, no agent
	TaskID  string
}

// Standalone reports whether the run has no agent configured
func (a AgentInfo) Standalone() bool {
	return a.Port == 0
}

// RunPhase tracks where a run is in its lifecycle
type RunPhase string

const (
	RunPhasePending       RunPhase = "pending"
	RunPhaseBootstrapping RunPhase = "bootstrapping"
	RunPhaseRacing        RunPhase = "racing"
	RunPhaseStopping      RunPhase = "stopping"
	RunPhaseFinished      RunPhase = "finished"
)

// RunInfo is the persisted identity and outcome of one worker run
type RunInfo struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Stub       string    `json:"stub"`
	StopMode   bool      `json:"stop_mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	ExitStatus int       `json:"exit_status"`
	BestValue  float64   `json:"best_value,omitempty"`
	HasBest    bool      `json:"has_best"`
}

// RunResult summarizes a finished run
type RunResult struct {
	ExitStatus       int
	BestValue        float64
	HasBest          bool
	HadData          bool // at least one incumbent or result observed
	RecordsPublished int
	RecordsReceived  int
	SolutionsStored  int
}
