package worker

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paceline/paceline/pkg/codec"
	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/log"
	"github.com/paceline/paceline/pkg/metrics"
	"github.com/paceline/paceline/pkg/protocol"
	"github.com/paceline/paceline/pkg/solver"
	"github.com/paceline/paceline/pkg/types"
)

// DefaultKillRetryInterval is how long an unanswered stop signal waits
// before being re-sent to the solver
const DefaultKillRetryInterval = time.Second

// Config holds worker configuration
type Config struct {
	Spec       types.RunSpec
	Session    protocol.Session
	Supervisor solver.Supervisor
	Broker     *events.Broker // optional race event stream

	// KillRetryInterval overrides the stop-signal retry cadence;
	// zero means DefaultKillRetryInterval
	KillRetryInterval time.Duration
}

// Worker drives one race run: it bootstraps the shared variables,
// launches the solver with the best globally known bound, republishes the
// solver's records, and hands the session to the receiver loop for the
// inbound direction.
type Worker struct {
	runID   string
	spec    types.RunSpec
	session protocol.Session
	sup     solver.Supervisor
	broker  *events.Broker
	retry   time.Duration

	stopVar string
	solPath string

	state  *state
	logger zerolog.Logger

	result types.RunResult
}

// NewWorker creates a worker for one race run
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("worker requires a session")
	}
	if cfg.Supervisor == nil {
		return nil, fmt.Errorf("worker requires a solver supervisor")
	}
	if cfg.Spec.Solver == "" || cfg.Spec.Stub == "" {
		return nil, fmt.Errorf("worker requires a solver and an instance stub")
	}
	if cfg.KillRetryInterval <= 0 {
		cfg.KillRetryInterval = DefaultKillRetryInterval
	}
	if cfg.Spec.WorkDir == "" {
		cfg.Spec.WorkDir = "."
	}

	runID := uuid.New().String()
	return &Worker{
		runID:   runID,
		spec:    cfg.Spec,
		session: cfg.Session,
		sup:     cfg.Supervisor,
		broker:  cfg.Broker,
		retry:   cfg.KillRetryInterval,
		stopVar: protocol.StopVarName(cfg.Spec.Stub),
		solPath: canonicalSolutionPath(cfg.Spec.WorkDir, cfg.Spec.Stub),
		state:   newState(),
		logger: log.WithComponent("worker").With().
			Str("run_id", runID).
			Str("instance", cfg.Spec.Stub).
			Logger(),
	}, nil
}

// RunID returns this run's identity
func (w *Worker) RunID() string {
	return w.runID
}

// Stop ends the race from outside. The control loop notices on its next
// pass, stops the solver, and collects its exit status; Run returns as
// usual.
func (w *Worker) Stop() {
	w.state.stop()
}

// Run executes the race from bootstrap to solver exit. It blocks until
// the solver process has terminated and any pending stop handshake has
// completed, and reports the solver's exit status in the result.
func (w *Worker) Run() (types.RunResult, error) {
	timer := metrics.NewTimer()
	vars, err := w.session.AwaitInitialVariables()
	if err != nil {
		return w.result, err
	}
	if w.session.Coordinated() {
		timer.ObserveDuration(metrics.BootstrapDuration)
		metrics.RegisterComponent("session", true, "")
		w.publish(&events.Event{
			Type:  events.EventSessionConnected,
			Value: timer.Duration().Seconds(),
		})
	}

	// Peers that already finished the instance make this run redundant
	if w.spec.StopMode && vars.Stopped {
		return w.earlyStop()
	}

	bound := w.spec.InitialBound
	if vars.HasRecord {
		w.observeBest(vars.Record)
		if vars.Record < bound {
			w.logger.Info().
				Float64("initial", bound).
				Float64("record", vars.Record).
				Msg("Tightening initial bound to the shared record")
			bound = vars.Record
		}
	}

	handle, err := w.sup.Launch(solver.LaunchSpec{
		Solver:     w.spec.Solver,
		Stub:       w.spec.Stub,
		Bound:      bound,
		ParamsFile: w.spec.ParamsFile,
		WorkDir:    w.spec.WorkDir,
	})
	if err != nil {
		return w.result, err
	}
	metrics.RegisterComponent("solver", true, "")
	w.publish(&events.Event{Type: events.EventSolverLaunched, Value: bound})

	var recv *receiver
	var wg sync.WaitGroup
	if w.session.Coordinated() {
		recv = newReceiver(w, handle)
		wg.Add(1)
		go func() {
			defer wg.Done()
			recv.run()
		}()
	}

	status, loopErr := w.consumeEvents(handle)

	w.state.stop()
	if err := w.session.CloseWrite(); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to half-close session")
	}
	wg.Wait()

	w.result.ExitStatus = status
	if recv != nil {
		w.foldReceiver(recv)
		if loopErr == nil {
			loopErr = recv.err
		}
	}

	w.publish(&events.Event{Type: events.EventSolverClosed, Value: float64(status)})
	if w.session.Coordinated() {
		w.publish(&events.Event{Type: events.EventSessionClosed})
	}

	if !w.result.HadData {
		w.logger.Warn().Msg("Solver finished without reporting any data")
	}

	w.logger.Info().
		Int("status", status).
		Int("records_published", w.result.RecordsPublished).
		Int("records_received", w.result.RecordsReceived).
		Msg("Race finished")
	return w.result, loopErr
}

// consumeEvents reads solver events until the solver closes or the
// session dies under it, returning the solver's exit status
func (w *Worker) consumeEvents(handle solver.Handle) (int, error) {
	for {
		if !w.state.running() {
			// The receiver ended the session while the solver was
			// still racing; stop the solver and collect its exit
			// status so no orphan process is left behind.
			return w.stopAndReap(handle), nil
		}

		ev, err := handle.Next()
		if err != nil {
			// The event stream contract ends with a closed event; a
			// bare stream end is a supervisor fault
			metrics.UpdateComponent("solver", false, "event stream ended without closing")
			return 1, fmt.Errorf("solver event stream ended without closing: %w", err)
		}
		metrics.SolverEvents.WithLabelValues(string(ev.Kind)).Inc()

		switch ev.Kind {
		case solver.EventIncumbent:
			w.result.HadData = true
			w.logger.Info().Float64("value", ev.Value).Msg("Found new record")
			if err := w.publishRecord(codec.Record{Value: ev.Value}); err != nil {
				return w.stopAndReap(handle), err
			}

		case solver.EventIncumbentSolution:
			w.logger.Info().
				Float64("value", ev.Value).
				Int("seq", ev.Seq).
				Msg("Found new record with solution")
			rec := codec.Record{Value: ev.Value, Solution: w.collectSolution(ev.Seq)}
			if err := w.publishRecord(rec); err != nil {
				return w.stopAndReap(handle), err
			}

		case solver.EventResult:
			w.result.HadData = true
			if err := w.publishRecord(codec.Record{Value: ev.Value}); err != nil {
				return w.stopAndReap(handle), err
			}
			if w.spec.StopMode {
				if err := w.broadcastStop(); err != nil {
					return w.stopAndReap(handle), err
				}
			}
			w.reportResult(ev)

		case solver.EventClosed:
			return ev.Status, nil
		}
	}
}

// publishRecord proposes a record to the agent and tracks the local best
func (w *Worker) publishRecord(rec codec.Record) error {
	if err := w.session.ProposeRecord(rec); err != nil {
		metrics.UpdateComponent("session", false, err.Error())
		return err
	}
	w.result.RecordsPublished++
	w.observeBest(rec.Value)
	w.publish(&events.Event{Type: events.EventRecordPublished, Value: rec.Value})
	return nil
}

// broadcastStop sets the instance's stop variable, asking every peer
// racing it to halt
func (w *Worker) broadcastStop() error {
	w.logger.Info().Str("stop_var", w.stopVar).Msg("Got result, asking peers to stop")
	if err := w.session.ProposeStop(); err != nil {
		metrics.UpdateComponent("session", false, err.Error())
		return err
	}
	w.publish(&events.Event{Type: events.EventStopRequested})
	return nil
}

// collectSolution reads the solution the solver materialized for a
// sequence number and installs it as the canonical solution file.
// Propagating the value matters more than the payload, so a failed read
// degrades to a bare record with a warning.
func (w *Worker) collectSolution(seq int) []byte {
	blob, err := os.ReadFile(outsolPath(w.spec.WorkDir, seq))
	if err != nil {
		w.logger.Warn().Err(err).Int("seq", seq).Msg("Failed to read solver solution file")
		return nil
	}
	if err := writeSolutionFile(w.solPath, blob); err != nil {
		w.logger.Warn().Err(err).Str("path", w.solPath).Msg("Failed to update canonical solution file")
	}
	return blob
}

// reportResult logs the final answer's diagnostic line. The canonical
// file is only guaranteed written by the solution-carrying event path, so
// a missing file is reported, not fatal.
func (w *Worker) reportResult(ev solver.Event) {
	line, err := firstSolutionLine(w.solPath)
	if err != nil {
		w.logger.Warn().
			Err(err).
			Float64("value", ev.Value).
			Int("status", ev.Status).
			Msg("Solver reported a result but no solution file was readable")
		return
	}
	w.logger.Info().
		Float64("value", ev.Value).
		Int("status", ev.Status).
		Str("solution", line).
		Msg("Solver reported final result")
}

// earlyStop is the bootstrap short circuit: peers already finished this
// instance, so the worker leaves the race before launching anything
func (w *Worker) earlyStop() (types.RunResult, error) {
	w.logger.Info().
		Str("stop_var", w.stopVar).
		Msg("Race already stopped, skipping solver launch")

	if err := w.session.CloseWrite(); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to half-close session")
	}
	if err := writeSolutionFile(w.solPath, nil); err != nil {
		return w.result, err
	}
	w.publish(&events.Event{Type: events.EventEarlyStop})
	return w.result, nil
}

// stopAndReap ends a solver the race no longer needs: one stop signal
// immediately, repeated every retry interval until the closed event
// confirms the exit
func (w *Worker) stopAndReap(handle solver.Handle) int {
	w.state.stop()
	if err := handle.Stop(); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to stop solver")
	}

	statusCh := make(chan int, 1)
	go func() {
		for {
			ev, err := handle.Next()
			if err != nil {
				statusCh <- 0
				return
			}
			if ev.Kind == solver.EventClosed {
				statusCh <- ev.Status
				return
			}
		}
	}()

	ticker := time.NewTicker(w.retry)
	defer ticker.Stop()
	for {
		select {
		case status := <-statusCh:
			return status
		case <-ticker.C:
			w.logger.Warn().Msg("Solver has not stopped yet, re-sending stop signal")
			if err := handle.Stop(); err != nil {
				w.logger.Warn().Err(err).Msg("Failed to re-send stop signal")
			}
			w.publish(&events.Event{Type: events.EventKillRetry})
		}
	}
}

// observeBest keeps the run result's best value at the lowest seen
func (w *Worker) observeBest(value float64) {
	if !w.result.HasBest || value < w.result.BestValue {
		w.result.BestValue = value
		w.result.HasBest = true
	}
}

// foldReceiver merges the receiver loop's outcome into the run result
// after the join
func (w *Worker) foldReceiver(r *receiver) {
	w.result.RecordsReceived = r.recordsReceived
	w.result.SolutionsStored = r.solutionsStored
	if r.bestSeen {
		w.observeBest(r.best)
	}
}

// publish emits a race event when a broker is attached
func (w *Worker) publish(ev *events.Event) {
	if w.broker == nil {
		return
	}
	ev.RunID = w.runID
	w.broker.Publish(ev)
}
