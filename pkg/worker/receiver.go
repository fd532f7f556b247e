package worker

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/paceline/paceline/pkg/codec"
	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/log"
	"github.com/paceline/paceline/pkg/metrics"
	"github.com/paceline/paceline/pkg/protocol"
	"github.com/paceline/paceline/pkg/solver"
	"github.com/paceline/paceline/pkg/transport"
)

// receiver is the update receiver loop: it applies peer records to the
// solver and executes the stop/kill negotiation. One receiver runs per
// coordinated session, concurrently with the control loop.
type receiver struct {
	worker *Worker
	handle solver.Handle
	logger zerolog.Logger

	// kill negotiation state, local to this loop
	killing    bool
	nextKillAt time.Time

	// outcome, folded into the run result after the join
	seq             int
	recordsReceived int
	solutionsStored int
	best            float64
	bestSeen        bool
	err             error
}

func newReceiver(w *Worker, handle solver.Handle) *receiver {
	return &receiver{
		worker: w,
		handle: handle,
		logger: log.WithComponent("receiver").With().
			Str("run_id", w.runID).
			Logger(),
	}
}

// run consumes inbound frames until the running flag clears, the agent
// closes the stream, or a protocol violation aborts the session. The
// terminal error, if any, is left in r.err for the control loop to
// surface after the join.
func (r *receiver) run() {
	defer func() {
		if r.err != nil {
			metrics.UpdateComponent("session", false, r.err.Error())
		}
		r.worker.state.stop()
	}()

	for r.worker.state.running() {
		frame, err := r.worker.session.Receive()
		if errors.Is(err, transport.ErrPollTimeout) {
			r.retryKill()
			continue
		}
		if errors.Is(err, io.EOF) {
			// Normal session end, not a failure
			r.logger.Info().Msg("Agent closed the session")
			return
		}
		if err != nil {
			r.err = err
			return
		}

		if err := r.apply(frame); err != nil {
			r.err = err
			return
		}
	}
}

// retryKill re-sends the stop signal when a previous one went unanswered
// for a full retry interval. Poll timeouts are the only idle moments the
// loop has, so the retry check rides on them.
func (r *receiver) retryKill() {
	if !r.killing || time.Now().Before(r.nextKillAt) {
		return
	}

	r.logger.Warn().Msg("Solver has not stopped yet, re-sending stop signal")
	if err := r.handle.Stop(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to re-send stop signal")
	}
	r.nextKillAt = r.nextKillAt.Add(r.worker.retry)
	r.worker.publish(&events.Event{Type: events.EventKillRetry})
}

// apply dispatches one inbound frame. Anything but a record update, this
// instance's stop signal, or another instance's stop traffic is a
// protocol violation.
func (r *receiver) apply(frame []byte) error {
	msg, err := protocol.ParseVarValue(frame)
	if err != nil {
		return err
	}

	switch {
	case msg.Name == protocol.RecordVar:
		return r.applyRecord(msg)

	case r.worker.spec.StopMode && msg.Name == r.worker.stopVar:
		if !msg.IsStopSignal() {
			return fmt.Errorf("%w: unexpected stop value %q", protocol.ErrProtocol, msg.Raw)
		}
		r.beginKill()
		return nil

	case r.worker.spec.StopMode && protocol.IsStopVar(msg.Name):
		// Another instance sharing the agent; not ours to act on
		r.logger.Info().
			Str("variable", msg.Name).
			Msg("Ignoring stop for another instance")
		return nil

	default:
		return fmt.Errorf("%w: unexpected variable update %q", protocol.ErrProtocol, string(frame))
	}
}

// applyRecord pushes a peer's record into the solver, materializing any
// solution payload as an insol file first
func (r *receiver) applyRecord(msg protocol.VarValue) error {
	rec, err := codec.ParseRecord(msg.Raw)
	if err != nil {
		return fmt.Errorf("%w: bad record update: %v", protocol.ErrProtocol, err)
	}

	r.recordsReceived++
	if !r.bestSeen || rec.Value < r.best {
		r.best = rec.Value
		r.bestSeen = true
	}
	r.worker.publish(&events.Event{Type: events.EventRecordReceived, Value: rec.Value})

	if !rec.HasSolution() {
		r.logger.Info().Float64("record", rec.Value).Msg("Applying remote record")
		r.pushBound(rec.Value)
		return nil
	}

	r.seq++
	path := insolPath(r.worker.spec.WorkDir, r.seq)
	if err := writeSolutionFile(path, rec.Solution); err != nil {
		// Without the file the sequence number would point nowhere;
		// degrade to a bare bound update
		r.logger.Warn().
			Err(err).
			Str("path", path).
			Msg("Failed to store remote solution, pushing bound only")
		r.pushBound(rec.Value)
		return nil
	}

	r.solutionsStored++
	r.worker.publish(&events.Event{
		Type:     events.EventSolutionStored,
		Value:    rec.Value,
		Metadata: map[string]string{"seq": strconv.Itoa(r.seq)},
	})
	r.logger.Info().
		Float64("record", rec.Value).
		Int("seq", r.seq).
		Msg("Applying remote record with solution")

	if err := r.handle.PushSolution(rec.Value, r.seq); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to push solution into solver")
	}
	return nil
}

// pushBound feeds a bound into the solver. The solver tearing its stdin
// down mid-exit is a normal race with the closed event, so failures are
// reported but never abort the loop.
func (r *receiver) pushBound(value float64) {
	if err := r.handle.PushBound(value); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to push bound into solver")
	}
}

// beginKill starts (or restarts) the stop negotiation: signal the solver
// now and arm the retry clock in case the signal is missed
func (r *receiver) beginKill() {
	r.logger.Info().Msg("Peer finished the race, stopping solver")
	r.killing = true
	r.nextKillAt = time.Now().Add(r.worker.retry)
	r.worker.publish(&events.Event{Type: events.EventStopReceived})

	if err := r.handle.Stop(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to send stop signal")
	}
}
