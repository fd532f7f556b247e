package worker

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceline/paceline/pkg/codec"
	"github.com/paceline/paceline/pkg/protocol"
	"github.com/paceline/paceline/pkg/solver"
	"github.com/paceline/paceline/pkg/transport"
	"github.com/paceline/paceline/pkg/types"
)

// fakeSession scripts the agent side of a session in-process
type fakeSession struct {
	coordinated bool
	stopVar     string
	initial     protocol.InitialVars
	bootErr     error
	proposeErr  error

	inbound chan recvResult

	mu          sync.Mutex
	proposals   []string
	closeWrites int
}

type recvResult struct {
	frame []byte
	err   error
}

func newFakeSession(stub string) *fakeSession {
	return &fakeSession{
		coordinated: true,
		stopVar:     protocol.StopVarName(stub),
		inbound:     make(chan recvResult, 64),
	}
}

func (s *fakeSession) AwaitInitialVariables() (protocol.InitialVars, error) {
	return s.initial, s.bootErr
}

func (s *fakeSession) ProposeRecord(rec codec.Record) error {
	if s.proposeErr != nil {
		return s.proposeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = append(s.proposals, "VAR_SET_MD record "+codec.FormatRecord(rec))
	return nil
}

func (s *fakeSession) ProposeStop() error {
	if s.proposeErr != nil {
		return s.proposeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = append(s.proposals, "VAR_SET_MD "+s.stopVar+" 1")
	return nil
}

func (s *fakeSession) Receive() ([]byte, error) {
	select {
	case r := <-s.inbound:
		return r.frame, r.err
	case <-time.After(5 * time.Millisecond):
		return nil, transport.ErrPollTimeout
	}
}

func (s *fakeSession) Coordinated() bool { return s.coordinated }

func (s *fakeSession) CloseWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeWrites++
	return nil
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) push(frame string) {
	s.inbound <- recvResult{frame: []byte(frame)}
}

func (s *fakeSession) pushEOF() {
	s.inbound <- recvResult{err: io.EOF}
}

func (s *fakeSession) sentProposals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.proposals...)
}

func (s *fakeSession) halfCloses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeWrites
}

// fakeHandle scripts a solver's event stream and records what the worker
// pushes into it
type fakeHandle struct {
	events chan solver.Event

	mu        sync.Mutex
	bounds    []float64
	solutions []pushedSolution
	stops     int

	// exitAfterStops makes the fake behave like a solver that honors
	// the nth stop signal: reaching it emits the final closed event
	exitAfterStops int
	exitStatus     int
	closeOnce      sync.Once
}

type pushedSolution struct {
	value float64
	seq   int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{events: make(chan solver.Event, 16)}
}

func (h *fakeHandle) Next() (solver.Event, error) {
	ev, ok := <-h.events
	if !ok {
		return solver.Event{}, solver.ErrHandleClosed
	}
	return ev, nil
}

func (h *fakeHandle) PushBound(value float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bounds = append(h.bounds, value)
	return nil
}

func (h *fakeHandle) PushSolution(value float64, seq int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.solutions = append(h.solutions, pushedSolution{value, seq})
	return nil
}

func (h *fakeHandle) Stop() error {
	h.mu.Lock()
	h.stops++
	exit := h.exitAfterStops > 0 && h.stops >= h.exitAfterStops
	status := h.exitStatus
	h.mu.Unlock()

	if exit {
		h.close(status)
	}
	return nil
}

func (h *fakeHandle) emit(ev solver.Event) {
	h.events <- ev
}

func (h *fakeHandle) close(status int) {
	h.closeOnce.Do(func() {
		h.events <- solver.Event{Kind: solver.EventClosed, Status: status}
		close(h.events)
	})
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

func (h *fakeHandle) pushedBounds() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.bounds...)
}

func (h *fakeHandle) pushedSolutions() []pushedSolution {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]pushedSolution(nil), h.solutions...)
}

// fakeSupervisor hands out a prepared handle and records every launch
type fakeSupervisor struct {
	handle *fakeHandle

	mu    sync.Mutex
	specs []solver.LaunchSpec
}

func (s *fakeSupervisor) Launch(spec solver.LaunchSpec) (solver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	return s.handle, nil
}

func (s *fakeSupervisor) launches() []solver.LaunchSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]solver.LaunchSpec(nil), s.specs...)
}

type runOutcome struct {
	result types.RunResult
	err    error
}

// startRun launches w.Run on its own goroutine and returns the outcome
// channel
func startRun(w *Worker) chan runOutcome {
	done := make(chan runOutcome, 1)
	go func() {
		result, err := w.Run()
		done <- runOutcome{result, err}
	}()
	return done
}

func waitRun(t *testing.T, done chan runOutcome) runOutcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("worker run never finished")
		return runOutcome{}
	}
}

func testSpec(t *testing.T, stopMode bool) types.RunSpec {
	t.Helper()
	return types.RunSpec{
		Solver:       "/opt/solvers/minlp",
		Stub:         "foo.nl",
		StopMode:     stopMode,
		InitialBound: types.NoBound,
		WorkDir:      t.TempDir(),
	}
}

func newTestWorker(t *testing.T, spec types.RunSpec, sess protocol.Session, sup solver.Supervisor) *Worker {
	t.Helper()
	w, err := NewWorker(Config{
		Spec:              spec,
		Session:           sess,
		Supervisor:        sup,
		KillRetryInterval: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	return w
}

func TestNewWorkerValidation(t *testing.T) {
	sess := newFakeSession("foo.nl")
	sup := &fakeSupervisor{handle: newFakeHandle()}
	spec := types.RunSpec{Solver: "solver", Stub: "foo.nl"}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing session", Config{Spec: spec, Supervisor: sup}},
		{"missing supervisor", Config{Spec: spec, Session: sess}},
		{"missing solver", Config{Spec: types.RunSpec{Stub: "foo.nl"}, Session: sess, Supervisor: sup}},
		{"missing stub", Config{Spec: types.RunSpec{Solver: "solver"}, Session: sess, Supervisor: sup}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWorker(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestBoundTightening(t *testing.T) {
	tests := []struct {
		name      string
		initial   protocol.InitialVars
		bound     float64
		wantBound float64
	}{
		{
			name:      "shared record tightens the bound",
			initial:   protocol.InitialVars{Record: 7.5, HasRecord: true},
			bound:     10.0,
			wantBound: 7.5,
		},
		{
			name:      "unset record leaves the bound alone",
			initial:   protocol.InitialVars{},
			bound:     10.0,
			wantBound: 10.0,
		},
		{
			name:      "worse record leaves the bound alone",
			initial:   protocol.InitialVars{Record: 12.0, HasRecord: true},
			bound:     10.0,
			wantBound: 10.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession("foo.nl")
			sess.initial = tt.initial
			handle := newFakeHandle()
			handle.close(0)
			sup := &fakeSupervisor{handle: handle}

			spec := testSpec(t, false)
			spec.InitialBound = tt.bound
			w := newTestWorker(t, spec, sess, sup)

			out := waitRun(t, startRun(w))
			require.NoError(t, out.err)

			launches := sup.launches()
			require.Len(t, launches, 1)
			assert.Equal(t, tt.wantBound, launches[0].Bound)
		})
	}
}

func TestEarlyStopShortCircuit(t *testing.T) {
	sess := newFakeSession("foo.nl")
	sess.initial = protocol.InitialVars{Stopped: true}
	sup := &fakeSupervisor{handle: newFakeHandle()}

	spec := testSpec(t, true)
	w := newTestWorker(t, spec, sess, sup)

	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)
	assert.Equal(t, 0, out.result.ExitStatus)

	assert.Empty(t, sup.launches(), "solver must never be launched")
	assert.Equal(t, 1, sess.halfCloses(), "session must half-close exactly once")

	marker, err := os.ReadFile(filepath.Join(spec.WorkDir, "foo.sol"))
	require.NoError(t, err, "marker solution file must exist")
	assert.Empty(t, marker)
}

func TestEarlyStopIgnoredOutsideStopMode(t *testing.T) {
	sess := newFakeSession("foo.nl")
	sess.initial = protocol.InitialVars{Stopped: true}
	handle := newFakeHandle()
	handle.close(0)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), sess, sup)

	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)
	assert.Len(t, sup.launches(), 1, "stop variable is meaningless outside stop mode")
}

func TestRecordPropagation(t *testing.T) {
	sess := newFakeSession("foo.nl")
	handle := newFakeHandle()
	handle.emit(solver.Event{Kind: solver.EventIncumbent, Value: 3.2})
	handle.close(0)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), sess, sup)

	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)

	assert.Equal(t, []string{"VAR_SET_MD record 3.2000"}, sess.sentProposals(),
		"one incumbent produces exactly one proposal")
	assert.True(t, out.result.HadData)
	assert.Equal(t, 1, out.result.RecordsPublished)
	assert.Equal(t, 3.2, out.result.BestValue)
}

func TestStopModeScenario(t *testing.T) {
	sess := newFakeSession("foo.nl")
	handle := newFakeHandle()
	handle.emit(solver.Event{Kind: solver.EventIncumbent, Value: 5.0})
	handle.emit(solver.Event{Kind: solver.EventResult, Value: 5.0, Status: 0})
	handle.close(0)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, true), sess, sup)

	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)
	assert.Equal(t, 0, out.result.ExitStatus)

	assert.Equal(t, []string{
		"VAR_SET_MD record 5.0000",
		"VAR_SET_MD record 5.0000",
		"VAR_SET_MD foo_stopped 1",
	}, sess.sentProposals())
	assert.Equal(t, 1, sess.halfCloses())
}

func TestStandaloneScenario(t *testing.T) {
	handle := newFakeHandle()
	handle.emit(solver.Event{Kind: solver.EventResult, Value: 1.0, Status: 0})
	handle.close(2)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), protocol.NewStandalone(), sup)

	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)
	assert.Equal(t, 2, out.result.ExitStatus, "worker mirrors the solver exit status")
	assert.True(t, out.result.HadData)
	assert.Zero(t, out.result.RecordsReceived, "standalone runs have no receiver loop")
}

func TestIncumbentSolutionPublishesPayload(t *testing.T) {
	spec := testSpec(t, false)
	blob := []byte("objective 5.0\nx1 0.25\n")
	require.NoError(t, os.WriteFile(filepath.Join(spec.WorkDir, "outsol-1.sol"), blob, 0644))

	sess := newFakeSession("foo.nl")
	handle := newFakeHandle()
	handle.emit(solver.Event{Kind: solver.EventIncumbentSolution, Value: 5.0, Seq: 1})
	handle.close(0)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, spec, sess, sup)
	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)

	// The canonical solution file now holds the solver's solution
	canonical, err := os.ReadFile(filepath.Join(spec.WorkDir, "foo.sol"))
	require.NoError(t, err)
	assert.Equal(t, blob, canonical)

	proposals := sess.sentProposals()
	require.Len(t, proposals, 1)
	fields := strings.Fields(proposals[0])
	require.Len(t, fields, 3)

	rec, err := codec.ParseRecord(fields[2])
	require.NoError(t, err)
	assert.Equal(t, 5.0, rec.Value)
	assert.Equal(t, blob, rec.Solution)
}

func TestIncumbentSolutionMissingFileDegrades(t *testing.T) {
	sess := newFakeSession("foo.nl")
	handle := newFakeHandle()
	handle.emit(solver.Event{Kind: solver.EventIncumbentSolution, Value: 5.0, Seq: 7})
	handle.close(0)
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), sess, sup)
	out := waitRun(t, startRun(w))
	require.NoError(t, out.err)

	// The value still propagates, just without the payload
	assert.Equal(t, []string{"VAR_SET_MD record 5.0000"}, sess.sentProposals())
}

func TestBootstrapErrorPropagates(t *testing.T) {
	sess := newFakeSession("foo.nl")
	sess.bootErr = protocol.ErrProtocol
	sup := &fakeSupervisor{handle: newFakeHandle()}

	w := newTestWorker(t, testSpec(t, false), sess, sup)
	out := waitRun(t, startRun(w))

	assert.ErrorIs(t, out.err, protocol.ErrProtocol)
	assert.Empty(t, sup.launches())
}

func TestProposeFailureStopsSolver(t *testing.T) {
	errBroken := errors.New("session broken")
	sess := newFakeSession("foo.nl")
	sess.proposeErr = errBroken

	handle := newFakeHandle()
	handle.exitAfterStops = 1
	handle.exitStatus = 130
	handle.emit(solver.Event{Kind: solver.EventIncumbent, Value: 3.0})
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), sess, sup)
	out := waitRun(t, startRun(w))

	assert.ErrorIs(t, out.err, errBroken)
	assert.GreaterOrEqual(t, handle.stopCount(), 1, "no orphan solver on the abort path")
	assert.Equal(t, 130, out.result.ExitStatus)
}

func TestStopAndReapRetriesUntilClosed(t *testing.T) {
	sess := newFakeSession("foo.nl")
	handle := newFakeHandle()
	handle.exitAfterStops = 3
	handle.exitStatus = 130
	sup := &fakeSupervisor{handle: handle}

	w := newTestWorker(t, testSpec(t, false), sess, sup)

	status := w.stopAndReap(handle)
	assert.Equal(t, 130, status)
	assert.GreaterOrEqual(t, handle.stopCount(), 3, "stop is re-sent until the solver exits")
	assert.False(t, w.state.running())
}
