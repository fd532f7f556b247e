package solver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/paceline/paceline/pkg/log"
	"github.com/paceline/paceline/pkg/types"
)

// maxEventLine bounds one solver output line
const maxEventLine = 1 << 20

// ErrHandleClosed reports a Next call after the closed event was consumed
var ErrHandleClosed = errors.New("solver handle closed")

// ExecSupervisor launches solvers as child processes and speaks a
// line-based pipe protocol with them: events arrive on the solver's
// stdout, bounds are pushed through its stdin, and the stop signal is a
// SIGINT.
type ExecSupervisor struct {
	logger zerolog.Logger
}

// NewExecSupervisor creates the process-backed supervisor
func NewExecSupervisor() *ExecSupervisor {
	return &ExecSupervisor{
		logger: log.WithComponent("solver"),
	}
}

// Launch starts one solver process
func (s *ExecSupervisor) Launch(spec LaunchSpec) (Handle, error) {
	args, err := buildArgs(spec)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Solver, args...)
	cmd.Dir = spec.WorkDir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open solver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open solver stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch solver %s: %w", spec.Solver, err)
	}

	s.logger.Info().
		Str("solver", spec.Solver).
		Str("instance", spec.Stub).
		Strs("args", args).
		Int("pid", cmd.Process.Pid).
		Msg("Launched solver")

	h := &execHandle{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan Event, 16),
		logger: s.logger,
	}
	go h.readEvents(stdout)

	return h, nil
}

// buildArgs assembles the solver command line: instance stub, the pipe-mode
// flag, a bound flag when a real bound exists, then any extra arguments
// from the params file after a separator.
func buildArgs(spec LaunchSpec) ([]string, error) {
	args := []string{spec.Stub, "-p"}

	if spec.Bound < types.NoBound {
		args = append(args, "-b", strconv.FormatFloat(spec.Bound, 'g', -1, 64))
	}

	extras, err := readParams(spec.ParamsFile)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		args = append(args, "--")
		args = append(args, extras...)
	}
	return args, nil
}

// readParams reads extra solver arguments, one per line, skipping blanks
func readParams(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	var params []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			params = append(params, line)
		}
	}
	return params, nil
}

// execHandle is the Handle for one child solver process
type execHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan Event
	logger zerolog.Logger

	writeMu sync.Mutex
}

// readEvents parses solver stdout into events, then synthesizes the final
// closed event from the process exit
func (h *execHandle) readEvents(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ev, err := parseEventLine(line)
		if err != nil {
			h.logger.Warn().Str("line", line).Msg("Ignoring unparseable solver output")
			continue
		}
		h.events <- ev
	}
	if err := scanner.Err(); err != nil {
		h.logger.Warn().Err(err).Msg("Solver output stream failed")
	}

	status := 0
	if err := h.cmd.Wait(); err != nil {
		status = exitStatus(err)
	}
	_ = h.stdin.Close()

	h.logger.Info().Int("status", status).Msg("Solver exited")
	h.events <- Event{Kind: EventClosed, Status: status}
	close(h.events)
}

// exitStatus maps a Wait failure onto a shell-style status code: the
// process's own code, or 128+signal when it died to a signal
func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}

// parseEventLine parses one solver stdout line
func parseEventLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("empty solver event")
	}

	switch fields[0] {
	case string(EventIncumbent):
		if len(fields) != 2 {
			return Event{}, fmt.Errorf("malformed incumbent line %q", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("malformed incumbent value %q: %w", fields[1], err)
		}
		return Event{Kind: EventIncumbent, Value: value}, nil

	case string(EventIncumbentSolution):
		if len(fields) != 3 {
			return Event{}, fmt.Errorf("malformed incumbent-solution line %q", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("malformed incumbent-solution value %q: %w", fields[1], err)
		}
		seq, err := strconv.Atoi(fields[2])
		if err != nil {
			return Event{}, fmt.Errorf("malformed solution sequence %q: %w", fields[2], err)
		}
		return Event{Kind: EventIncumbentSolution, Value: value, Seq: seq}, nil

	case string(EventResult):
		if len(fields) != 3 {
			return Event{}, fmt.Errorf("malformed result line %q", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("malformed result value %q: %w", fields[1], err)
		}
		status, err := strconv.Atoi(fields[2])
		if err != nil {
			return Event{}, fmt.Errorf("malformed result status %q: %w", fields[2], err)
		}
		return Event{Kind: EventResult, Value: value, Status: status}, nil
	}

	return Event{}, fmt.Errorf("unknown solver event %q", line)
}

// Next blocks until the next event
func (h *execHandle) Next() (Event, error) {
	ev, ok := <-h.events
	if !ok {
		return Event{}, ErrHandleClosed
	}
	return ev, nil
}

// PushBound feeds a tighter incumbent bound into the solver
func (h *execHandle) PushBound(value float64) error {
	return h.writeLine(fmt.Sprintf("bound %g", value))
}

// PushSolution feeds a bound plus the sequence number of a materialized
// solution file
func (h *execHandle) PushSolution(value float64, seq int) error {
	return h.writeLine(fmt.Sprintf("solution %g %d", value, seq))
}

func (h *execHandle) writeLine(line string) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if _, err := io.WriteString(h.stdin, line+"\n"); err != nil {
		return fmt.Errorf("failed to push to solver: %w", err)
	}
	return nil
}

// Stop delivers the stop signal to the solver
func (h *execHandle) Stop() error {
	if h.cmd.Process == nil {
		return nil
	}

	err := h.cmd.Process.Signal(os.Interrupt)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal solver: %w", err)
	}

	h.logger.Info().Msg("Sent interrupt to solver")
	return nil
}
