/*
Package worker implements the race worker core: the control loop and the
update receiver loop that coordinate one solver process with its peers.

A paceline worker sits beside one solver subprocess. It keeps the solver
supplied with the best bound any peer has found, publishes the solver's own
improvements as they happen, and in stop mode negotiates a confirmed
shutdown of the whole race the moment one worker reaches a final answer.

# Architecture

Two loops share one session and one solver handle for the lifetime of a
run:

	┌─────────────────────── RACE WORKER ───────────────────────────┐
	│                                                                │
	│   agent session (pkg/protocol)                                 │
	│      ▲                    │                                    │
	│      │ proposals          │ updates (bounded 500ms poll)       │
	│      │                    ▼                                    │
	│   ┌──────────────┐    ┌─────────────────┐                      │
	│   │ Control Loop │    │ Receiver Loop   │                      │
	│   │  bootstrap   │    │  apply records  │                      │
	│   │  launch      │    │  store insol    │                      │
	│   │  events      │    │  kill retry     │                      │
	│   └──────┬───────┘    └───────┬─────────┘                      │
	│          │    shared running flag (state)                      │
	│          │ Next()             │ PushBound/PushSolution/Stop    │
	│          ▼                    ▼                                │
	│   ┌──────────────────────────────────┐                         │
	│   │ solver handle (pkg/solver)       │                         │
	│   └──────────────────────────────────┘                         │
	└────────────────────────────────────────────────────────────────┘

# Control Loop

Run executes the race on the caller's goroutine:

 1. Bootstrap: await both shared variables. In stop mode, a stop variable
    that is already set short-circuits the whole run: the session is
    half-closed, an empty marker solution file is written, and no solver
    is ever launched.
 2. Tighten the initial bound to min(initial, shared record).
 3. Launch the solver through the supervisor with that bound.
 4. For coordinated sessions, start the receiver loop.
 5. Consume solver events until the solver closes:
    - incumbent / result: propose the value as the new record; a result
      in stop mode additionally broadcasts the stop variable.
    - incumbent with solution: install the solver's outsol file as the
      canonical solution file and propose the record with the compressed
      payload inline.
    - closed: clear the running flag, half-close the session, join the
      receiver, and report the exit status.

# Receiver Loop

The receiver polls the session with the transport's 500ms discipline, so
it is never more than one interval away from servicing the kill retry
clock:

  - record updates push the parsed bound into the solver; updates with a
    payload are persisted as insol-<seq>.sol first and pushed with their
    sequence number.
  - this instance's stop signal starts the kill negotiation: an immediate
    stop signal to the solver, re-sent every retry interval (default 1s)
    until the solver actually exits. A solver that ignores or misses one
    signal gets another.
  - in stop mode, stop traffic for other instances sharing the agent is
    logged and ignored.
  - anything else is a protocol violation: the loop aborts and the error
    surfaces from Run after the join.

End of stream from the agent is the normal end of a session, not a
failure. Either loop clearing the running flag makes both terminate
promptly; if the session dies under a live solver the control loop stops
the solver (with the same retry cadence) and reaps its exit status so no
orphan process is left behind.

# Usage

	sess, err := protocol.Connect(protocol.Config{Agent: agent, Stub: spec.Stub})
	if err != nil {
		return err
	}
	defer sess.Close()

	w, err := worker.NewWorker(worker.Config{
		Spec:       spec,
		Session:    sess,
		Supervisor: solver.NewExecSupervisor(),
		Broker:     broker, // optional
	})
	if err != nil {
		return err
	}

	result, err := w.Run()
	if err != nil {
		return err
	}
	os.Exit(result.ExitStatus) // mirror the solver

# Filesystem Artifacts

All paths are relative to the run's work directory:

  - <stub-without-ext>.sol: the canonical solution output file. Written
    whenever the solver reports an incumbent with a solution, and created
    empty as a marker by the early-stop short circuit.
  - outsol-<seq>.sol: solution files the supervisor materializes for
    incumbent-with-solution events; read and re-published inline.
  - insol-<seq>.sol: solution files this worker materializes from peer
    records, handed to the solver by sequence number.

# Concurrency Model

The control loop owns the session's write side and the solver's event
stream; the receiver owns the session's read side and writes to the
solver. The only shared mutable state is the running flag, a channel
closed exactly once. Receiver counters fold into the run result only
after the join, so no field is written from two goroutines.

# See Also

  - pkg/protocol for the session the loops drive
  - pkg/solver for the supervisor interface
  - pkg/events for the race event stream fed to journal and metrics
*/
package worker
