/*
Package solver defines the supervisor boundary to the solver subprocess and
implements it over pipes.

The solver package is the worker's only view of the optimization process it
babysits. The core consumes nothing but the Supervisor/Handle interfaces:
launch one solver, read its structured event stream, push tighter incumbent
bounds (optionally with a materialized solution file), and deliver the stop
signal. ExecSupervisor implements that contract over os/exec with a
line-based pipe protocol.

# Architecture

	┌──────────────────── SOLVER SUPERVISOR ────────────────────┐
	│                                                           │
	│  pkg/worker (main loop)          pkg/worker (receiver)    │
	│       │ Next()                        │ PushBound()       │
	│       │                               │ PushSolution()    │
	│       │                               │ Stop()            │
	│       ▼                               ▼                   │
	│  ┌─────────────────────────────────────────────┐          │
	│  │ execHandle                                  │          │
	│  │  - event channel (scanner goroutine)        │          │
	│  │  - stdin pipe (write mutex)                 │          │
	│  │  - SIGINT delivery                          │          │
	│  └──────┬──────────────────────────┬───────────┘          │
	│         │ stdout lines             │ stdin lines          │
	│  ┌──────▼──────────────────────────▼───────────┐          │
	│  │          solver process                     │          │
	│  │  argv: <stub> -p [-b <bound>] [-- extras]   │          │
	│  │  stderr passes through to the worker        │          │
	│  └─────────────────────────────────────────────┘          │
	└───────────────────────────────────────────────────────────┘

# Event Stream

The solver reports progress as plain text lines on stdout:

	incumbent <value>                 new best objective value
	incumbent-solution <value> <seq>  new best value; solution bytes were
	                                  written to outsol-<seq>.sol
	result <value> <status>           final answer and solver status code

Anything else on stdout is solver chatter: logged at debug-level fidelity
and skipped, never an error. When the process exits the handle synthesizes
the terminal event:

	closed <exit status>

Next returns events in order and ErrHandleClosed once the closed event has
been consumed. A solver killed by a signal reports 128+signal, shell style.

# Push Protocol

Bounds travel the other way as stdin lines:

	bound <value>            tighter incumbent bound from a peer
	solution <value> <seq>   bound plus the insol-<seq>.sol file to warm
	                         start from

# Concurrency

One goroutine (the worker's main loop) reads Next; the receiver loop calls
PushBound, PushSolution and Stop concurrently with it. The stdin pipe is
mutex-guarded and the event channel decouples the scanner goroutine from
the consumer, so the read-by-one/write-by-another pattern is safe. Stop is
repeatable: the kill negotiation resends it every retry interval until the
solver actually exits.

# Integration Points

  - pkg/worker: consumes Supervisor/Handle; never touches os/exec itself
  - pkg/types: NoBound sentinel deciding whether -b is passed
  - test/framework: fake shell solvers exercising this same pipe protocol
*/
package solver
