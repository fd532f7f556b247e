package solver

// EventKind discriminates solver events
type EventKind string

const (
	// EventIncumbent reports a new best objective value
	EventIncumbent EventKind = "incumbent"

	// EventIncumbentSolution reports a new best value together with the
	// sequence number of the solution file that achieved it
	EventIncumbentSolution EventKind = "incumbent-solution"

	// EventResult reports the solver's final answer and its own status code
	EventResult EventKind = "result"

	// EventClosed reports that the solver process exited
	EventClosed EventKind = "closed"
)

// Event is one structured notification from a running solver
type Event struct {
	Kind   EventKind
	Value  float64 // objective value, for incumbent/incumbent-solution/result
	Seq    int     // solution file sequence, for incumbent-solution
	Status int     // status code, for result/closed
}

// LaunchSpec describes one solver launch
type LaunchSpec struct {
	Solver     string
	Stub       string
	Bound      float64 // incumbent bound; values at or above types.NoBound are not passed
	ParamsFile string  // optional file of newline-separated extra arguments
	WorkDir    string  // where the solver runs and solution files live
}

// Handle drives one running solver. Next is read by a single consumer;
// PushBound, PushSolution and Stop may be called concurrently with it.
type Handle interface {
	// Next blocks until the next event. The final event is always
	// closed; reading past it returns ErrHandleClosed.
	Next() (Event, error)

	// PushBound feeds a tighter incumbent bound into the solver
	PushBound(value float64) error

	// PushSolution feeds a bound together with the sequence number of an
	// externally materialized solution file (insol-<seq>.sol)
	PushSolution(value float64, seq int) error

	// Stop delivers the stop signal. Safe to call repeatedly; the kill
	// negotiation retries it until the solver actually exits.
	Stop() error
}

// Supervisor launches solver processes
type Supervisor interface {
	Launch(spec LaunchSpec) (Handle, error)
}
