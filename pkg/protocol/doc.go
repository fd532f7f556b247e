/*
Package protocol implements the shared-variable protocol a worker speaks
with the coordination agent.

One agent hosts a handful of shared variables per task; workers racing the
same problem instance coordinate entirely through two of them: "record",
the best objective value any worker has found, and a per-instance stop
variable that tells every racer on that instance to wind down. This package
turns the raw frame stream from pkg/transport into those semantics: the
bootstrap that reads both initial values, record and stop proposals, and a
parser for the updates the agent fans out.

# Architecture

	┌────────────────── VARIABLE PROTOCOL ──────────────────────┐
	│                                                           │
	│   pkg/worker (main loop / receiver loop)                  │
	│        │                                                  │
	│        │ Session interface                                │
	│        ▼                                                  │
	│  ┌───────────────────┐      ┌────────────────────┐        │
	│  │ AgentSession      │      │ Standalone         │        │
	│  │  - bootstrap      │      │  - every op no-ops │        │
	│  │  - ProposeRecord  │      │  - "no record yet" │        │
	│  │  - ProposeStop    │      └────────────────────┘        │
	│  │  - Receive        │                                    │
	│  └─────────┬─────────┘                                    │
	│            │ VAR_GET / VAR_SET_MD / VAR_VALUE             │
	│            ▼                                              │
	│  ┌───────────────────┐                                    │
	│  │ pkg/transport     │  length-prefixed frames            │
	│  └─────────┬─────────┘                                    │
	│            ▼                                              │
	│       coordination agent (shared variables)               │
	└───────────────────────────────────────────────────────────┘

# Message Grammar

All messages are newline-free, space-delimited text, one per frame:

	VAR_GET <name>               worker -> agent   request current value
	VAR_SET_MD <name> <value>    worker -> agent   propose a value
	VAR_VALUE <name> <value>     agent  -> worker  value update

VAR_SET_MD has no synchronous acknowledgement; the agent fans the update
out to every session on the task, including the proposer. The only inbound
message is VAR_VALUE with exactly three fields; ParseVarValue turns
anything else into an error wrapping ErrProtocol.

Values use NULL as the never-set sentinel. A record value is the codec
wire form: a four-decimal float, optionally followed by a colon and an
inline solution payload. A stop variable's only legal set value is 1.

# Variable Naming

Each problem instance gets its own stop variable so several instances can
share one agent: the stub's basename with its extension stripped, plus
"_stopped".

	StopVarName("foo.nl")          // "foo_stopped"
	StopVarName("models/bar.mps")  // "bar_stopped"

Stop updates for other instances are legal traffic on a shared task; a
stop-mode receiver loop logs and ignores them.

# Bootstrap

AwaitInitialVariables defines session start:

 1. Send VAR_GET for the instance's stop variable.
 2. Send VAR_GET for record.
 3. Consume VAR_VALUE frames until both names have been observed once,
    ignoring unrelated variables and continuing over poll timeouts.

The result feeds the worker's two launch decisions: an already-set stop
variable short-circuits the race before any solver starts, and a present
record tightens the initial incumbent bound. End of stream before both
values arrive is a protocol violation, because a worker that launched a
solver without knowing the global record would race blind.

# Usage

	sess, err := protocol.Connect(protocol.Config{
		Agent: types.AgentInfo{Address: "localhost", Port: 35071, TaskID: "task-42"},
		Stub:  "foo.nl",
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	vars, err := sess.AwaitInitialVariables()
	if err != nil {
		return err
	}
	if vars.HasRecord {
		bound = math.Min(bound, vars.Record)
	}

	// later, as the solver reports progress
	sess.ProposeRecord(codec.Record{Value: 5.0})

	// and when this worker wins a stop-mode race
	sess.ProposeStop()

Standalone mode: when the configuration names no agent port, Connect
returns the Standalone session. Bootstrap reports nothing set, proposals
succeed silently, and Receive reports an immediately closed stream. Caller
code is identical in both modes.

# Failure Scenarios

Agent Unreachable:
  - Connect fails with the transport dial error
  - Fatal; the worker does not retry or fall back to standalone

Connection Lost During Bootstrap:
  - AwaitInitialVariables returns an ErrProtocol-wrapped error
  - The worker never launches a solver

Malformed Inbound Frame:
  - ParseVarValue rejects it with ErrProtocol
  - The consuming loop aborts; violations are never silently skipped

Proposal After Session Loss:
  - ProposeRecord/ProposeStop surface the transport write error
  - The worker treats this as session end

# Integration Points

  - pkg/transport: framing, poll timeouts, half-close
  - pkg/codec: record value parsing and formatting
  - pkg/worker: drives the session from both of its loops
  - test/framework: the in-process agent speaks this grammar from the
    other side for integration tests

# See Also

  - pkg/worker for how stop variables drive kill negotiation
  - pkg/codec for the record value wire form
*/
package protocol
