/*
Package journal provides BoltDB-backed persistence of race runs and their
record trajectories.

The journal package stores what happened during each worker run: the run's
identity and outcome, and an append-only trajectory of its race events
(records published and received, solutions stored, stop negotiation steps).
The data answers the questions a race operator asks afterwards: how fast did
the bound converge, who asked whom to stop, and when.

# Architecture

	┌──────────────────── RUN JOURNAL ─────────────────────────┐
	│                                                          │
	│  pkg/events broker                                       │
	│       │ race events                                      │
	│       ▼                                                  │
	│  ┌────────────────────────────────────────────┐          │
	│  │ Follower                                   │          │
	│  │  - broker subscriber                       │          │
	│  │  - drains buffered events on Stop          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ Append                             │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │ Store (bbolt)                              │          │
	│  │  runs bucket:     run id → RunInfo JSON    │          │
	│  │  entries bucket:  per-run sub-bucket,      │          │
	│  │    NextSequence key → Entry JSON           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ ListRuns / Entries                 │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │ paceline journal (CLI read side)           │          │
	│  └────────────────────────────────────────────┘          │
	└──────────────────────────────────────────────────────────┘

# Bucket Structure

runs:
  - Key: run UUID
  - Value: types.RunInfo as JSON (task id, stub, stop mode, timestamps,
    exit status, best value)

entries:
  - One sub-bucket per run UUID
  - Key: bucket NextSequence as big-endian uint64, so ForEach yields
    entries in append order
  - Value: Entry as JSON (time, event type, value, message, labels)

# Usage

Journaling a run:

	store, err := journal.Open(path)
	if err != nil { ... }
	defer store.Close()

	follower := journal.NewFollower(store, broker)
	follower.Start()
	defer follower.Stop()

	// ... run the race; every published event lands in the store ...

	_ = store.SaveRun(info)

Reading it back:

	runs, _ := store.ListRuns()
	entries, _ := store.Entries(runs[0].ID)

# Design Patterns

Event Sourcing, One Way:
  - The journal is written from the event stream and never read back by
    the worker; it observes the race without being part of it
  - A failed write is a warning, not a race failure

Append-Only Trajectory:
  - Entries are keyed by bucket sequence and never updated
  - Run metadata (the runs bucket) is the only upserted record

# Integration Points

  - pkg/events: the Follower subscribes to the broker
  - pkg/types: RunInfo is the persisted run identity
  - cmd/paceline: the journal subcommand lists runs and dumps trajectories
*/
package journal
