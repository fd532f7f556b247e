/*
Package log provides structured logging for paceline using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and go to
stderr by default, keeping them strictly separate from solver process output.

# Architecture

Paceline's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                   │           │
	│  │  - Zerolog instance                        │           │
	│  │  - Initialized via log.Init()              │           │
	│  │  - Thread-safe for concurrent use          │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Configuration                    │           │
	│  │  - Level: debug/info/warn/error            │           │
	│  │  - Format: JSON or console (human)         │           │
	│  │  - Output: stderr, file, or custom writer  │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Context Loggers                    │           │
	│  │  - WithComponent("receiver")               │           │
	│  │  - WithRun("run-abc123")                   │           │
	│  │  - WithTask("task-42")                     │           │
	│  │  - WithInstance("foo.nl")                  │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            Log Output                      │           │
	│  │                                            │           │
	│  │  JSON Format:                              │           │
	│  │  {                                         │           │
	│  │    "level": "info",                        │           │
	│  │    "component": "session",                 │           │
	│  │    "time": "2026-08-24T10:30:00Z",         │           │
	│  │    "message": "record published"           │           │
	│  │  }                                         │           │
	│  │                                            │           │
	│  │  Console Format:                           │           │
	│  │  10:30AM INF record published component=…  │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all paceline packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: frame-level protocol tracing
  - Info: session lifecycle and record propagation
  - Warn: tolerated anomalies (missing diagnostics, no data points)
  - Error: failed operations
  - Fatal: unrecoverable startup errors (process exits)

Configuration:
  - Level: filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer destination, stderr when nil

Context Loggers:
  - WithComponent: subsystem name on every line
  - WithRun: worker run identity
  - WithTask: coordination task identity
  - WithInstance: problem instance stub

# Usage

Initializing the logger:

	import "github.com/paceline/paceline/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
	})

Simple logging:

	log.Info("session established")
	log.Warn("solver finished without reporting any data")
	log.Error("record proposal failed")

Structured logging:

	log.Logger.Info().
		Str("component", "session").
		Float64("record", 5.0).
		Msg("new record")

	log.Logger.Error().
		Err(err).
		Str("instance", "foo.nl").
		Msg("bootstrap failed")

Component loggers:

	recvLog := log.WithComponent("receiver")
	recvLog.Debug().Str("frame", "VAR_VALUE record 3.2").Msg("received")

	sessionLog := log.WithComponent("session").
		With().Str("task_id", "task-42").Logger()
	sessionLog.Info().Msg("handshake complete")

# Integration Points

This package integrates with:

  - pkg/transport: frame-level trace logging
  - pkg/protocol: bootstrap and proposal logging
  - pkg/worker: session lifecycle, stop negotiation
  - pkg/solver: subprocess launch and exit logging
  - pkg/journal: store open/close and append failures
  - pkg/metrics: ops endpoint lifecycle

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to long-lived loops
  - Avoids repetitive field specification

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Consistent error format across the codebase

# Best Practices

Do:
  - Use Info level for production races
  - Use Debug only when tracing protocol frames
  - Include run/task/instance context on session logs
  - Log errors with .Err()

Don't:
  - Log to stdout (solver event lines own that stream in pipe setups)
  - Log per-frame at Info level (one race can receive thousands of frames)
  - Concatenate values into messages (use typed fields)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
