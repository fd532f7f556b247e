package protocol

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/paceline/paceline/pkg/codec"
	"github.com/paceline/paceline/pkg/log"
	"github.com/paceline/paceline/pkg/transport"
	"github.com/paceline/paceline/pkg/types"
)

// Session is one worker's view of the coordination agent. The standalone
// implementation turns every operation into a successful no-op, so callers
// never branch on whether an agent exists.
type Session interface {
	// AwaitInitialVariables requests the stop variable and the record and
	// blocks until both initial values have been observed
	AwaitInitialVariables() (InitialVars, error)

	// ProposeRecord publishes a new best objective value, optionally
	// carrying its solution payload
	ProposeRecord(rec codec.Record) error

	// ProposeStop sets this instance's stop variable, asking every peer
	// racing the same instance to stop
	ProposeStop() error

	// Receive delivers the next inbound frame with the transport's poll
	// discipline: a frame, transport.ErrPollTimeout, or io.EOF
	Receive() ([]byte, error)

	// Coordinated reports whether a coordination agent is on the other
	// end. The receiver loop only runs for coordinated sessions.
	Coordinated() bool

	// CloseWrite half-closes the session for writing
	CloseWrite() error

	// Close tears the session down
	Close() error
}

// InitialVars is the agent state observed during bootstrap
type InitialVars struct {
	Record    float64
	HasRecord bool
	Stopped   bool
}

// Config holds session configuration
type Config struct {
	Agent        types.AgentInfo
	Stub         string
	PollInterval time.Duration
}

// Connect establishes the session appropriate for the configuration: an
// agent-backed session when a port is configured, the standalone no-op
// session otherwise.
func Connect(cfg Config) (Session, error) {
	if cfg.Agent.Standalone() {
		log.Logger.Info().
			Str("component", "session").
			Msg("No agent configured, running standalone")
		return NewStandalone(), nil
	}

	conn, err := transport.Dial(transport.Config{
		Address:      cfg.Agent.Address,
		Port:         cfg.Agent.Port,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		return nil, err
	}

	sess, err := NewAgentSession(conn, cfg.Agent.TaskID, cfg.Stub)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sess, nil
}

// AgentSession is the agent-backed Session implementation
type AgentSession struct {
	conn    *transport.Conn
	taskID  string
	stopVar string
	logger  zerolog.Logger
}

// NewAgentSession wraps an established transport connection and performs
// the handshake that switches it into message mode
func NewAgentSession(conn *transport.Conn, taskID, stub string) (*AgentSession, error) {
	s := &AgentSession{
		conn:    conn,
		taskID:  taskID,
		stopVar: StopVarName(stub),
		logger:  log.WithComponent("session"),
	}

	if err := conn.Handshake(taskID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("stop_var", s.stopVar).
		Msg("Connected to agent, entering message mode")

	return s, nil
}

// AwaitInitialVariables issues VAR_GET for the stop variable and the record,
// then consumes inbound frames until both have been observed once. Frames
// for unrelated variables are ignored; end of stream before both arrive is
// a protocol violation.
func (s *AgentSession) AwaitInitialVariables() (InitialVars, error) {
	if err := s.requestVar(s.stopVar); err != nil {
		return InitialVars{}, err
	}
	if err := s.requestVar(RecordVar); err != nil {
		return InitialVars{}, err
	}

	var vars InitialVars
	seenStop, seenRecord := false, false

	for !seenStop || !seenRecord {
		frame, err := s.conn.Receive()
		if errors.Is(err, transport.ErrPollTimeout) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return InitialVars{}, fmt.Errorf("%w: connection closed during bootstrap", ErrProtocol)
		}
		if err != nil {
			return InitialVars{}, err
		}

		msg, err := ParseVarValue(frame)
		if err != nil {
			return InitialVars{}, err
		}

		switch msg.Name {
		case s.stopVar:
			if !seenStop {
				seenStop = true
				vars.Stopped = !msg.IsUnset()
			}
		case RecordVar:
			if !seenRecord {
				seenRecord = true
				if !msg.IsUnset() {
					rec, err := codec.ParseRecord(msg.Raw)
					if err != nil {
						return InitialVars{}, fmt.Errorf("%w: bad bootstrap record: %v", ErrProtocol, err)
					}
					vars.Record = rec.Value
					vars.HasRecord = true
				}
			}
		default:
			s.logger.Debug().
				Str("variable", msg.Name).
				Msg("Ignoring unrelated variable during bootstrap")
		}
	}

	s.logger.Info().
		Bool("stopped", vars.Stopped).
		Bool("has_record", vars.HasRecord).
		Float64("record", vars.Record).
		Msg("Bootstrap complete")

	return vars, nil
}

// ProposeRecord publishes a new best objective value
func (s *AgentSession) ProposeRecord(rec codec.Record) error {
	frame := msgVarSetMD + " " + RecordVar + " " + codec.FormatRecord(rec)
	if err := s.conn.Send([]byte(frame)); err != nil {
		return fmt.Errorf("failed to propose record: %w", err)
	}

	s.logger.Info().
		Float64("record", rec.Value).
		Bool("solution", rec.HasSolution()).
		Msg("Proposed new record")
	return nil
}

// ProposeStop sets this instance's stop variable
func (s *AgentSession) ProposeStop() error {
	frame := msgVarSetMD + " " + s.stopVar + " " + stopValue
	if err := s.conn.Send([]byte(frame)); err != nil {
		return fmt.Errorf("failed to propose stop: %w", err)
	}

	s.logger.Debug().
		Str("stop_var", s.stopVar).
		Msg("Proposed stop variable")
	return nil
}

// Receive delivers the next inbound frame
func (s *AgentSession) Receive() ([]byte, error) {
	return s.conn.Receive()
}

// Coordinated reports that an agent is on the other end
func (s *AgentSession) Coordinated() bool {
	return true
}

// CloseWrite half-closes the session for writing
func (s *AgentSession) CloseWrite() error {
	return s.conn.CloseWrite()
}

// Close tears the session down
func (s *AgentSession) Close() error {
	return s.conn.Close()
}

func (s *AgentSession) requestVar(name string) error {
	if err := s.conn.Send([]byte(msgVarGet + " " + name)); err != nil {
		return fmt.Errorf("failed to request %s: %w", name, err)
	}
	return nil
}

// Standalone is the no-op Session used when no agent is configured. Every
// operation succeeds; bootstrap reports nothing set, and Receive reports an
// immediately closed stream.
type Standalone struct{}

// NewStandalone creates the no-op session
func NewStandalone() *Standalone {
	return &Standalone{}
}

func (*Standalone) AwaitInitialVariables() (InitialVars, error) { return InitialVars{}, nil }
func (*Standalone) ProposeRecord(codec.Record) error            { return nil }
func (*Standalone) ProposeStop() error                          { return nil }
func (*Standalone) Receive() ([]byte, error)                    { return nil, io.EOF }
func (*Standalone) Coordinated() bool                           { return false }
func (*Standalone) CloseWrite() error                           { return nil }
func (*Standalone) Close() error                                { return nil }
