package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/paceline/paceline/pkg/log"
)

const (
	// DefaultPollInterval bounds a single Receive attempt
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultDialTimeout bounds the initial connection attempt
	DefaultDialTimeout = 5 * time.Second

	// headerSize is the length prefix width in bytes
	headerSize = 4

	// messageModeTag is the handshake byte that switches the agent
	// connection into message mode
	messageModeTag = 0
)

// ErrPollTimeout reports that one poll interval elapsed without a complete
// frame. The partial frame, if any, stays buffered for the next Receive.
var ErrPollTimeout = errors.New("transport: poll timeout")

// Config holds transport configuration
type Config struct {
	Address      string
	Port         int
	PollInterval time.Duration
	DialTimeout  time.Duration
}

// Conn is a length-prefixed frame stream to the coordination agent.
// Frames carry a 4-byte big-endian payload length followed by the payload.
type Conn struct {
	conn         net.Conn
	pollInterval time.Duration

	writeMu sync.Mutex

	// partial frame state, carried across poll cycles until the declared
	// byte count is satisfied
	head    [headerSize]byte
	headGot int
	body    []byte
	bodyGot int
}

// Dial connects to the coordination agent over TCP
func Dial(cfg Config) (*Conn, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{
		Timeout: cfg.DialTimeout,
	}

	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent at %s: %w", addr, err)
	}

	log.Logger.Debug().
		Str("component", "transport").
		Str("agent", addr).
		Msg("Connected to agent")

	return NewConn(conn, cfg.PollInterval), nil
}

// NewConn wraps an established connection in the frame protocol. Used by
// Dial and by test harnesses that accept the agent side of a session.
func NewConn(conn net.Conn, pollInterval time.Duration) *Conn {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Conn{
		conn:         conn,
		pollInterval: pollInterval,
	}
}

// Handshake sends the session opening: a 4-byte big-endian length covering
// the task identifier plus one mode byte, the mode byte itself, then the
// task identifier.
func (c *Conn) Handshake(taskID string) error {
	buf := make([]byte, headerSize+1+len(taskID))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(taskID)+1))
	buf[headerSize] = messageModeTag
	copy(buf[headerSize+1:], taskID)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	return nil
}

// Send writes one frame: 4-byte big-endian payload length, then the payload
func (c *Conn) Send(payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// Receive reads one frame, blocking for at most one poll interval. It
// returns exactly one of: a complete payload; ErrPollTimeout when the
// interval elapses first (any partial bytes stay buffered for the next
// call); io.EOF when the peer closed the stream.
func (c *Conn) Receive() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pollInterval)); err != nil {
		return nil, fmt.Errorf("failed to arm poll deadline: %w", err)
	}

	// Finish the length header first
	for c.body == nil {
		n, err := c.conn.Read(c.head[c.headGot:])
		c.headGot += n
		if c.headGot == headerSize {
			size := binary.BigEndian.Uint32(c.head[:])
			c.body = make([]byte, size)
			c.bodyGot = 0
			break
		}
		if err != nil {
			return nil, c.readErr(err)
		}
	}

	// Then the declared payload bytes
	for c.bodyGot < len(c.body) {
		n, err := c.conn.Read(c.body[c.bodyGot:])
		c.bodyGot += n
		if err != nil && c.bodyGot < len(c.body) {
			return nil, c.readErr(err)
		}
	}

	frame := c.body
	c.headGot = 0
	c.body = nil
	c.bodyGot = 0
	return frame, nil
}

// readErr maps raw read failures onto the transport error taxonomy
func (c *Conn) readErr(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrPollTimeout
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("transport read failed: %w", err)
}

// CloseWrite half-closes the stream for writing, signalling the agent that
// no further proposals will arrive while updates keep flowing inward
func (c *Conn) CloseWrite() error {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := c.conn.(closeWriter); ok {
		log.Logger.Debug().
			Str("component", "transport").
			Msg("Half-closed session for writing")
		return cw.CloseWrite()
	}
	return nil
}

// Close tears down the connection
func (c *Conn) Close() error {
	return c.conn.Close()
}
