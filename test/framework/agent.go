package framework

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/paceline/paceline/pkg/types"
)

// VarUpdate is one VAR_SET_MD proposal a worker sent to the agent
type VarUpdate struct {
	// TaskID is the task identifier the proposing worker announced in
	// its handshake
	TaskID string
	// Name is the shared variable being set
	Name string
	// Value is the proposed value, exactly as it came over the wire
	Value string
}

// Agent is a miniature in-process coordination agent for tests. It keeps
// a shared variable table, answers VAR_GET requests with VAR_VALUE
// frames, applies VAR_SET_MD proposals, and broadcasts every update to
// all other connected workers. Tests can pre-seed or inject variable
// values with Set and assert on the proposals captured in Updates.
type Agent struct {
	t  TestingT
	ln net.Listener

	mu      sync.Mutex
	vars    map[string]string
	conns   map[*agentConn]bool
	updates []VarUpdate
}

// agentConn is one worker session; the write lock keeps VAR_GET replies
// and broadcasts from interleaving on the wire
type agentConn struct {
	conn net.Conn
	mu   sync.Mutex
}

// StartAgent launches the agent on an ephemeral loopback port. Callers
// defer Close.
func StartAgent(t TestingT) *Agent {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start agent listener: %v", err)
	}

	a := &Agent{
		t:     t,
		ln:    ln,
		vars:  make(map[string]string),
		conns: make(map[*agentConn]bool),
	}
	go a.acceptLoop()
	return a
}

// Close shuts the agent down, dropping every worker session
func (a *Agent) Close() {
	a.ln.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.conns {
		c.conn.Close()
	}
	a.conns = make(map[*agentConn]bool)
}

// Port returns the agent's listen port
func (a *Agent) Port() int {
	return a.ln.Addr().(*net.TCPAddr).Port
}

// AgentInfo returns the coordinates a worker needs to join this agent
func (a *Agent) AgentInfo(taskID string) types.AgentInfo {
	return types.AgentInfo{
		Address: "127.0.0.1",
		Port:    a.Port(),
		TaskID:  taskID,
	}
}

// Set updates a shared variable as if some other worker had proposed it:
// the table changes and every connected worker gets the update
func (a *Agent) Set(name, value string) {
	a.apply(nil, "", name, value)
}

// Get returns the current value of a shared variable
func (a *Agent) Get(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	value, ok := a.vars[name]
	return value, ok
}

// Updates returns every worker proposal observed so far, in arrival order
func (a *Agent) Updates() []VarUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]VarUpdate(nil), a.updates...)
}

// UpdatesFor returns the observed proposals for one variable
func (a *Agent) UpdatesFor(name string) []VarUpdate {
	var matched []VarUpdate
	for _, u := range a.Updates() {
		if u.Name == name {
			matched = append(matched, u)
		}
	}
	return matched
}

// Sessions returns the number of workers currently connected
func (a *Agent) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// WaitForUpdate blocks until some worker has proposed the variable with
// the given value; an empty value matches any proposal for the variable
func (a *Agent) WaitForUpdate(name, value string, timeout time.Duration) error {
	err := WaitFor(func() bool {
		for _, u := range a.UpdatesFor(name) {
			if value == "" || u.Value == value {
				return true
			}
		}
		return false
	}, timeout)
	if err != nil {
		return fmt.Errorf("no %s=%s proposal within %s", name, value, timeout)
	}
	return nil
}

// WaitForSessions blocks until the given number of workers are connected
func (a *Agent) WaitForSessions(n int, timeout time.Duration) error {
	err := WaitFor(func() bool { return a.Sessions() >= n }, timeout)
	if err != nil {
		return fmt.Errorf("fewer than %d workers connected within %s", n, timeout)
	}
	return nil
}

func (a *Agent) acceptLoop() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return // listener closed
		}
		go a.serve(conn)
	}
}

// serve handles one worker session: handshake, then frames until the
// worker half-closes, then a full close so the worker's receive side ends
func (a *Agent) serve(conn net.Conn) {
	c := &agentConn{conn: conn}
	defer func() {
		a.mu.Lock()
		delete(a.conns, c)
		a.mu.Unlock()
		conn.Close()
	}()

	// Handshake frame: one mode byte, then the task identifier
	frame, err := readFrame(conn)
	if err != nil || len(frame) < 1 {
		return
	}
	if frame[0] != 0 {
		a.t.Errorf("Agent: unexpected handshake mode tag %d", frame[0])
		return
	}
	taskID := string(frame[1:])

	a.mu.Lock()
	a.conns[c] = true
	a.mu.Unlock()

	for {
		frame, err := readFrame(conn)
		if err != nil {
			return // worker half-closed, or teardown
		}
		a.handle(c, taskID, string(frame))
	}
}

func (a *Agent) handle(c *agentConn, taskID, msg string) {
	fields := strings.Fields(msg)
	switch {
	case len(fields) == 2 && fields[0] == "VAR_GET":
		a.mu.Lock()
		value, ok := a.vars[fields[1]]
		a.mu.Unlock()
		if !ok {
			value = "NULL"
		}
		c.write("VAR_VALUE " + fields[1] + " " + value)

	case len(fields) == 3 && fields[0] == "VAR_SET_MD":
		a.apply(c, taskID, fields[1], fields[2])

	default:
		a.t.Errorf("Agent: unexpected worker frame %q", msg)
	}
}

// apply updates the table and broadcasts to every session except the
// proposing one. Proposals from workers are captured; scripted Sets
// (from == nil) are not.
func (a *Agent) apply(from *agentConn, taskID, name, value string) {
	a.mu.Lock()
	a.vars[name] = value
	if from != nil {
		a.updates = append(a.updates, VarUpdate{TaskID: taskID, Name: name, Value: value})
	}
	targets := make([]*agentConn, 0, len(a.conns))
	for c := range a.conns {
		if c != from {
			targets = append(targets, c)
		}
	}
	a.mu.Unlock()

	for _, c := range targets {
		c.write("VAR_VALUE " + name + " " + value)
	}
}

// write sends one length-prefixed frame; write errors mean the worker is
// already gone and are not the test's concern
func (c *agentConn) write(frame string) {
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(frame)))
	copy(buf[4:], frame)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.conn.Write(buf)
}

// readFrame reads one length-prefixed frame, blocking until it is
// complete or the stream ends
func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint32(header))
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}
	return body, nil
}
