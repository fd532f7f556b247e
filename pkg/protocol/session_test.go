package protocol

import (
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceline/paceline/pkg/codec"
	"github.com/paceline/paceline/pkg/transport"
	"github.com/paceline/paceline/pkg/types"
)

// fakeAgent is a single-session coordination agent scripted by the test
type fakeAgent struct {
	t    *testing.T
	ln   net.Listener
	conn net.Conn
}

func startFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeAgent{t: t, ln: ln}
	t.Cleanup(func() {
		if f.conn != nil {
			f.conn.Close()
		}
		ln.Close()
	})
	return f
}

func (f *fakeAgent) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

// accept waits for the worker connection and consumes its handshake,
// returning the task identifier the worker announced
func (f *fakeAgent) accept() string {
	f.t.Helper()

	done := make(chan net.Conn, 1)
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		done <- conn
	}()

	select {
	case f.conn = <-done:
	case <-time.After(2 * time.Second):
		f.t.Fatal("worker never connected")
	}

	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	header := make([]byte, 4)
	_, err := io.ReadFull(f.conn, header)
	require.NoError(f.t, err)

	size := binary.BigEndian.Uint32(header)
	body := make([]byte, size)
	_, err = io.ReadFull(f.conn, body)
	require.NoError(f.t, err)

	require.Equal(f.t, byte(0), body[0], "handshake mode tag")
	return string(body[1:])
}

// readFrame consumes one outbound frame from the worker
func (f *fakeAgent) readFrame() string {
	f.t.Helper()
	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	header := make([]byte, 4)
	_, err := io.ReadFull(f.conn, header)
	require.NoError(f.t, err)

	body := make([]byte, binary.BigEndian.Uint32(header))
	_, err = io.ReadFull(f.conn, body)
	require.NoError(f.t, err)
	return string(body)
}

// push sends one frame to the worker
func (f *fakeAgent) push(payload string) {
	f.t.Helper()
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := f.conn.Write(buf)
	require.NoError(f.t, err)
}

func connectSession(t *testing.T, agent *fakeAgent) Session {
	t.Helper()

	type result struct {
		sess Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sess, err := Connect(Config{
			Agent: types.AgentInfo{
				Address: "127.0.0.1",
				Port:    agent.port(),
				TaskID:  "task-42",
			},
			Stub:         "foo.nl",
			PollInterval: 50 * time.Millisecond,
		})
		done <- result{sess, err}
	}()

	taskID := agent.accept()
	assert.Equal(t, "task-42", taskID)

	res := <-done
	require.NoError(t, res.err)
	require.True(t, res.sess.Coordinated())
	t.Cleanup(func() { res.sess.Close() })
	return res.sess
}

func TestConnectStandalone(t *testing.T) {
	sess, err := Connect(Config{Agent: types.AgentInfo{}, Stub: "foo.nl"})
	require.NoError(t, err)

	_, ok := sess.(*Standalone)
	assert.True(t, ok)
	assert.False(t, sess.Coordinated())

	vars, err := sess.AwaitInitialVariables()
	require.NoError(t, err)
	assert.False(t, vars.HasRecord)
	assert.False(t, vars.Stopped)

	assert.NoError(t, sess.ProposeRecord(codec.Record{Value: 1.0}))
	assert.NoError(t, sess.ProposeStop())
	assert.NoError(t, sess.CloseWrite())

	_, err = sess.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestAwaitInitialVariables(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	type result struct {
		vars InitialVars
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := sess.AwaitInitialVariables()
		done <- result{v, err}
	}()

	// The worker requests its own stop variable first, then the record
	assert.Equal(t, "VAR_GET foo_stopped", agent.readFrame())
	assert.Equal(t, "VAR_GET record", agent.readFrame())

	// Replies interleaved with traffic for unrelated variables
	agent.push("VAR_VALUE bar_stopped 1")
	agent.push("VAR_VALUE record 7.5")
	agent.push("VAR_VALUE foo_stopped NULL")

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 7.5, res.vars.Record)
	assert.True(t, res.vars.HasRecord)
	assert.False(t, res.vars.Stopped)
}

func TestAwaitInitialVariablesValues(t *testing.T) {
	tests := []struct {
		name        string
		recordFrame string
		stopFrame   string
		wantRecord  float64
		wantHas     bool
		wantStopped bool
	}{
		{
			name:        "both unset",
			recordFrame: "VAR_VALUE record NULL",
			stopFrame:   "VAR_VALUE foo_stopped NULL",
		},
		{
			name:        "record present",
			recordFrame: "VAR_VALUE record 7.5",
			stopFrame:   "VAR_VALUE foo_stopped NULL",
			wantRecord:  7.5,
			wantHas:     true,
		},
		{
			name:        "already stopped",
			recordFrame: "VAR_VALUE record NULL",
			stopFrame:   "VAR_VALUE foo_stopped 1",
			wantStopped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := startFakeAgent(t)
			sess := connectSession(t, agent)

			type result struct {
				vars InitialVars
				err  error
			}
			done := make(chan result, 1)
			go func() {
				v, err := sess.AwaitInitialVariables()
				done <- result{v, err}
			}()

			agent.readFrame()
			agent.readFrame()
			agent.push(tt.stopFrame)
			agent.push(tt.recordFrame)

			res := <-done
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantRecord, res.vars.Record)
			assert.Equal(t, tt.wantHas, res.vars.HasRecord)
			assert.Equal(t, tt.wantStopped, res.vars.Stopped)
		})
	}
}

func TestAwaitInitialVariablesEndOfStream(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	done := make(chan error, 1)
	go func() {
		_, err := sess.AwaitInitialVariables()
		done <- err
	}()

	agent.readFrame()
	agent.readFrame()
	agent.push("VAR_VALUE record NULL")
	require.NoError(t, agent.conn.(*net.TCPConn).CloseWrite())

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestProposeRecord(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	require.NoError(t, sess.ProposeRecord(codec.Record{Value: 5.0}))
	assert.Equal(t, "VAR_SET_MD record 5.0000", agent.readFrame())
}

func TestProposeRecordWithSolution(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	blob := []byte("objective 5.0\nx1 0.25\n")
	require.NoError(t, sess.ProposeRecord(codec.Record{Value: 5.0, Solution: blob}))

	frame := agent.readFrame()
	fields := strings.Fields(frame)
	require.Len(t, fields, 3)
	assert.Equal(t, "VAR_SET_MD", fields[0])
	assert.Equal(t, RecordVar, fields[1])

	rec, err := codec.ParseRecord(fields[2])
	require.NoError(t, err)
	assert.Equal(t, 5.0, rec.Value)
	assert.Equal(t, blob, rec.Solution)
}

func TestProposeStop(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	require.NoError(t, sess.ProposeStop())
	assert.Equal(t, "VAR_SET_MD foo_stopped 1", agent.readFrame())
}

func TestSessionReceivePassthrough(t *testing.T) {
	agent := startFakeAgent(t)
	sess := connectSession(t, agent)

	_, err := sess.Receive()
	assert.ErrorIs(t, err, transport.ErrPollTimeout)

	agent.push("VAR_VALUE record 3.2")
	frame, err := sess.Receive()
	require.NoError(t, err)
	assert.Equal(t, "VAR_VALUE record 3.2", string(frame))
}
