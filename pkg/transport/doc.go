/*
Package transport implements the framed stream connection to the
coordination agent.

The transport package owns the lowest layer of the worker's session: a TCP
connection carrying length-prefixed frames, the session-opening handshake,
and a bounded-poll receive discipline that lets callers interleave other
work (such as kill-signal retries) between read attempts without ever
blocking indefinitely on the network.

# Architecture

	┌─────────────────── FRAME TRANSPORT ───────────────────────┐
	│                                                           │
	│   Caller (protocol client / receiver loop)                │
	│        │                                                  │
	│        │ Handshake(taskID) / Send(payload)                │
	│        ▼                                                  │
	│   ┌──────────────────────────────┐                        │
	│   │ Conn                         │                        │
	│   │  - write mutex               │   4-byte BE length     │
	│   │  - poll interval (500ms)     │──────────────────────▶ │
	│   │  - partial frame accumulator │   payload bytes        │
	│   └──────────────────────────────┘                        │
	│        ▲                                                  │
	│        │ Receive() one of:                                │
	│        │   frame []byte   (complete message)              │
	│        │   ErrPollTimeout (interval elapsed, retry)       │
	│        │   io.EOF         (peer closed)                   │
	│        │                                                  │
	│   ┌──────────────────────────────┐                        │
	│   │ TCP stream to the agent      │                        │
	│   └──────────────────────────────┘                        │
	└───────────────────────────────────────────────────────────┘

# Wire Format

Handshake (sent once, immediately after connecting):

	4 bytes  big-endian uint32 = len(taskID) + 1
	1 byte   mode tag, always 0 (message mode)
	n bytes  task identifier

Every subsequent message in either direction:

	4 bytes  big-endian uint32 payload length
	n bytes  payload (newline-free text)

# Receive Discipline

Receive blocks for at most one poll interval (DefaultPollInterval, 500ms)
per call. Three outcomes are possible:

  - A complete frame: the 4-byte header and the declared payload bytes have
    all arrived. The internal accumulator is reset; no partial state ever
    carries over between logically distinct messages.
  - ErrPollTimeout: the interval elapsed first. Any bytes already read stay
    buffered inside the Conn, and the next Receive call continues the same
    frame where it left off. Callers treat this as a transient condition:
    the receiver loop uses it as its chance to re-send kill signals, the
    bootstrap simply calls Receive again.
  - io.EOF: the peer closed the stream (a zero-length read). This is the
    normal end of a session, not a failure.

Any other read failure is wrapped and returned as-is; those indicate the
connection is gone and callers must end the session.

# Usage

Connecting and opening a session:

	conn, err := transport.Dial(transport.Config{
		Address: "localhost",
		Port:    35071,
	})
	if err != nil {
		return err // agent unreachable, fatal, no retry
	}
	defer conn.Close()

	if err := conn.Handshake("task-42"); err != nil {
		return err
	}

Sending and receiving frames:

	if err := conn.Send([]byte("VAR_GET record")); err != nil {
		return err
	}

	for {
		frame, err := conn.Receive()
		if errors.Is(err, transport.ErrPollTimeout) {
			continue // nothing yet, poll again
		}
		if errors.Is(err, io.EOF) {
			break // peer closed, session over
		}
		if err != nil {
			return err
		}
		handle(frame)
	}

Ending a session without dropping inbound updates:

	// Tells the agent no more proposals are coming; inbound
	// VAR_VALUE fan-out continues until the agent closes.
	conn.CloseWrite()

# Failure Scenarios

Agent Unreachable:
  - Dial fails after the dial timeout (default 5s)
  - Error wraps the net failure and names the agent address
  - Callers must not retry; a worker without its agent runs standalone

Agent Crashes Mid-Session:
  - In-flight Receive returns io.EOF once the kernel drains the stream
  - Sends fail with a wrapped write error
  - The session ends; no reconnection is attempted

Slow Agent:
  - Receive returns ErrPollTimeout every interval
  - Partial frames accumulate correctly across any number of polls
  - No data is lost as long as the stream stays open

# Performance Characteristics

  - One allocation per received frame (the payload buffer), sized from the
    header, plus one per send for the prefixed copy
  - Frames in this protocol are tens of bytes, except record updates with
    inline solution payloads which reach tens of kilobytes
  - The 500ms poll bounds worst-case latency for noticing a half-closed
    peer or servicing a kill retry

# Integration Points

  - pkg/protocol: the variable-protocol session speaks through a Conn
  - pkg/worker: the receiver loop drives Receive and interprets
    ErrPollTimeout as its kill-retry tick
  - test/framework: the in-process agent speaks the same framing from
    the accepting side for integration tests

# See Also

  - pkg/protocol for the message grammar carried in these frames
  - pkg/worker for how poll timeouts drive the kill negotiation
*/
package transport
