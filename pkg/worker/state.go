package worker

import (
	"sync"
)

// state is the running flag shared by the control loop and the receiver
// loop. It starts set and clears exactly once; both loops observe it each
// iteration and terminate promptly once it clears.
type state struct {
	done chan struct{}
	once sync.Once
}

func newState() *state {
	return &state{done: make(chan struct{})}
}

// stop clears the running flag. Either loop may call it, any number of
// times.
func (s *state) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

// running reports whether the session is still live
func (s *state) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
