package engine

import "sync"

// Signal is the cooperative pause/stop gate shared between the iteration
// engine and whatever drives it (the control plane, or a test). It uses the
// same closed-channel-as-broadcast pattern as the rate controller's pause
// gate: the channel returned by gate stays open while paused, and closing
// it wakes every waiter the instant Resume or RequestStop runs.
type Signal struct {
	mu      sync.Mutex
	resume  chan struct{}
	paused  bool
	stopped bool
}

// NewSignal returns a Signal in the running (unpaused, unstopped) state.
func NewSignal() *Signal {
	s := &Signal{resume: make(chan struct{})}
	close(s.resume)
	return s
}

// Pause swaps in an open gate channel, so waiters on gate block until
// Resume or RequestStop runs.
func (s *Signal) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.stopped {
		return
	}
	s.paused = true
	s.resume = make(chan struct{})
}

// Resume releases a paused Signal. A no-op if not paused or already stopped.
func (s *Signal) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused || s.stopped {
		return
	}
	s.paused = false
	close(s.resume)
}

// RequestStop marks the Signal stopped and wakes any waiter; once stopped a
// Signal cannot be un-stopped.
func (s *Signal) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.paused {
		s.paused = false
		close(s.resume)
	}
}

// IsPaused reports whether the Signal's gate is currently closed to waiters.
func (s *Signal) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// StopRequested reports whether RequestStop has run.
func (s *Signal) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// gate returns the channel to wait on, sampled under the lock.
func (s *Signal) gate() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume
}
