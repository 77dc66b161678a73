package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a session.
type State int

const (
	// StateIdle - Created, not yet streaming.
	StateIdle State = iota
	// StateRunning - Audio is flowing to the provider.
	StateRunning
	// StateStopping - Teardown in progress; late provider results are still accepted.
	StateStopping
	// StateClosed - Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrSessionClosed  = errors.New("session is closed")
)

// Lifecycle is the session state machine. Thread-safe.
//
//	IDLE → RUNNING → STOPPING → CLOSED
//
// Close is allowed from any state and is idempotent.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
}

func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{sessionId: sessionId}
}

func (l *Lifecycle) SessionId() string {
	return l.sessionId
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Start moves IDLE to RUNNING.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle:
		l.state = StateRunning
		return nil
	case StateRunning, StateStopping:
		return ErrAlreadyStarted
	default:
		return ErrSessionClosed
	}
}

// Stop moves RUNNING to STOPPING. It reports whether the transition happened.
func (l *Lifecycle) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return false
	}
	l.state = StateStopping
	return true
}

func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

// AcceptsResults is true while provider results should still reach the reconciler.
func (l *Lifecycle) AcceptsResults() bool {
	s := l.State()
	return s == StateRunning || s == StateStopping
}
