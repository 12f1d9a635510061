package run

import (
	"fmt"
	"sync"
)

// Status represents the lifecycle state of an inference run.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// StateMachine manages status transitions for a single run.
type StateMachine struct {
	mu     sync.RWMutex
	status Status
}

func NewStateMachine(initial Status) *StateMachine {
	if initial == "" {
		initial = StatusCreated
	}
	return &StateMachine{status: initial}
}

// Status returns the current status.
func (sm *StateMachine) Status() Status {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.status
}

// Transition attempts to move the state to target.
// It returns an error if the transition is invalid.
func (sm *StateMachine) Transition(target Status) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !CanTransition(sm.status, target) {
		return fmt.Errorf("invalid status transition: %s -> %s", sm.status, target)
	}

	sm.status = target
	return nil
}

// CanTransition defines the permitted state machine edges.
func CanTransition(current, target Status) bool {
	if current == target {
		return !current.Terminal()
	}

	switch current {
	case StatusCreated:
		return target == StatusRunning || target == StatusCancelled
	case StatusRunning:
		return target == StatusSucceeded || target == StatusFailed || target == StatusCancelled
	default:
		return false
	}
}
