// Package lifecycle holds process-wide run state read by the health endpoint.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State is where the process is in its run.
type State string

const (
	StateStarting     State = "starting"
	StateReady        State = "ready"
	StateShuttingDown State = "shutting-down"
)

var (
	shuttingDown atomic.Bool
	ready        atomic.Bool
	startedAt    atomic.Int64
)

func init() {
	startedAt.Store(time.Now().UnixNano())
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT is received.
// Health returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// MarkReady records that the listener is up and sessions can be served.
func MarkReady() {
	ready.Store(true)
}

// CurrentState folds the flags into one value. Shutting down wins.
func CurrentState() State {
	switch {
	case shuttingDown.Load():
		return StateShuttingDown
	case ready.Load():
		return StateReady
	default:
		return StateStarting
	}
}

// Uptime is the time since process start.
func Uptime() time.Duration {
	return time.Since(time.Unix(0, startedAt.Load()))
}

// reset restores the initial state. Tests only.
func reset() {
	shuttingDown.Store(false)
	ready.Store(false)
}
