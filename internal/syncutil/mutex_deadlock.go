//go:build deadlock

// Package syncutil provides the mutex used by the queue, the transport and the
// test station. Building with -tags=deadlock swaps it for go-deadlock so lock
// order problems between the read loop and the driver show up in tests.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}
