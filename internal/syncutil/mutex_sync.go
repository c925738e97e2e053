//go:build !deadlock

// Package syncutil provides the mutex used by the queue, the transport and the
// test station. Building with -tags=deadlock swaps it for go-deadlock so lock
// order problems between the read loop and the driver show up in tests.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Embedding exposes Lock and Unlock directly
type Mutex struct {
	sync.Mutex
}
