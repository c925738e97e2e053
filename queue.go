// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sportident

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-sportident/internal/syncutil"
	"github.com/puzpuzpuz/xsync/v3"
)

// Default queue settings
const (
	DefaultQueueCapacity = 10
	DefaultReadTimeout   = 3 * time.Second
)

// MessageQueue is the bounded mailbox between the transport, which decodes
// station messages and adds them, and the driver, which receives them.
//
// Add never blocks: when the queue is full the oldest message is dropped to
// make room, so a stalled driver sees the most recent station traffic.
type MessageQueue struct {
	ch      chan Message
	dropped *xsync.Counter
	timeout time.Duration
	addMu   syncutil.Mutex
}

// NewMessageQueue creates a queue holding up to capacity messages whose
// Receive gives up after timeout.
func NewMessageQueue(capacity int, timeout time.Duration) *MessageQueue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &MessageQueue{
		ch:      make(chan Message, capacity),
		dropped: xsync.NewCounter(),
		timeout: timeout,
	}
}

// Add enqueues msg.
func (q *MessageQueue) Add(msg Message) {
	q.addMu.Lock()
	defer q.addMu.Unlock()

	for {
		select {
		case q.ch <- msg:
			return
		default:
		}

		// Full: make room. The consumer may have emptied a slot meanwhile,
		// in which case there is nothing to drop and the send is retried.
		select {
		case old := <-q.ch:
			q.dropped.Inc()
			Debugf("queue full, dropped %s", old)
		default:
		}
	}
}

// Receive returns the oldest message, or ErrTimeout once the queue timeout has
// elapsed with nothing available. Each call arms its own timeout.
func (q *MessageQueue) Receive(ctx context.Context) (Message, error) {
	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return msg, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("%w after %s", ErrTimeout, q.timeout)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// ReceiveExpected receives a message and checks it is of the given kind. On a
// mismatch the received message is consumed and returned in an
// *InvalidMessageError.
func (q *MessageQueue) ReceiveExpected(ctx context.Context, kind Kind) (Message, error) {
	msg, err := q.Receive(ctx)
	if err != nil {
		return Message{}, err
	}
	if msg.Kind() != kind {
		return Message{}, &InvalidMessageError{Received: msg, Expected: kind}
	}
	return msg, nil
}

// Wait returns the oldest message, blocking without a deadline until one is
// available or ctx is done.
func (q *MessageQueue) Wait(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *MessageQueue) Cap() int {
	return cap(q.ch)
}

// Timeout returns the per-read timeout.
func (q *MessageQueue) Timeout() time.Duration {
	return q.timeout
}

// Dropped returns how many messages were discarded because the queue was full.
func (q *MessageQueue) Dropped() int64 {
	return q.dropped.Value()
}

// Clear discards every queued message and returns how many there were.
func (q *MessageQueue) Clear() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
