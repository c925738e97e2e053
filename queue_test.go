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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageQueue_Defaults(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(0, 0)
	assert.Equal(t, DefaultQueueCapacity, q.Cap())
	assert.Equal(t, DefaultReadTimeout, q.Timeout())
	assert.Zero(t, q.Len())
}

func TestMessageQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, testReadTimeout)
	q.Add(Ack)
	q.Add(Nak)
	q.Add(Beep)

	for _, want := range []Message{Ack, Nak, Beep} {
		got, err := q.Receive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMessageQueue_ReceiveTimeout(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, testReadTimeout)
	start := time.Now()
	_, err := q.Receive(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), testReadTimeout)
}

func TestMessageQueue_TimeoutPerRead(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, 3*testReadTimeout)
	go func() {
		for range 3 {
			time.Sleep(2 * testReadTimeout)
			q.Add(Ack)
		}
	}()

	// Three reads spanning more than one timeout window all succeed.
	for range 3 {
		_, err := q.Receive(context.Background())
		require.NoError(t, err)
	}
}

func TestMessageQueue_ReceiveExpected(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, testReadTimeout)
	q.Add(Ack)
	q.Add(Nak)

	msg, err := q.ReceiveExpected(context.Background(), KindAck)
	require.NoError(t, err)
	assert.Equal(t, Ack, msg)

	_, err = q.ReceiveExpected(context.Background(), KindAck)
	var ime *InvalidMessageError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, Nak, ime.Received)
	assert.Equal(t, KindAck, ime.Expected)
	assert.Contains(t, err.Error(), "expected ack")
	assert.Zero(t, q.Len(), "mismatched message is consumed")

	_, err = q.ReceiveExpected(context.Background(), KindAck)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestMessageQueue_DropOldest(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(2, testReadTimeout)
	q.Add(Ack)
	q.Add(Nak)
	q.Add(Beep)

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, int64(1), q.Dropped())

	first, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Nak, first)
	second, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Beep, second)
}

func TestMessageQueue_Wait(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, testReadTimeout)
	go func() {
		time.Sleep(2 * testReadTimeout)
		q.Add(Beep)
	}()

	msg, err := q.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Beep, msg)
}

func TestMessageQueue_ContextCancel(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(testReadTimeout)
		cancel()
	}()

	_, err := q.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)

	_, err = q.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMessageQueue_Clear(t *testing.T) {
	t.Parallel()

	q := NewMessageQueue(4, testReadTimeout)
	q.Add(Ack)
	q.Add(Nak)
	assert.Equal(t, 2, q.Clear())
	assert.Zero(t, q.Len())
}

func TestMessageQueue_ConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 500
	q := NewMessageQueue(total, time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range total {
			q.Add(Ack)
		}
	}()

	received := 0
	for received < total {
		_, err := q.Receive(context.Background())
		require.NoError(t, err)
		received++
	}
	wg.Wait()
	assert.Zero(t, q.Dropped())
}
