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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/ZaparooProject/go-sportident/internal/syncutil"
	"github.com/stretchr/testify/require"
)

const testReadTimeout = 50 * time.Millisecond

var errWriteFailed = errors.New("write failed")

// recordingWriter records every message written and optionally fails.
type recordingWriter struct {
	err      error
	onWrite  func(Message)
	messages []Message
	mu       syncutil.Mutex
}

func (w *recordingWriter) Write(msg Message) error {
	w.mu.Lock()
	w.messages = append(w.messages, msg)
	err, hook := w.err, w.onWrite
	w.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (w *recordingWriter) Written() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// recordingHandler records statuses and frames in notification order.
type recordingHandler struct {
	statuses []CommStatus
	frames   []dataframe.DataFrame
	mu       syncutil.Mutex
}

func (h *recordingHandler) NotifyStatus(status CommStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *recordingHandler) NotifyFrame(frame dataframe.DataFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, frame)
}

func (h *recordingHandler) Statuses() []CommStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CommStatus, len(h.statuses))
	copy(out, h.statuses)
	return out
}

func (h *recordingHandler) Frames() []dataframe.DataFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]dataframe.DataFrame, len(h.frames))
	copy(out, h.frames)
	return out
}

// newTestQueue returns a queue with a short read timeout preloaded with raw
// station frames.
func newTestQueue(t *testing.T, frames ...[]byte) *MessageQueue {
	t.Helper()
	q := NewMessageQueue(16, testReadTimeout)
	for _, f := range frames {
		q.Add(NewMessage(f))
	}
	require.Equal(t, len(frames), q.Len())
	return q
}
