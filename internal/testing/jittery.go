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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	MaxLatency       time.Duration
	Seed             uint64
	FragmentMinBytes int
}

// DefaultJitterConfig returns a configuration that splits every read into
// small random fragments, the way USB-serial bridges deliver station replies.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatency:       2 * time.Millisecond,
		FragmentMinBytes: 1,
		Seed:             42,
	}
}

// JitteryConnection wraps an io.ReadWriter and delivers reads in random sized
// fragments with random latency. Bytes read from the backend are buffered so
// nothing is lost when a fragment is shorter than what was available.
type JitteryConnection struct {
	backend io.ReadWriter
	rng     *rand.Rand
	pending []byte
	config  JitterConfig
}

// NewJitteryConnection wraps backend with jitter simulation.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)), //nolint:gosec // Test code, not crypto
	}
}

// Write passes writes through unchanged.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read returns at most a random fragment of the available bytes.
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		time.Sleep(time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)))
	}

	if len(j.pending) == 0 {
		tmp := make([]byte, len(buf))
		n, err := j.backend.Read(tmp)
		if n == 0 || err != nil {
			return n, err //nolint:wrapcheck // Pass-through wrapper
		}
		j.pending = tmp[:n]
	}

	size := len(j.pending)
	if size > j.config.FragmentMinBytes {
		size = j.config.FragmentMinBytes + j.rng.IntN(size-j.config.FragmentMinBytes+1)
	}
	n := copy(buf, j.pending[:size])
	j.pending = j.pending[n:]
	return n, nil
}
