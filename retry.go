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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// Session restart defaults
const (
	DefaultRestartAttempts   = 5
	DefaultRestartBackoff    = 250 * time.Millisecond
	DefaultRestartMaxBackoff = 5 * time.Second
)

// RetryConfig controls how an operation, typically a driver session, is run
// again after a failure.
type RetryConfig struct {
	// Retryable decides whether an error is worth another attempt.
	// Nil means IsHandshakeFailure.
	Retryable func(error) bool
	// MaxAttempts is the maximum number of attempts (0 = no retry)
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which the backoff increases
	BackoffMultiplier float64
	// Jitter adds up to this fraction of the backoff, at random
	Jitter float64
	// RetryTimeout bounds all attempts together (0 = unbounded)
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the restart policy used by the CLI.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultRestartAttempts,
		InitialBackoff:    DefaultRestartBackoff,
		MaxBackoff:        DefaultRestartMaxBackoff,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func(ctx context.Context) error

// RetryWithConfig runs fn until it succeeds, fails with an error config does
// not consider retryable, or runs out of attempts. The last error is returned.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		return fn(ctx)
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	retryable := config.Retryable
	if retryable == nil {
		retryable = IsHandshakeFailure
	}

	var lastErr error
	backoff := config.InitialBackoff
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("retry context cancelled: %w", ctx.Err())
		}

		err := fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		lastErr = err
		if attempt == config.MaxAttempts {
			break
		}

		sleep := calculateJitteredSleep(backoff, config.Jitter)
		logger().Info("retrying after failure",
			"attempt", attempt, "max_attempts", config.MaxAttempts, "backoff", sleep, "error", err)
		if !sleepWithContext(ctx, sleep) {
			return lastErr
		}
		backoff = calculateNextBackoff(backoff, config)
	}
	return lastErr
}

// sleepWithContext reports false when ctx ended the sleep early.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func calculateNextBackoff(backoff time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(backoff) * config.BackoffMultiplier)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

// calculateJitteredSleep adds a random share of up to jitterFactor to base.
func calculateJitteredSleep(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	var randBytes [8]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		return base
	}
	randFloat := float64(binary.LittleEndian.Uint64(randBytes[:])) / float64(1<<64)
	return base + time.Duration(randFloat*float64(base)*jitterFactor)
}
