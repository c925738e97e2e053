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

package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ZaparooProject/go-sportident/detection"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	// ---- station ----

	if cfg.Station.QueueCapacity < 0 {
		return fmt.Errorf("station: queue_capacity must not be negative, got %d", cfg.Station.QueueCapacity)
	}
	if cfg.Station.ReadTimeoutMs < 0 {
		return fmt.Errorf("station: read_timeout_ms must not be negative, got %d", cfg.Station.ReadTimeoutMs)
	}
	if cfg.Station.ZeroHour != "" {
		if _, err := parseZeroHour(cfg.Station.ZeroHour); err != nil {
			return fmt.Errorf("station: %w", err)
		}
	}

	// ---- restart ----

	if cfg.Restart.Attempts < 0 {
		return fmt.Errorf("restart: attempts must not be negative, got %d", cfg.Restart.Attempts)
	}
	if cfg.Restart.BackoffMs < 0 || cfg.Restart.MaxBackoffMs < 0 {
		return errors.New("restart: backoff must not be negative")
	}
	if cfg.Restart.MaxBackoffMs > 0 && cfg.Restart.MaxBackoffMs < cfg.Restart.BackoffMs {
		return fmt.Errorf(
			"restart: max_backoff_ms (%d) is below backoff_ms (%d)",
			cfg.Restart.MaxBackoffMs,
			cfg.Restart.BackoffMs,
		)
	}

	// ---- detection ----

	switch cfg.Detection.Mode {
	case "", "passive", "probe":
	default:
		return fmt.Errorf("detection: unknown mode %q (want passive or probe)", cfg.Detection.Mode)
	}
	for _, list := range []struct {
		name    string
		entries []string
	}{
		{"blocklist", cfg.Detection.Blocklist},
		{"stations", cfg.Detection.Stations},
	} {
		for _, entry := range list.entries {
			if !detection.ValidVIDPID(entry) {
				return fmt.Errorf("detection: %s entry %q is not VID:PID", list.name, entry)
			}
		}
	}

	// ---- log ----

	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q (want console or json)", cfg.Log.Format)
	}
	if cfg.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
		}
	}

	return nil
}
