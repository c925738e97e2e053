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

import "strings"

// Normalize applies post-validation normalization.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	defaults := Default()

	// Zero values fall back to the defaults
	if cfg.Station.QueueCapacity == 0 {
		cfg.Station.QueueCapacity = defaults.Station.QueueCapacity
	}
	if cfg.Station.ReadTimeoutMs == 0 {
		cfg.Station.ReadTimeoutMs = defaults.Station.ReadTimeoutMs
	}
	if cfg.Station.ZeroHour == "" {
		cfg.Station.ZeroHour = defaults.Station.ZeroHour
	}
	if cfg.Detection.Mode == "" {
		cfg.Detection.Mode = defaults.Detection.Mode
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	cfg.Station.Port = strings.TrimSpace(cfg.Station.Port)
	for i, entry := range cfg.Detection.Blocklist {
		cfg.Detection.Blocklist[i] = strings.ToUpper(strings.TrimSpace(entry))
	}
	for i, entry := range cfg.Detection.Stations {
		cfg.Detection.Stations[i] = strings.ToUpper(strings.TrimSpace(entry))
	}
}
