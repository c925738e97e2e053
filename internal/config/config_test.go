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
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/go-sportident/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sireader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, 3*time.Second, cfg.ReadTimeout())
		assert.True(t, cfg.LowSpeedFallback())
		assert.Equal(t, time.Duration(0), cfg.ZeroHour())
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
station:
  port: " /dev/ttyUSB0 "
  read_timeout_ms: 1500
  low_speed_fallback: false
  zero_hour: "09:30"
restart:
  attempts: 2
detection:
  mode: probe
  ignore_paths: ["/dev/ttyS0"]
  blocklist: ["1a86:7523"]
  stations: ["10c4:800a", "10C4:EA60"]
log:
  format: json
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Station.Port)
	assert.Equal(t, 10, cfg.Station.QueueCapacity)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReadTimeout())
	assert.False(t, cfg.LowSpeedFallback())
	assert.Equal(t, 9*time.Hour+30*time.Minute, cfg.ZeroHour())
	assert.Equal(t, 2, cfg.Restart.Attempts)
	assert.Equal(t, 250, cfg.Restart.BackoffMs)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	opts := cfg.DetectionOptions()
	assert.Equal(t, detection.Probe, opts.Mode)
	assert.Equal(t, []string{"/dev/ttyS0"}, opts.IgnorePaths)
	assert.Equal(t, []string{"1A86:7523"}, opts.Blocklist)
	assert.Equal(t, []string{"10C4:800A", "10C4:EA60"}, opts.Stations)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "station: [not, a, map]"))
	require.ErrorContains(t, err, "parse config")

	_, err = Load(writeConfig(t, "detection:\n  mode: loud\n"))
	require.ErrorContains(t, err, "unknown mode")

	_, err = Load(t.TempDir())
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero values", mutate: func(c *Config) { *c = Config{} }},
		{
			name:    "negative capacity",
			mutate:  func(c *Config) { c.Station.QueueCapacity = -1 },
			wantErr: "queue_capacity",
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *Config) { c.Station.ReadTimeoutMs = -5 },
			wantErr: "read_timeout_ms",
		},
		{
			name:    "bad zero hour",
			mutate:  func(c *Config) { c.Station.ZeroHour = "25:00" },
			wantErr: "zero_hour",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *Config) { c.Restart.Attempts = -1 },
			wantErr: "attempts",
		},
		{
			name:    "max backoff below backoff",
			mutate:  func(c *Config) { c.Restart.MaxBackoffMs = 100 },
			wantErr: "max_backoff_ms",
		},
		{
			name:    "bad blocklist entry",
			mutate:  func(c *Config) { c.Detection.Blocklist = []string{"10c4"} },
			wantErr: "blocklist",
		},
		{
			name:    "bad station entry",
			mutate:  func(c *Config) { c.Detection.Stations = []string{"xyz1:0000"} },
			wantErr: "stations",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "format",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "chatty" },
			wantErr: "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}

	require.Error(t, Validate(nil))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cfg := &Config{Detection: DetectionConfig{Blocklist: []string{" 1a86:7523 "}}}
	Normalize(cfg)
	defaults := Default()
	assert.Equal(t, defaults.Station, cfg.Station)
	assert.Equal(t, defaults.Log, cfg.Log)
	assert.Equal(t, "passive", cfg.Detection.Mode)
	assert.Equal(t, []string{"1A86:7523"}, cfg.Detection.Blocklist)

	Normalize(nil)
}
