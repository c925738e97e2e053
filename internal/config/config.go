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

// Package config loads the sireader YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/ZaparooProject/go-sportident/detection"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Station   StationConfig   `yaml:"station"`
	Restart   RestartConfig   `yaml:"restart"`
	Detection DetectionConfig `yaml:"detection"`
	Log       LogConfig       `yaml:"log"`
}

// ---- STATION ----

type StationConfig struct {
	// Empty means auto-detect
	Port             string `yaml:"port"`
	QueueCapacity    int    `yaml:"queue_capacity"`
	ReadTimeoutMs    int    `yaml:"read_timeout_ms"`
	LowSpeedFallback *bool  `yaml:"low_speed_fallback"`
	// HH:MM, the local time punch times are resolved against
	ZeroHour string `yaml:"zero_hour"`
}

// ---- RESTART ----

type RestartConfig struct {
	Attempts     int `yaml:"attempts"`
	BackoffMs    int `yaml:"backoff_ms"`
	MaxBackoffMs int `yaml:"max_backoff_ms"`
}

// ---- DETECTION ----

type DetectionConfig struct {
	Mode        string   `yaml:"mode"` // passive | probe
	IgnorePaths []string `yaml:"ignore_paths"`
	Blocklist   []string `yaml:"blocklist"`
	Stations    []string `yaml:"stations"`
}

// ---- LOG ----

type LogConfig struct {
	Format     string `yaml:"format"` // console | json
	Level      string `yaml:"level"`
	SessionDir string `yaml:"session_dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			QueueCapacity: 10,
			ReadTimeoutMs: 3000,
			ZeroHour:      "00:00",
		},
		Restart: RestartConfig{
			Attempts:     5,
			BackoffMs:    250,
			MaxBackoffMs: 5000,
		},
		Detection: DetectionConfig{Mode: "passive"},
		Log:       LogConfig{Format: "console", Level: "info"},
	}
}

// Load reads path over the defaults, then validates and normalizes the
// result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the operator
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}

// ReadTimeout returns the per-read timeout of the message queue.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Station.ReadTimeoutMs) * time.Millisecond
}

// LowSpeedFallback reports whether the startup is retried at 4800 baud.
func (c *Config) LowSpeedFallback() bool {
	return c.Station.LowSpeedFallback == nil || *c.Station.LowSpeedFallback
}

// ZeroHour returns the zero hour as an offset from midnight.
func (c *Config) ZeroHour() time.Duration {
	d, _ := parseZeroHour(c.Station.ZeroHour)
	return d
}

// DetectionOptions builds detector options from the detection section.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	if c.Detection.Mode == "probe" {
		opts.Mode = detection.Probe
	}
	opts.IgnorePaths = c.Detection.IgnorePaths
	opts.Blocklist = append(opts.Blocklist, c.Detection.Blocklist...)
	if len(c.Detection.Stations) > 0 {
		opts.Stations = c.Detection.Stations
	}
	return opts
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseZeroHour(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("zero_hour %q: want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
