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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sportident "github.com/ZaparooProject/go-sportident"
	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/ZaparooProject/go-sportident/detection"
	"github.com/ZaparooProject/go-sportident/internal/config"
	"github.com/ZaparooProject/go-sportident/transport/uart"
)

type options struct {
	configPath string
	port       string
	zeroHour   string
	logFormat  string
	logLevel   string
	sessionDir string
	probe      bool
	jsonOutput bool
	debug      bool
}

// Package-level flag variables
var (
	flagConfig     string
	flagPort       string
	flagZeroHour   string
	flagLogFormat  string
	flagLogLevel   string
	flagSessionDir string
	flagProbe      bool
	flagJSON       bool
	flagDebug      bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML configuration file")
	flag.StringVar(&flagPort, "port", "", "Station serial port (auto-detect if empty)")
	flag.StringVar(&flagZeroHour, "zero-hour", "", "Earliest start time of the event as HH:MM")
	flag.StringVar(&flagLogFormat, "log-format", "", "Log format: console or json")
	flag.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.StringVar(&flagSessionDir, "session-log", "", "Directory for a session log file")
	flag.BoolVar(&flagProbe, "probe", false, "Probe USB serial bridges during auto-detection")
	flag.BoolVar(&flagJSON, "json", false, "Print cards as JSON lines")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseOptions() *options {
	return &options{
		configPath: flagConfig,
		port:       flagPort,
		zeroHour:   flagZeroHour,
		logFormat:  flagLogFormat,
		logLevel:   flagLogLevel,
		sessionDir: flagSessionDir,
		probe:      flagProbe,
		jsonOutput: flagJSON,
		debug:      flagDebug,
	}
}

// loadConfig reads the configuration file and applies the flags on top.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	if opts.port != "" {
		cfg.Station.Port = opts.port
	}
	if opts.zeroHour != "" {
		cfg.Station.ZeroHour = opts.zeroHour
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if opts.sessionDir != "" {
		cfg.Log.SessionDir = opts.sessionDir
	}
	if opts.probe {
		cfg.Detection.Mode = "probe"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

// findStation returns the configured port or the best detected station.
func findStation(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Station.Port != "" {
		return cfg.Station.Port, nil
	}

	sportident.Logger().Info("auto-detecting SportIdent stations")
	opts := cfg.DetectionOptions()
	devices, err := detection.New(uart.Probe).Detect(ctx, &opts)
	if err != nil {
		return "", fmt.Errorf("station detection failed: %w", err)
	}
	for _, device := range devices {
		sportident.Debugf("found %s", device)
	}
	return devices[0].Path, nil
}

func restartConfig(cfg *config.Config) *sportident.RetryConfig {
	retry := sportident.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Restart.Attempts
	retry.InitialBackoff = time.Duration(cfg.Restart.BackoffMs) * time.Millisecond
	retry.MaxBackoff = time.Duration(cfg.Restart.MaxBackoffMs) * time.Millisecond
	return retry
}

// readCards runs driver sessions on tr until ctx is done, restarting the
// handshake after recoverable failures.
func readCards(ctx context.Context, cfg *config.Config, tr *uart.Transport, out *frameWriter) error {
	q := sportident.NewMessageQueue(cfg.Station.QueueCapacity, cfg.ReadTimeout())

	listenCtx, stopListen := context.WithCancel(ctx)
	defer stopListen()
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- tr.Listen(listenCtx, q)
		stopListen()
	}()

	log := sportident.Logger().With("port", tr.PortName())
	handler := sportident.HandlerFuncs{
		OnStatus: func(status sportident.CommStatus) {
			log.Info("station status", "status", status)
		},
		OnFrame: func(frame dataframe.DataFrame) {
			if err := out.write(frame); err != nil {
				log.Error("failed to print card", "card", frame.CardNumber(), "error", err)
			}
		},
	}

	err := sportident.RetryWithConfig(listenCtx, restartConfig(cfg), func(ctx context.Context) error {
		if dropped := q.Clear(); dropped > 0 {
			sportident.Debugf("discarded %d stale messages", dropped)
		}
		driver := sportident.NewDriver(q, tr, handler,
			sportident.WithLowSpeedFallback(cfg.LowSpeedFallback()))
		return driver.Run(ctx)
	})

	// A dead port stops the session first; report it rather than the cancel
	select {
	case lerr := <-listenErr:
		if lerr != nil {
			return lerr
		}
	default:
	}
	return err
}

func run(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer) error {
	port, err := findStation(ctx, cfg)
	if err != nil {
		return err
	}

	tr, err := uart.New(port)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close station: %v\n", err)
		}
	}()

	_, _ = fmt.Fprintf(stdout, "Reading cards from %s. Press Ctrl+C to stop...\n", port)
	out := newFrameWriter(stdout, cfg.ZeroHour(), opts.jsonOutput)
	return readCards(ctx, cfg, tr, out)
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	opts := parseOptions()
	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	sportident.SetLogger(newLogger(cfg.Log.Format, cfg.LogLevel(), os.Stderr))
	if cfg.LogLevel() <= slog.LevelDebug {
		sportident.SetDebugEnabled(true)
	}
	if cfg.Log.SessionDir != "" {
		path, err := sportident.InitSessionLog(cfg.Log.SessionDir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = sportident.CloseSessionLog() }()
		sportident.Logger().Info("session log", "path", path)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			// User requested shutdown, exit cleanly
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
