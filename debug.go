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
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	console "github.com/phsym/console-slog"
)

// debugEnabled controls whether debug output reaches the logger. It starts on
// when SPORTIDENT_DEBUG or DEBUG is set.
var debugEnabled atomic.Bool

var (
	logLevel      = new(slog.LevelVar)
	defaultLogger = slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: logLevel}))
	activeLogger  atomic.Pointer[slog.Logger]
)

func init() {
	if os.Getenv("SPORTIDENT_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		SetDebugEnabled(true)
	}
}

// SetLogger replaces the logger used by the driver, the queue and the
// transports. A nil logger restores the default console logger.
func SetLogger(l *slog.Logger) {
	activeLogger.Store(l)
}

func logger() *slog.Logger {
	if l := activeLogger.Load(); l != nil {
		return l
	}
	return defaultLogger
}

// Logger returns the logger currently in use.
func Logger() *slog.Logger {
	return logger()
}

// Debugf logs protocol level debug information.
// Always writes to the session log file (if initialized) with a timestamp.
// Only reaches the logger when debug mode is enabled.
func Debugf(format string, args ...any) {
	debugMessage(fmt.Sprintf(format, args...))
}

// Debugln is the Sprint variant of Debugf.
func Debugln(args ...any) {
	debugMessage(fmt.Sprint(args...))
}

func debugMessage(message string) {
	writeSessionLine(time.Now(), "DEBUG", message)

	if debugEnabled.Load() {
		logger().Debug(message)
	}
}

// SetDebugEnabled turns debug output on or off. It also moves the default
// console logger to debug level.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
	if enabled {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}
