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
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // Mutates the package logger
func TestDebugf_RoutesToLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	prev := DebugEnabled()
	t.Cleanup(func() {
		SetLogger(nil)
		SetDebugEnabled(prev)
	})

	SetDebugEnabled(false)
	Debugf("hidden %d", 1)
	assert.NotContains(t, buf.String(), "hidden")

	SetDebugEnabled(true)
	assert.True(t, DebugEnabled())
	Debugf("visible %d", 2)
	Debugln("line", 3)
	assert.Contains(t, buf.String(), "visible 2")
	assert.Contains(t, buf.String(), "line3")
}

//nolint:paralleltest // Mutates the package logger
func TestSetLogger_NilRestoresDefault(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)
	assert.Same(t, custom, Logger())

	SetLogger(nil)
	assert.Same(t, defaultLogger, Logger())
}

//nolint:paralleltest // Mutates the session log
func TestSessionLog(t *testing.T) {
	dir := t.TempDir()

	path, err := InitSessionLog(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, path, GetSessionLogPath())

	prev := DebugEnabled()
	SetDebugEnabled(false)
	Debugf("written while debug is off")
	SetDebugEnabled(prev)

	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // Test file path
	require.NoError(t, err)
	assert.Contains(t, string(content), "=== SportIdent Debug Session Log ===")
	assert.Contains(t, string(content), "DEBUG: written while debug is off")
	assert.Contains(t, string(content), "=== Session ended ===")
}

//nolint:paralleltest // Mutates the session log
func TestInitSessionLog_BadDirectory(t *testing.T) {
	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
	assert.Empty(t, GetSessionLogPath())
}
