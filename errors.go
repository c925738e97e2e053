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
	"errors"
	"fmt"
	"io"
	"runtime"
	"syscall"
)

// Error categories of the driver
var (
	// ErrTimeout means an expected read produced nothing within the queue timeout
	ErrTimeout = errors.New("timeout waiting for station message")

	// ErrTerminalState is returned when a terminal state is asked to transition
	ErrTerminalState = errors.New("driver state is terminal")

	// ErrExtendedProtocolUnsupported means the station is configured without
	// the extended protocol and cannot be driven
	ErrExtendedProtocolUnsupported = errors.New("station does not run the extended protocol")

	// ErrTransportClosed is returned by writers after their port was closed
	ErrTransportClosed = errors.New("transport is closed")
)

// InvalidMessageError is returned when a message arrived but its kind was not
// the one the current state required.
type InvalidMessageError struct {
	Received Message
	Expected Kind
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message: expected %s, received %s", e.Expected, e.Received)
}

// TransportError wraps a failure to send a command to the station. It is fatal
// in every driver state.
type TransportError struct {
	Err  error  // Underlying error
	Op   string // Operation that failed
	Port string // Port or device identifier
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a per-card failure the retrieval states
// absorb: a timeout or an unexpected message.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var ime *InvalidMessageError
	return errors.Is(err, ErrTimeout) || errors.As(err, &ime)
}

// IsHandshakeFailure reports whether err ended the driver during the
// handshake in a way a caller may retry by restarting it.
func IsHandshakeFailure(err error) bool {
	return IsRecoverable(err)
}

// isContextError reports whether err comes from ctx cancellation rather than
// from the protocol.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsFatal reports whether err means the station or its port is gone and the
// driver cannot be restarted on the same connection.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, ErrExtendedProtocolUnsupported),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when the USB station is
// unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}
	return false
}
