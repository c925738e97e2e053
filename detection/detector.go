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

// Package detection finds SportIdent master stations among the serial ports
// of the machine.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"
)

// Mode represents the level of invasiveness for device detection
type Mode int

const (
	// Passive mode only checks USB descriptors without any communication
	Passive Mode = iota
	// Probe mode also sends the startup sequence to unknown USB serial ports
	Probe
)

// Confidence represents the confidence level of device detection
type Confidence int

const (
	// Low confidence - a USB serial bridge that may host a station
	Low Confidence = iota
	// Medium confidence - the product string names SportIdent
	Medium
	// High confidence - known station VID:PID or the port answered the startup
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo represents a detected station
type DeviceInfo struct {
	// Additional metadata: "vidpid", "product", "serial"
	Metadata map[string]string
	// Connection path (e.g., "/dev/ttyUSB0", "COM3")
	Path string
	// Human-readable device name
	Name string
	// Detection confidence level
	Confidence Confidence
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	return fmt.Sprintf("station at %s (confidence: %s)", d.Path, d.Confidence)
}

// Options configures the detection behavior
type Options struct {
	// USB VID:PID pairs to skip (e.g., ["1234:5678"])
	Blocklist []string
	// Device paths to explicitly ignore (e.g., ["/dev/ttyUSB0", "COM2"])
	IgnorePaths []string
	// USB VID:PID pairs of stations, DefaultStations when empty
	Stations []string
	// Cache TTL duration
	CacheTTL time.Duration
	// Maximum time to wait for detection
	Timeout time.Duration
	// Detection invasiveness level
	Mode Mode
	// Enable result caching
	EnableCache bool
}

// DefaultOptions returns sensible default detection options
func DefaultOptions() Options {
	return Options{
		Mode:        Passive,
		Timeout:     5 * time.Second,
		Blocklist:   DefaultBlocklist(),
		Stations:    DefaultStations(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// DefaultStations returns the VID:PID pairs SportIdent stations enumerate
// with.
func DefaultStations() []string {
	return []string{
		"10C4:800A", // SPORTident USB to UART bridge (BSM7/8-USB, BSF8 master)
	}
}

// usbSerialBridges are generic USB-serial chips stations are built on. They
// are only candidates for probing.
var usbSerialBridges = []string{
	"10C4:EA60", // Silicon Labs CP210x
	"0403:6001", // FTDI FT232 (BSM6 with RS232 adapter)
	"067B:2303", // Prolific PL2303
}

// Errors
var (
	// ErrNoDevicesFound indicates no station was detected
	ErrNoDevicesFound = errors.New("no SportIdent stations found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
)

// ProbeFunc reports whether a station answers on path.
type ProbeFunc func(ctx context.Context, path string) bool

// Detector lists serial ports and picks the ones hosting stations.
type Detector struct {
	list  func() ([]*enumerator.PortDetails, error)
	probe ProbeFunc
	cache *detectionCache
}

// New creates a detector enumerating the system serial ports. probe is used
// in Probe mode; nil disables probing.
func New(probe ProbeFunc) *Detector {
	return &Detector{
		list:  enumerator.GetDetailedPortsList,
		probe: probe,
		cache: newDetectionCache(),
	}
}

// Detect searches for stations. Results are ordered by confidence, best
// first.
func (d *Detector) Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.EnableCache {
		if cached, ok := d.cache.get(newCacheKey(opts), opts.CacheTTL); ok {
			// Cached results bypass the filters applied by a fresh scan
			if devices := filterDevices(cached, opts); len(devices) > 0 {
				return devices, nil
			}
		}
	}

	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			return nil, ErrDetectionTimeout
		}
		if device, ok := d.classify(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		d.cache.clear(newCacheKey(opts))
		return nil, ErrNoDevicesFound
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	if opts.EnableCache {
		d.cache.set(newCacheKey(opts), devices)
	}
	return devices, nil
}

// ClearCache removes all cached detection results
func (d *Detector) ClearCache() {
	d.cache.clearAll()
}

func (d *Detector) classify(ctx context.Context, port *enumerator.PortDetails, opts *Options) (DeviceInfo, bool) {
	if !port.IsUSB || IsPathIgnored(port.Name, opts.IgnorePaths) {
		return DeviceInfo{}, false
	}
	vidpid := FormatVIDPID(port.VID, port.PID)
	if IsBlocked(vidpid, opts.Blocklist) {
		return DeviceInfo{}, false
	}

	stations := opts.Stations
	if len(stations) == 0 {
		stations = DefaultStations()
	}

	device := DeviceInfo{
		Path:     port.Name,
		Name:     port.Product,
		Metadata: map[string]string{"vidpid": vidpid},
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}

	switch {
	case containsVIDPID(stations, vidpid):
		device.Confidence = High
	case strings.Contains(strings.ToLower(port.Product), "sportident"):
		device.Confidence = Medium
	case containsVIDPID(usbSerialBridges, vidpid):
		device.Confidence = Low
	default:
		return DeviceInfo{}, false
	}

	if opts.Mode == Passive {
		return device, device.Confidence > Low
	}
	if device.Confidence == High || d.probe == nil {
		return device, device.Confidence > Low
	}
	if !d.probe(ctx, port.Name) {
		return DeviceInfo{}, false
	}
	device.Confidence = High
	return device, true
}

// filterDevices applies IgnorePaths and Blocklist filtering to a device list.
func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return devices
	}

	var filtered []DeviceInfo
	for _, device := range devices {
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := device.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}
