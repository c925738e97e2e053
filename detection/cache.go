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

package detection

import (
	"sort"
	"strings"
	"time"

	"github.com/ZaparooProject/go-sportident/internal/syncutil"
)

// cacheEntry holds cached detection results.
type cacheEntry struct {
	timestamp time.Time
	devices   []DeviceInfo
}

// cacheKey identifies the options that change what a fresh scan finds.
// IgnorePaths and Blocklist are applied to cached results instead.
type cacheKey struct {
	stations string
	mode     Mode
}

func newCacheKey(opts *Options) cacheKey {
	stations := make([]string, 0, len(opts.Stations))
	for _, s := range opts.Stations {
		stations = append(stations, strings.ToUpper(strings.TrimSpace(s)))
	}
	sort.Strings(stations)
	return cacheKey{mode: opts.Mode, stations: strings.Join(stations, ",")}
}

// detectionCache provides thread-safe caching of detection results per key.
type detectionCache struct {
	entries map[cacheKey]cacheEntry
	mu      syncutil.Mutex
}

func newDetectionCache() *detectionCache {
	return &detectionCache{entries: make(map[cacheKey]cacheEntry)}
}

// get returns cached devices if available and not expired
func (c *detectionCache) get(key cacheKey, ttl time.Duration) ([]DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || time.Since(entry.timestamp) > ttl {
		return nil, false
	}

	devices := make([]DeviceInfo, len(entry.devices))
	copy(devices, entry.devices)
	return devices, true
}

func (c *detectionCache) set(key cacheKey, devices []DeviceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	devicesCopy := make([]DeviceInfo, len(devices))
	copy(devicesCopy, devices)
	c.entries[key] = cacheEntry{devices: devicesCopy, timestamp: time.Now()}
}

// clear drops the entry of one key so a vanished station is not reported
// until the TTL expires.
func (c *detectionCache) clear(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *detectionCache) clearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
