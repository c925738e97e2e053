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

package uart

import (
	"context"
	"sync"
	"time"

	sportident "github.com/ZaparooProject/go-sportident"
)

// probeTimeout bounds the wait for the startup answer at each speed.
const probeTimeout = 500 * time.Millisecond

// Probe reports whether a station answers the startup sequence on path. It
// fits detection.ProbeFunc.
func Probe(ctx context.Context, path string) bool {
	tr, err := New(path)
	if err != nil {
		sportident.Debugf("probe %s: %v", path, err)
		return false
	}
	defer func() { _ = tr.Close() }()
	return tr.Probe(ctx)
}

// Probe sends the startup sequence at high then low speed and reports
// whether the station answered. The port is left at the speed that worked.
func (t *Transport) Probe(ctx context.Context) bool {
	q := sportident.NewMessageQueue(sportident.DefaultQueueCapacity, probeTimeout)

	listenCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = t.Listen(listenCtx, q)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for _, speed := range []func() error{t.SetHighSpeed, t.SetLowSpeed} {
		if err := speed(); err != nil {
			sportident.Debugf("probe %s: %v", t.portName, err)
			return false
		}
		q.Clear()
		if err := t.Write(sportident.StartupSequence); err != nil {
			sportident.Debugf("probe %s: %v", t.portName, err)
			return false
		}
		if _, err := q.ReceiveExpected(ctx, sportident.KindSetMasterMode); err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}
