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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/ZaparooProject/go-sportident/internal/syncutil"
)

// cardRecord is the JSON form of a read card.
type cardRecord struct {
	Series     string        `json:"series"`
	Start      string        `json:"start"`
	Finish     string        `json:"finish"`
	Check      string        `json:"check"`
	Punches    []punchRecord `json:"punches"`
	CardNumber int           `json:"card_number"`
}

type punchRecord struct {
	Time string `json:"time"`
	Code int    `json:"code"`
}

func newCardRecord(frame dataframe.DataFrame) cardRecord {
	punches := frame.Punches()
	record := cardRecord{
		CardNumber: frame.CardNumber(),
		Series:     frame.Series().String(),
		Start:      dataframe.FormatTime(frame.StartTime()),
		Finish:     dataframe.FormatTime(frame.FinishTime()),
		Check:      dataframe.FormatTime(frame.CheckTime()),
		Punches:    make([]punchRecord, 0, len(punches)),
	}
	for _, p := range punches {
		record.Punches = append(record.Punches, punchRecord{Code: p.Code, Time: dataframe.FormatTime(p.Time)})
	}
	return record
}

// frameWriter prints cards as they are read. Frames arrive on the driver
// goroutine.
type frameWriter struct {
	w          io.Writer
	zeroHour   time.Duration
	mu         syncutil.Mutex
	jsonOutput bool
}

func newFrameWriter(w io.Writer, zeroHour time.Duration, jsonOutput bool) *frameWriter {
	return &frameWriter{w: w, zeroHour: zeroHour, jsonOutput: jsonOutput}
}

func (f *frameWriter) write(frame dataframe.DataFrame) error {
	record := newCardRecord(frame.StartingAt(f.zeroHour))

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.jsonOutput {
		if err := json.NewEncoder(f.w).Encode(record); err != nil {
			return fmt.Errorf("failed to encode card %d: %w", record.CardNumber, err)
		}
		return nil
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Card %d (%s)\n", record.CardNumber, record.Series)
	_, _ = fmt.Fprintf(&sb, "  check  %s\n  start  %s\n  finish %s\n", record.Check, record.Start, record.Finish)
	for i, p := range record.Punches {
		_, _ = fmt.Fprintf(&sb, "  %3d. %3d %s\n", i+1, p.Code, p.Time)
	}
	if _, err := io.WriteString(f.w, sb.String()); err != nil {
		return fmt.Errorf("failed to print card %d: %w", record.CardNumber, err)
	}
	return nil
}
