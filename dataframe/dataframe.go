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

// Package dataframe decodes the memory blocks read from SportIdent cards into
// structured records: card number, start/finish/check times and punches.
//
// Assemblers are pure functions. They never see a partial read: the driver
// hands them every block a card generation needs and they validate it again
// before decoding.
package dataframe

import (
	"errors"
	"fmt"
	"time"
)

// BlockSize is the size in bytes of one card memory block.
const BlockSize = 128

// NoTime marks a time slot that was never punched on the card.
const NoTime time.Duration = -1

// Errors returned by the assemblers
var (
	ErrIncompleteFrame = errors.New("incomplete block set")
	ErrUnexpectedBlock = errors.New("unexpected block")
	ErrBlockSize       = errors.New("block too short")
	ErrUnknownSeries   = errors.New("unknown card series")
)

// Series identifies the card hardware generation.
type Series int

const (
	SeriesUnknown Series = iota
	SeriesSi5
	SeriesSi6
	SeriesSi8
	SeriesSi9
	SeriesPCard
	SeriesSi10
	SeriesSi11
	SeriesSIAC
)

// String returns the name printed on the card.
func (s Series) String() string {
	switch s {
	case SeriesSi5:
		return "SiCard 5"
	case SeriesSi6:
		return "SiCard 6"
	case SeriesSi8:
		return "SiCard 8"
	case SeriesSi9:
		return "SiCard 9"
	case SeriesPCard:
		return "pCard"
	case SeriesSi10:
		return "SiCard 10"
	case SeriesSi11:
		return "SiCard 11"
	case SeriesSIAC:
		return "SIAC"
	default:
		return "unknown"
	}
}

// Punch is one visit to a control station.
type Punch struct {
	Time time.Duration // Time of day, NoTime when the station did not record one
	Code int           // Control station code
}

// String formats the punch as "code@hh:mm:ss".
func (p Punch) String() string {
	return fmt.Sprintf("%d@%s", p.Code, FormatTime(p.Time))
}

// Block is a raw memory block together with its index on the card.
type Block struct {
	Data  []byte
	Index int
}

// DataFrame is the decoded content of a card.
type DataFrame interface {
	// CardNumber returns the SI number printed on the card
	CardNumber() int
	// Series returns the card generation
	Series() Series
	StartTime() time.Duration
	FinishTime() time.Duration
	CheckTime() time.Duration
	// Punches returns a copy of the punch records in card order
	Punches() []Punch
	// StartingAt resolves ambiguous 12 hour times against zeroHour, the
	// earliest time of day the event can have started. Frames keeping a full
	// 24 hour clock return themselves.
	StartingAt(zeroHour time.Duration) DataFrame
}

type baseFrame struct {
	punches    []Punch
	start      time.Duration
	finish     time.Duration
	check      time.Duration
	cardNumber int
	series     Series
}

func (f *baseFrame) CardNumber() int           { return f.cardNumber }
func (f *baseFrame) Series() Series            { return f.series }
func (f *baseFrame) StartTime() time.Duration  { return f.start }
func (f *baseFrame) FinishTime() time.Duration { return f.finish }
func (f *baseFrame) CheckTime() time.Duration  { return f.check }

func (f *baseFrame) Punches() []Punch {
	out := make([]Punch, len(f.punches))
	copy(out, f.punches)
	return out
}

// FormatTime renders a time of day as hh:mm:ss, or "no time".
func FormatTime(t time.Duration) string {
	if t == NoTime {
		return "no time"
	}
	t = t.Truncate(time.Second)
	h := t / time.Hour
	m := (t % time.Hour) / time.Minute
	s := (t % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
