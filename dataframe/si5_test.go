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

package dataframe

import (
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-sportident/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hms(h, m, s int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func si5Card() testutil.CardSpec {
	return testutil.CardSpec{
		Number: 304123,
		Check:  hms(9, 50, 0),
		Start:  hms(10, 0, 0),
		Finish: hms(11, 30, 12),
		Punches: []testutil.CardPunch{
			{Code: 31, Time: hms(10, 10, 0)},
			{Code: 32, Time: hms(10, 25, 30)},
			{Code: 33, Time: testutil.NoTime},
		},
	}
}

func TestNewSi5Frame(t *testing.T) {
	t.Parallel()

	frame, err := NewSi5Frame(Block{Index: 0, Data: si5Card().Si5Block()})
	require.NoError(t, err)

	assert.Equal(t, 304123, frame.CardNumber())
	assert.Equal(t, SeriesSi5, frame.Series())
	assert.Equal(t, hms(9, 50, 0), frame.CheckTime())
	assert.Equal(t, hms(10, 0, 0), frame.StartTime())
	assert.Equal(t, hms(11, 30, 12), frame.FinishTime())
	assert.Equal(t, []Punch{
		{Code: 31, Time: hms(10, 10, 0)},
		{Code: 32, Time: hms(10, 25, 30)},
		{Code: 33, Time: NoTime},
	}, frame.Punches())
}

func TestNewSi5Frame_CardNumberWithoutSeries(t *testing.T) {
	t.Parallel()

	spec := si5Card()
	spec.Number = 54321
	frame, err := NewSi5Frame(Block{Data: spec.Si5Block()})
	require.NoError(t, err)
	assert.Equal(t, 54321, frame.CardNumber())
}

func TestNewSi5Frame_UntimedPunches(t *testing.T) {
	t.Parallel()

	spec := testutil.CardSpec{Number: 12345, Start: testutil.NoTime, Finish: testutil.NoTime, Check: testutil.NoTime}
	for i := range 36 {
		spec.Punches = append(spec.Punches, testutil.CardPunch{Code: 40 + i, Time: hms(10, i, 0)})
	}

	frame, err := NewSi5Frame(Block{Data: spec.Si5Block()})
	require.NoError(t, err)

	punches := frame.Punches()
	require.Len(t, punches, 36)
	assert.Equal(t, Punch{Code: 40, Time: hms(10, 0, 0)}, punches[0])
	assert.Equal(t, Punch{Code: 69, Time: hms(10, 29, 0)}, punches[29])
	for i, p := range punches[30:] {
		assert.Equal(t, Punch{Code: 70 + i, Time: NoTime}, p)
	}
	assert.Equal(t, NoTime, frame.StartTime())
}

func TestNewSi5Frame_PunchCountClamped(t *testing.T) {
	t.Parallel()

	spec := testutil.CardSpec{Number: 12345, Start: testutil.NoTime, Finish: testutil.NoTime, Check: testutil.NoTime}
	for i := range 36 {
		spec.Punches = append(spec.Punches, testutil.CardPunch{Code: 40 + i, Time: hms(10, i, 0)})
	}
	data := spec.Si5Block()
	data[si5PunchCount] = 0x40

	frame, err := NewSi5Frame(Block{Data: data})
	require.NoError(t, err)
	punches := frame.Punches()
	require.Len(t, punches, si5MaxPunches)
	assert.Equal(t, Punch{Code: 75, Time: NoTime}, punches[35])

	data[si5PunchCount] = 0
	frame, err = NewSi5Frame(Block{Data: data})
	require.NoError(t, err)
	assert.Empty(t, frame.Punches())
}

func TestNewSi5Frame_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewSi5Frame(Block{Index: 0, Data: make([]byte, 64)})
	require.ErrorIs(t, err, ErrBlockSize)

	_, err = NewSi5Frame(Block{Index: 1, Data: make([]byte, BlockSize)})
	require.ErrorIs(t, err, ErrUnexpectedBlock)
}

func TestSi5Frame_StartingAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		card       testutil.CardSpec
		zeroHour   time.Duration
		wantStart  time.Duration
		wantFinish time.Duration
		wantPunch  time.Duration
	}{
		{
			name: "morning race keeps times",
			card: testutil.CardSpec{
				Number:  1000,
				Check:   hms(9, 50, 0),
				Start:   hms(10, 0, 0),
				Finish:  hms(11, 30, 12),
				Punches: []testutil.CardPunch{{Code: 31, Time: hms(10, 10, 0)}},
			},
			zeroHour:   hms(9, 0, 0),
			wantStart:  hms(10, 0, 0),
			wantFinish: hms(11, 30, 12),
			wantPunch:  hms(10, 10, 0),
		},
		{
			name: "afternoon race shifts by twelve hours",
			card: testutil.CardSpec{
				Number:  1001,
				Check:   testutil.NoTime,
				Start:   hms(14, 0, 0),
				Finish:  hms(15, 0, 0),
				Punches: []testutil.CardPunch{{Code: 31, Time: hms(14, 30, 0)}},
			},
			zeroHour:   hms(13, 0, 0),
			wantStart:  hms(14, 0, 0),
			wantFinish: hms(15, 0, 0),
			wantPunch:  hms(14, 30, 0),
		},
		{
			name: "start slightly before zero hour is tolerated",
			card: testutil.CardSpec{
				Number:  1002,
				Check:   testutil.NoTime,
				Start:   hms(8, 30, 0),
				Finish:  hms(9, 10, 0),
				Punches: []testutil.CardPunch{{Code: 31, Time: hms(8, 45, 0)}},
			},
			zeroHour:   hms(9, 0, 0),
			wantStart:  hms(8, 30, 0),
			wantFinish: hms(9, 10, 0),
			wantPunch:  hms(8, 45, 0),
		},
		{
			name: "finish after noon follows the punches",
			card: testutil.CardSpec{
				Number:  1003,
				Check:   testutil.NoTime,
				Start:   hms(11, 0, 0),
				Finish:  hms(12, 40, 0),
				Punches: []testutil.CardPunch{{Code: 31, Time: hms(12, 10, 0)}},
			},
			zeroHour:   hms(10, 0, 0),
			wantStart:  hms(11, 0, 0),
			wantFinish: hms(12, 40, 0),
			wantPunch:  hms(12, 10, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw, err := NewSi5Frame(Block{Data: tt.card.Si5Block()})
			require.NoError(t, err)

			resolved := raw.StartingAt(tt.zeroHour)
			assert.Equal(t, tt.wantStart, resolved.StartTime())
			assert.Equal(t, tt.wantFinish, resolved.FinishTime())
			require.Len(t, resolved.Punches(), 1)
			assert.Equal(t, tt.wantPunch, resolved.Punches()[0].Time)
			assert.Equal(t, raw.CardNumber(), resolved.CardNumber())
		})
	}
}

func TestSi5Frame_StartingAtKeepsRawFrame(t *testing.T) {
	t.Parallel()

	card := testutil.CardSpec{Number: 7, Start: hms(14, 0, 0), Finish: testutil.NoTime, Check: testutil.NoTime}
	raw, err := NewSi5Frame(Block{Data: card.Si5Block()})
	require.NoError(t, err)

	resolved := raw.StartingAt(hms(13, 0, 0))
	assert.Equal(t, hms(14, 0, 0), resolved.StartTime())
	assert.Equal(t, hms(2, 0, 0), raw.StartTime())
	assert.Equal(t, NoTime, resolved.FinishTime())
}
