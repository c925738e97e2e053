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

package testing

import (
	"bytes"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/ZaparooProject/go-sportident/internal/frame"
	"github.com/ZaparooProject/go-sportident/internal/syncutil"
)

// ErrStationClosed is returned by Read and Write after Close.
var ErrStationClosed = errors.New("virtual station closed")

// VirtualCard is a card that can be inserted into a VirtualStation.
type VirtualCard struct {
	blocks   map[int][]byte
	detected []byte
	removed  []byte
	readCmd  byte
	multi    bool // block 8 returns 0,4,5,6,7
}

// NewSi5Card creates a virtual SI5 card.
func NewSi5Card(spec CardSpec) *VirtualCard {
	return &VirtualCard{
		blocks:   map[int][]byte{0: spec.Si5Block()},
		detected: BuildSi5Detected(spec.Number),
		removed:  BuildCardRemoved(spec.Number),
		readCmd:  CmdGetSi5,
	}
}

// NewSi6Card creates a virtual SI6 card.
func NewSi6Card(spec CardSpec) *VirtualCard {
	return &VirtualCard{
		blocks:   spec.Si6Blocks(),
		detected: BuildSi6Detected(spec.Number),
		removed:  BuildCardRemoved(spec.Number),
		readCmd:  CmdGetSi6,
	}
}

// NewSi8PlusCard creates a virtual SI8, SI9, pCard or 10+ family card.
func NewSi8PlusCard(seriesByte byte, spec CardSpec) *VirtualCard {
	return &VirtualCard{
		blocks:   spec.Si8PlusBlocks(seriesByte),
		detected: BuildSi8PlusDetected(seriesByte, spec.Number),
		removed:  BuildCardRemoved(spec.Number),
		readCmd:  CmdGetSi8Plus,
		multi:    seriesByte == SeriesByteSi10Plus,
	}
}

// VirtualStation simulates a SportIdent master station at the byte level.
// Commands written to it are decoded and answered; replies are returned by
// Read. Read returns 0 bytes after a short delay when nothing is pending, the
// way a serial port with a read timeout does.
type VirtualStation struct {
	card        *VirtualCard
	decoder     *frame.Decoder
	commandLog  [][]byte
	out         bytes.Buffer
	ReadTimeout time.Duration
	mu          syncutil.Mutex
	extended    bool
	silent      bool
	closed      bool
	removeAfter int // blocks to send before pulling the card, 0 = never
	sentBlocks  int
}

// NewVirtualStation creates a station running the extended protocol.
func NewVirtualStation() *VirtualStation {
	return &VirtualStation{
		decoder:     frame.NewDecoder(),
		extended:    true,
		ReadTimeout: 5 * time.Millisecond,
	}
}

// SetExtendedProtocol controls the protocol bit of the configuration answer.
func (s *VirtualStation) SetExtendedProtocol(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extended = enabled
}

// SetSilent makes the station ignore every command, like a station running at
// another baud rate.
func (s *VirtualStation) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// RemoveCardAfterBlocks pulls the inserted card out after n more block replies.
func (s *VirtualStation) RemoveCardAfterBlocks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAfter = n
	s.sentBlocks = 0
}

// InsertCard puts card on the station and emits its detection message.
func (s *VirtualStation) InsertCard(card *VirtualCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card = card
	s.out.Write(card.detected)
}

// RemoveCard takes the current card off the station.
func (s *VirtualStation) RemoveCard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked()
}

func (s *VirtualStation) removeLocked() {
	if s.card == nil {
		return
	}
	s.out.Write(s.card.removed)
	s.card = nil
}

// Inject queues raw bytes as if the station had sent them.
func (s *VirtualStation) Inject(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(data)
}

// CommandLog returns a copy of every message received from the host.
func (s *VirtualStation) CommandLog() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([][]byte, len(s.commandLog))
	copy(log, s.commandLog)
	return log
}

// Write implements io.Writer.
func (s *VirtualStation) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStationClosed
	}

	for _, msg := range s.decoder.Feed(data) {
		s.commandLog = append(s.commandLog, msg)
		if !s.silent {
			s.handle(msg)
		}
	}
	return len(data), nil
}

// Read implements io.Reader.
func (s *VirtualStation) Read(buf []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	if s.out.Len() > 0 {
		n, _ := s.out.Read(buf)
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	time.Sleep(s.ReadTimeout)
	return 0, nil
}

// Close stops the station.
func (s *VirtualStation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *VirtualStation) handle(msg []byte) {
	if len(msg) < frame.MinFrameSize {
		return
	}

	switch msg[1] {
	case CmdSetMasterMode:
		s.out.Write(BuildStartupAnswer())
	case CmdGetSystemValue:
		s.out.Write(BuildConfigAnswer(s.extended))
	case CmdGetSi5:
		s.sendBlocks(0)
	case CmdGetSi6, CmdGetSi8Plus:
		if s.card == nil || len(msg) < 7 {
			return
		}
		index := int(msg[3])
		if s.card.multi && index == 8 {
			s.sendBlocks(sortedIndices(s.card.blocks)...)
			return
		}
		s.sendBlocks(index)
	}
}

func (s *VirtualStation) sendBlocks(indices ...int) {
	for _, index := range indices {
		if s.card == nil {
			return
		}
		if s.removeAfter > 0 && s.sentBlocks >= s.removeAfter {
			s.removeLocked()
			return
		}
		block, ok := s.card.blocks[index]
		if !ok {
			s.out.Write(NAK)
			return
		}
		if s.card.readCmd == CmdGetSi5 {
			s.out.Write(BuildSi5DataReply(block))
		} else {
			s.out.Write(BuildBlockReply(s.card.readCmd, index, block))
		}
		s.sentBlocks++
	}
}

func sortedIndices(blocks map[int][]byte) []int {
	indices := make([]int, 0, len(blocks))
	for i := range blocks {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
