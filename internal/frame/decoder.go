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

package frame

// Decoder splits a raw byte stream from a station into protocol messages.
// It is not safe for concurrent use; the transport read loop owns it.
type Decoder struct {
	buf       []byte
	corrupted int
	skipped   int
}

// NewDecoder creates an empty stream decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, MaxFrameSize)}
}

// Feed appends data to the internal buffer and returns every complete message
// found so far. Single ACK and NAK bytes are returned as one-byte messages.
// Frames with a bad terminator or CRC are discarded.
func (d *Decoder) Feed(data []byte) [][]byte {
	d.buf = append(d.buf, data...)

	var out [][]byte
	off := 0
	for off < len(d.buf) {
		msg, consumed, complete := d.next(d.buf[off:])
		if !complete {
			break
		}
		off += consumed
		if msg != nil {
			out = append(out, msg)
		}
	}

	// Move the unconsumed tail to the front so the buffer does not creep
	n := copy(d.buf, d.buf[off:])
	d.buf = d.buf[:n]
	return out
}

// next inspects the head of buf. It returns the decoded message (nil
// when bytes are only skipped), how many bytes to drop and whether a decision
// could be made with the bytes available.
func (d *Decoder) next(buf []byte) (msg []byte, consumed int, complete bool) {
	switch buf[0] {
	case ACK, NAK:
		return []byte{buf[0]}, 1, true
	case STX:
	default:
		d.skipped++
		return nil, 1, true
	}

	if len(buf) < HeaderLength {
		return nil, 0, false
	}
	// Stations may repeat STX after a wakeup
	if buf[1] == STX {
		return nil, 1, true
	}

	total := int(buf[2]) + HeaderLength + TrailerLength
	if len(buf) < total {
		return nil, 0, false
	}

	f := buf[:total]
	if f[total-1] != ETX {
		d.corrupted++
		return nil, 1, true
	}
	if !ValidateCRC(f) {
		d.corrupted++
		return nil, total, true
	}

	msg = make([]byte, total)
	copy(msg, f)
	return msg, total, true
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Corrupted returns how many frames were discarded for a bad terminator or CRC.
func (d *Decoder) Corrupted() int {
	return d.corrupted
}

// Skipped returns how many stray bytes (wakeups, line noise) were dropped.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Reset drops any partially received frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}
