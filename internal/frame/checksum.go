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

const crcPolynomial = 0x8005

// CalculateCRC computes the SportIdent CRC-16 over data.
// The station feeds the buffer into the register two bytes at a time; an odd
// trailing byte is padded with zero and an even buffer gets an extra zero word.
func CalculateCRC(data []byte) uint16 {
	count := len(data)
	if count < 2 {
		return 0
	}

	tmp := uint16(data[0])<<8 | uint16(data[1])
	if count == 2 {
		return tmp
	}

	ptr := 2
	for i := count / 2; i > 0; i-- {
		var val uint16
		switch {
		case i > 1:
			val = uint16(data[ptr])<<8 | uint16(data[ptr+1])
			ptr += 2
		case count%2 == 1:
			val = uint16(data[count-1]) << 8
		default:
			val = 0
		}

		for range 16 {
			carry := tmp&0x8000 != 0
			tmp <<= 1
			if val&0x8000 != 0 {
				tmp++
			}
			if carry {
				tmp ^= crcPolynomial
			}
			val <<= 1
		}
	}

	return tmp
}

// Encode builds an extended protocol frame for cmd with the given payload.
// It panics if data exceeds MaxDataLength since that is a programming error.
func Encode(cmd byte, data []byte) []byte {
	if len(data) > MaxDataLength {
		panic("frame: payload too large")
	}

	buf := make([]byte, 0, len(data)+MinFrameSize)
	buf = append(buf, STX, cmd, byte(len(data)))
	buf = append(buf, data...)
	crc := CalculateCRC(buf[1:])
	buf = append(buf, byte(crc>>8), byte(crc), ETX)
	return buf
}

// ValidateCRC reports whether a complete frame carries a correct CRC.
func ValidateCRC(f []byte) bool {
	if len(f) < MinFrameSize {
		return false
	}
	end := len(f) - TrailerLength
	want := uint16(f[end])<<8 | uint16(f[end+1])
	return CalculateCRC(f[1:end]) == want
}
