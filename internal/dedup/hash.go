// Copyright 2025 The fyvalue Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dedup

import (
	"fmt"
	"math/bits"

	"github.com/fyvalue/fyvalue/internal/xunsafe"
)

// hash is a content hash used to both bucket and identify stored values. It
// is an fxhash/rustc-hash derivative: branchless, and fast for the short,
// size-varied byte strings that value content tends to be.
//
// See <https://github.com/rust-lang/rustc-hash> for the algorithm this is
// derived from.
type hash uint64

// h1 selects the starting bucket for this hash's probe sequence.
func (h hash) h1() uint64 { return uint64(h >> 7) }

// h2 is a cheap 7-bit fingerprint; the Bloom filter uses it as the step
// between its probe positions.
func (h hash) h2() byte { return ^(byte(h) & 0x7f) }

//go:nosplit
func (h hash) u64(n uint64) hash {
	const (
		rotate = 26
		key    = 0xf1357aea2e62a9c5
	)
	x := mix(uint64(h)+n, key)
	return hash(bits.RotateLeft64(x, rotate))
}

// hashBytes computes the content hash of data.
//
//go:nosplit
func hashBytes(data []byte) hash {
	const (
		c0 uint64 = 0x243f6a8885a308d3
		c1 uint64 = 0x13198a2e03707344
		c2 uint64 = 0xa4093822299f31d0
	)

	x0, x1 := c0, c1
	n := uint64(len(data))

	switch {
	case n == 0:
		// x0, x1 stay at their initial values.
	case n < 4:
		p := &data[0]
		x0 ^= uint64(xunsafe.ByteLoad[uint8](p, 0))
		x1 ^= uint64(xunsafe.ByteLoad[uint8](p, n-1))
		x1 ^= uint64(xunsafe.ByteLoad[uint8](p, n/2)) << 8
	case n < 8:
		p := &data[0]
		x0 ^= uint64(xunsafe.ByteLoad[uint32](p, 0))
		x1 ^= uint64(xunsafe.ByteLoad[uint32](p, n-4))
	case n <= 16:
		p := &data[0]
		x0 ^= xunsafe.ByteLoad[uint64](p, 0)
		x1 ^= xunsafe.ByteLoad[uint64](p, n-8)
	default:
		p := &data[0]
		end := int(n) - 16
		off := 0
		for off < end {
			y0 := xunsafe.ByteLoad[uint64](p, off)
			y1 := xunsafe.ByteLoad[uint64](p, off+8)
			x0, x1 = x1, mix(x0^y0, c2^y1)
			off += 16
		}
		x0 ^= xunsafe.ByteLoad[uint64](p, end)
		x1 ^= xunsafe.ByteLoad[uint64](p, end+8)
	}

	h := hash(0)
	return h.u64(mix(x0, x1) ^ n)
}

// String implements fmt.Stringer.
func (h hash) String() string {
	return fmt.Sprintf("%015x:%02x", h.h1(), h.h2())
}

// mix mixes together the bits of a and b via a single wide multiply.
func mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}
