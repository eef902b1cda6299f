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

package arena

// chunk is a single contiguous extent of arena memory. Pointers returned
// from within a chunk stay valid for as long as the chunk is reachable;
// since chain keeps every chunk it has ever allocated in its chunks slice,
// and chain is reachable for as long as its owning allocator (held by the
// caller per the Builder/Allocator/Tag lifecycle of spec.md §3.4) is, no
// self-referential "pointer back to owner" trick is required the way the
// teacher's AllocTraceable needs for its more aggressive GC story.
type chunk struct {
	data []byte
	next int // bump cursor into data
}

func (c *chunk) free() int { return len(c.data) - c.next }

func newChunk(size int) *chunk {
	return &chunk{data: make([]byte, size)}
}

// alloc bumps c's cursor by size bytes aligned to align, returning a
// pointer to the start of the allocation, or nil if c does not have room.
func (c *chunk) alloc(size, align int) *byte {
	start := alignUp(c.next, align)
	if start+size > len(c.data) {
		return nil
	}
	c.next = start + size
	return &c.data[start]
}

func (c *chunk) contains(p *byte) bool {
	if len(c.data) == 0 {
		return false
	}
	base := &c.data[0]
	off := ptrDiff(p, base)
	return off >= 0 && off < len(c.data)
}

// chain is a per-tag chain of extents: a current ("free") chunk that is
// bump-allocated from, and a list of chunks that have been filled and
// retired ("full"), per the growable arena algorithm of spec.md §4.2.
type chain struct {
	cur     *chunk
	full    []*chunk
	ratio   float64 // grow_ratio: >1.0
	min     int     // minimum_arena_size
	big     int     // big_alloc_threshold: large allocs get a dedicated extent
	empty   float64 // empty_threshold: free fraction above which trim() shrinks cur
	balloon float64 // balloon_ratio: cap on the extent reset() retains for reuse
}

const (
	defaultMinArena     = 4 << 10
	defaultGrowRatio    = 1.5
	defaultBigAllocAt   = 64 << 10
	defaultEmptyThresh  = 0.5
	defaultBalloonRatio = 0 // reset() fully releases extents by default
)

func newChain() *chain {
	return &chain{
		ratio:   defaultGrowRatio,
		min:     defaultMinArena,
		big:     defaultBigAllocAt,
		empty:   defaultEmptyThresh,
		balloon: defaultBalloonRatio,
	}
}

func (ch *chain) alloc(size, align int) *byte {
	if size < 0 || align <= 0 || !isPow2(align) {
		return nil
	}

	// Large allocations above the threshold get their own dedicated
	// extent, so they don't fragment the current free extent.
	if size >= ch.big {
		c := newChunk(alignUp(size, align))
		if p := c.alloc(size, align); p != nil {
			ch.full = append(ch.full, c)
			return p
		}
		return nil
	}

	if ch.cur != nil {
		if p := ch.cur.alloc(size, align); p != nil {
			return p
		}
		// Current extent is insufficient; retire it to the full list.
		ch.full = append(ch.full, ch.cur)
	}

	next := ch.min
	if ch.cur != nil {
		next = max(ch.min, int(float64(len(ch.cur.data))*ch.ratio))
	}
	next = max(next, alignUp(size, align)*2)

	ch.cur = newChunk(next)
	return ch.cur.alloc(size, align)
}

func (ch *chain) contains(p *byte) bool {
	if ch.cur != nil && ch.cur.contains(p) {
		return true
	}
	for _, c := range ch.full {
		if c.contains(p) {
			return true
		}
	}
	return false
}

func (ch *chain) linearSize() int64 {
	var n int64
	if ch.cur != nil {
		n += int64(ch.cur.next)
	}
	for _, c := range ch.full {
		n += int64(c.next)
	}
	return n
}

// singleLinear returns the tag's content as one contiguous range only when
// it is in fact stored that way: a single chunk with nothing retired.
func (ch *chain) singleLinear() ([]byte, bool) {
	if ch.cur == nil || len(ch.full) != 0 {
		return nil, false
	}
	return ch.cur.data[:ch.cur.next], true
}

// trim shrinks the current extent to its used size, but only when the
// unused fraction meets empty_threshold; an extent that's mostly in use is
// left alone so the next allocation doesn't immediately force a regrow.
func (ch *chain) trim() {
	if ch.cur == nil || ch.cur.next >= len(ch.cur.data) {
		return
	}
	freeFrac := float64(ch.cur.free()) / float64(len(ch.cur.data))
	if freeFrac < ch.empty {
		return
	}
	trimmed := make([]byte, ch.cur.next)
	copy(trimmed, ch.cur.data[:ch.cur.next])
	ch.cur.data = trimmed
}

// reset empties the chain's content. When balloon_ratio is configured, the
// current extent is kept (rewound to empty) rather than released, up to
// balloon_ratio times minimum_arena_size, so a reset/refill cycle doesn't
// pay for a fresh allocation every time; beyond that size the extent is
// released like any other, matching a balloon that deflates past its cap.
func (ch *chain) reset() {
	ch.full = nil
	if ch.cur == nil {
		return
	}
	if ch.balloon > 0 && float64(len(ch.cur.data)) <= ch.balloon*float64(ch.min) {
		ch.cur.next = 0
		return
	}
	ch.cur = nil
}
