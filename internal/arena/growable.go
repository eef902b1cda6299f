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

import (
	"fmt"
	"sync"

	"github.com/fyvalue/fyvalue/internal/dbg"
)

// Growable is a multi-tag arena: each tag owns an independent chain of
// extents, so tags can be created, reset, and released without disturbing
// any other tag's memory. It corresponds to the "per_tag_free" scenario:
// whole-tag reclamation, but no individual-object free.
type Growable struct {
	mu      sync.RWMutex
	tags    map[Tag]*chain
	nextTag Tag
	maxTags int
	opts    GrowableOptions

	_ xunsafeNoCopy
}

// GrowableOptions configures a Growable allocator's extent growth policy,
// per the mremap allocator configuration key set of spec.md §6.2.
type GrowableOptions struct {
	// MinExtentSize is the smallest extent allocated for a tag's first
	// chunk (minimum_arena_size). Zero selects a reasonable default.
	MinExtentSize int
	// GrowthRatio is the multiplier applied to the previous extent's size
	// when a tag's current extent is exhausted (grow_ratio). Must be >
	// 1.0; zero selects a reasonable default.
	GrowthRatio float64
	// BigAllocThreshold is the allocation size, in bytes, above which an
	// allocation gets its own dedicated extent rather than going through
	// the tag's shared free extent (big_alloc_threshold). Zero selects a
	// reasonable default.
	BigAllocThreshold int
	// EmptyThreshold is the free-space fraction (0..1) above which
	// TrimTag actually shrinks an extent (empty_threshold). Zero selects
	// a reasonable default.
	EmptyThreshold float64
	// BalloonRatio caps, as a multiple of MinExtentSize, how large an
	// extent ResetTag may retain for reuse instead of releasing
	// (balloon_ratio). Zero means ResetTag never retains an extent.
	BalloonRatio float64
	// ArenaType names the backing allocator for new extents (arena_type):
	// "default", "malloc", or "mmap". This runtime backs every extent
	// with a Go byte slice regardless of ArenaType, the same way
	// SchemaAuto/ScopeLeader are opaque policy bits on Builder; the value
	// is only validated and stored, for external collaborators that care
	// which arena_type a config string requested.
	ArenaType string
	// MaxTags bounds the number of live tags. Zero means unlimited.
	MaxTags int
}

// NewGrowable creates a Growable allocator with the given options.
func NewGrowable(opts GrowableOptions) *Growable {
	return &Growable{
		tags:    make(map[Tag]*chain),
		maxTags: opts.MaxTags,
		opts:    opts,
	}
}

func (g *Growable) newChain() *chain {
	c := newChain()
	if g.opts.MinExtentSize > 0 {
		c.min = g.opts.MinExtentSize
	}
	if g.opts.GrowthRatio > 1.0 {
		c.ratio = g.opts.GrowthRatio
	}
	if g.opts.BigAllocThreshold > 0 {
		c.big = g.opts.BigAllocThreshold
	}
	if g.opts.EmptyThreshold > 0 {
		c.empty = g.opts.EmptyThreshold
	}
	if g.opts.BalloonRatio > 0 {
		c.balloon = g.opts.BalloonRatio
	}
	return c
}

// ArenaType returns the configured arena_type, or "" if none was set.
func (g *Growable) ArenaType() string { return g.opts.ArenaType }

func (g *Growable) Caps() Caps {
	return CapFreeTag | CapContains | CapHasTags
}

func (g *Growable) GetTag() (Tag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.maxTags > 0 && len(g.tags) >= g.maxTags {
		return TagError, ErrTagExhausted
	}

	tag := g.nextTag
	g.nextTag++
	g.tags[tag] = g.newChain()
	dbg.Log(nil, "Growable.GetTag", "tag=%d", tag)
	return tag, nil
}

func (g *Growable) ReleaseTag(tag Tag) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tags, tag)
}

func (g *Growable) TagCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tags)
}

func (g *Growable) SetTagCount(n int) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxTags = n
	if n > 0 && len(g.tags) > n {
		return fmt.Errorf("%w: %d tags already live, exceeds new count %d", ErrTagExhausted, len(g.tags), n)
	}
	return nil
}

func (g *Growable) chainFor(tag Tag) *chain {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tags[tag]
}

func (g *Growable) Alloc(tag Tag, size, align int) (*byte, error) {
	c := g.chainFor(tag)
	if c == nil {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrInvalidArgument, tag)
	}
	if size < 0 || align <= 0 || !isPow2(align) {
		return nil, ErrInvalidArgument
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	p := c.alloc(size, align)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return p, nil
}

func (g *Growable) Store(tag Tag, data []byte, align int) (*byte, error) {
	p, err := g.Alloc(tag, len(data), align)
	if err != nil {
		return nil, err
	}
	copy(unsafeBytes(p, len(data)), data)
	return p, nil
}

func (g *Growable) StoreV(tag Tag, iov [][]byte, align int) (*byte, error) {
	total := 0
	for _, v := range iov {
		total += len(v)
	}
	p, err := g.Alloc(tag, total, align)
	if err != nil {
		return nil, err
	}
	dst := unsafeBytes(p, total)
	off := 0
	for _, v := range iov {
		off += copy(dst[off:], v)
	}
	return p, nil
}

func (g *Growable) Lookup(tag Tag, data []byte, align int) (*byte, bool) { return nil, false }

func (g *Growable) Free(tag Tag, ptr *byte) {} // no individual free

func (g *Growable) Contains(tag Tag, ptr *byte) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if tag == TagNone {
		for _, c := range g.tags {
			if c.contains(ptr) {
				return true
			}
		}
		return false
	}
	c, ok := g.tags[tag]
	return ok && c.contains(ptr)
}

func (g *Growable) TagLinearSize(tag Tag) int64 {
	c := g.chainFor(tag)
	if c == nil {
		return -1
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return c.linearSize()
}

func (g *Growable) TagSingleLinear(tag Tag) ([]byte, bool) {
	c := g.chainFor(tag)
	if c == nil {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return c.singleLinear()
}

func (g *Growable) TrimTag(tag Tag) {
	c := g.chainFor(tag)
	if c == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c.trim()
}

func (g *Growable) ResetTag(tag Tag) {
	c := g.chainFor(tag)
	if c == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c.reset()
}

func (g *Growable) Dump() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := "growable{"
	first := true
	for tag, c := range g.tags {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%d: %d bytes in %d extents", tag, c.linearSize(), len(c.full)+1)
	}
	return out + "}"
}
