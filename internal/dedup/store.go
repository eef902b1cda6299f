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

// Package dedup implements a content-addressed interning store layered over
// a parent arena.Allocator: byte sequences are hashed, probed through an
// open-addressed bucket table behind a Bloom prefilter, and either an
// existing pointer is returned or the content is copied into the parent and
// recorded.
package dedup

import (
	"fmt"
	"sync"

	"github.com/fyvalue/fyvalue/internal/arena"
	"github.com/fyvalue/fyvalue/internal/dbg"
	"github.com/fyvalue/fyvalue/internal/xsync"
)

// Config tunes a Store's table sizing and interning policy.
type Config struct {
	// BloomBits is the size, in bits, of the Bloom prefilter. Zero selects
	// a default.
	BloomBits int
	// BucketCountBits is log2 of the initial bucket count. Zero selects a
	// default of 8 (256 buckets).
	BucketCountBits int
	// DedupThreshold is the minimum content length, in bytes, eligible for
	// interning; shorter content is always copied fresh. Zero disables
	// the bypass (everything is eligible).
	DedupThreshold int
	// ChainLengthGrowTrigger is the bucket-chain length above which a
	// rehash is scheduled, provided MinOccupancy is also met. Zero
	// selects a default of 8.
	ChainLengthGrowTrigger int
	// MinOccupancy is the minimum live-entry count before a long chain
	// triggers a rehash; this avoids needlessly growing a nearly-empty,
	// unluckily-hashed table. Zero selects a default.
	MinOccupancy int
	// EstimatedContentSize hints the parent allocator about typical
	// interned payload size; advisory only.
	EstimatedContentSize int
}

func (c Config) withDefaults() Config {
	if c.BloomBits <= 0 {
		c.BloomBits = 1 << 16
	}
	if c.BucketCountBits <= 0 {
		c.BucketCountBits = 8
	}
	if c.ChainLengthGrowTrigger <= 0 {
		c.ChainLengthGrowTrigger = 8
	}
	if c.MinOccupancy <= 0 {
		c.MinOccupancy = 64
	}
	return c
}

type entry struct {
	h      hash
	length int
	ptr    *byte
	valid  bool
}

type tagTable struct {
	mu      sync.Mutex
	buckets []entry
	bloom   *bloom
	count   int
}

// Store is a content-addressed dedup layer over a parent arena.Allocator.
// It implements arena.Allocator itself, so it can be used anywhere a plain
// allocator is expected; Store(tag, data, align) is where interning
// actually happens.
type Store struct {
	parent arena.Allocator
	cfg    Config

	table xsync.Map[arena.Tag, *tagTable]
}

// New creates a dedup Store wrapping parent.
func New(parent arena.Allocator, cfg Config) *Store {
	return &Store{
		parent: parent,
		cfg:    cfg.withDefaults(),
	}
}

func (s *Store) tableFor(tag arena.Tag) *tagTable {
	t, _ := s.table.LoadOrStore(tag, func() *tagTable {
		return &tagTable{
			buckets: make([]entry, 1<<s.cfg.BucketCountBits),
			bloom:   newBloom(s.cfg.BloomBits, 3),
		}
	})
	return t
}

func (s *Store) Caps() arena.Caps {
	return s.parent.Caps() | arena.CapDedup | arena.CapLookup
}

func (s *Store) GetTag() (arena.Tag, error) { return s.parent.GetTag() }

func (s *Store) ReleaseTag(tag arena.Tag) {
	s.table.Delete(tag)
	s.parent.ReleaseTag(tag)
}

func (s *Store) TagCount() int                  { return s.parent.TagCount() }
func (s *Store) SetTagCount(n int) error         { return s.parent.SetTagCount(n) }
func (s *Store) Alloc(tag arena.Tag, size, align int) (*byte, error) {
	return s.parent.Alloc(tag, size, align)
}

// Store interns data under tag: if identical content was previously
// interned, the existing pointer is returned; otherwise the content is
// copied into the parent allocator and recorded.
func (s *Store) Store(tag arena.Tag, data []byte, align int) (*byte, error) {
	if len(data) < s.cfg.DedupThreshold {
		return s.parent.Store(tag, data, align)
	}

	t := s.tableFor(tag)
	h := hashBytes(data)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bloom.maybeContains(h) {
		if p, ok := find(t.buckets, h, data); ok {
			dbg.Log(nil, "Store.Store", "tag=%d hit %s", tag, h)
			return p, nil
		}
	}

	p, err := s.parent.Store(tag, data, align)
	if err != nil {
		return nil, err
	}

	if t.count >= len(t.buckets) {
		s.rehash(t)
	}
	idx, chainLen := insert(t.buckets, h, len(data), p)
	_ = idx
	t.bloom.add(h)
	t.count++

	if chainLen > s.cfg.ChainLengthGrowTrigger && t.count >= s.cfg.MinOccupancy {
		s.rehash(t)
	}

	return p, nil
}

func (s *Store) StoreV(tag arena.Tag, iov [][]byte, align int) (*byte, error) {
	total := 0
	for _, v := range iov {
		total += len(v)
	}
	if total < s.cfg.DedupThreshold {
		return s.parent.StoreV(tag, iov, align)
	}

	flat := make([]byte, 0, total)
	for _, v := range iov {
		flat = append(flat, v...)
	}
	return s.Store(tag, flat, align)
}

// Lookup searches for previously interned content identical to data,
// without storing it if absent.
func (s *Store) Lookup(tag arena.Tag, data []byte, align int) (*byte, bool) {
	t := s.tableFor(tag)
	h := hashBytes(data)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.bloom.maybeContains(h) {
		return nil, false
	}
	return find(t.buckets, h, data)
}

func (s *Store) Free(tag arena.Tag, ptr *byte) { s.parent.Free(tag, ptr) }
func (s *Store) Contains(tag arena.Tag, ptr *byte) bool {
	return s.parent.Contains(tag, ptr)
}
func (s *Store) TagLinearSize(tag arena.Tag) int64 { return s.parent.TagLinearSize(tag) }
func (s *Store) TagSingleLinear(tag arena.Tag) ([]byte, bool) {
	return s.parent.TagSingleLinear(tag)
}
func (s *Store) TrimTag(tag arena.Tag) { s.parent.TrimTag(tag) }

func (s *Store) ResetTag(tag arena.Tag) {
	s.table.Delete(tag)
	s.parent.ResetTag(tag)
}

func (s *Store) Dump() string {
	out := "dedup{"
	first := true
	for tag, t := range s.table.All() {
		t.mu.Lock()
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%d: %d interned in %d buckets", tag, t.count, len(t.buckets))
		t.mu.Unlock()
	}
	return out + "} over " + s.parent.Dump()
}

// find walks the bucket chain at h's home bucket via quadratic probing,
// comparing hash+length then full content, per the probe sequence
// f(i) = (i^2+i)/2 mod len(buckets).
func find(buckets []entry, h hash, data []byte) (*byte, bool) {
	mask := len(buckets) - 1
	i := int(h.h1()) & mask
	step := 0
	for probes := 0; probes < len(buckets); probes++ {
		e := buckets[i]
		if !e.valid {
			return nil, false
		}
		if e.h == h && e.length == len(data) {
			if equalContent(e.ptr, data) {
				return e.ptr, true
			}
		}
		step++
		i = (i + step) & mask
	}
	return nil, false
}

// insert places (h, length, ptr) into the first empty bucket on h's probe
// sequence, returning the bucket index used and the probe depth reached.
func insert(buckets []entry, h hash, length int, ptr *byte) (index, chainLen int) {
	mask := len(buckets) - 1
	i := int(h.h1()) & mask
	step := 0
	for probes := 0; probes < len(buckets); probes++ {
		if !buckets[i].valid {
			buckets[i] = entry{h: h, length: length, ptr: ptr, valid: true}
			return i, step
		}
		step++
		i = (i + step) & mask
	}
	// Table is full. Store grows a full table before inserting, so this is
	// not reached from Store; if it is, the slot the probe loop ended on is
	// overwritten and its previous entry is dropped.
	buckets[i] = entry{h: h, length: length, ptr: ptr, valid: true}
	return i, step
}

func (s *Store) rehash(t *tagTable) {
	old := t.buckets
	grown := make([]entry, len(old)*2)
	for _, e := range old {
		if e.valid {
			insert(grown, e.h, e.length, e.ptr)
		}
	}
	t.buckets = grown
	t.bloom = newBloom(s.cfg.BloomBits, 3)
	for _, e := range grown {
		if e.valid {
			t.bloom.add(e.h)
		}
	}
}

func equalContent(ptr *byte, data []byte) bool {
	stored := unsafeBytes(ptr, len(data))
	for i := range data {
		if stored[i] != data[i] {
			return false
		}
	}
	return true
}
