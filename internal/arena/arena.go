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

// Package arena implements the pluggable, tag-partitioned allocator
// capability contract of the value runtime: a bump arena, a growable
// chain-of-extents arena, a malloc-tracked wrapper, and a scenario-driven
// selector over the three.
//
// See <https://mcyoung.xyz/2025/04/21/go-arenas/> for the general shape of
// Go arena allocation that these allocators are built against.
package arena

import "fmt"

// Tag partitions an allocator's address space. All memory allocated under
// a tag is reclaimed in one shot by ReleaseTag.
type Tag int

const (
	// TagDefault is the tag returned by allocators that expose only a
	// single, implicit tag (e.g. Bump).
	TagDefault Tag = 0
	// TagError is returned by GetTag on failure.
	TagError Tag = -1
	// TagNone denotes "no specific tag" (e.g. search all tags).
	TagNone Tag = -2
)

// Caps is a bitset of allocator capabilities.
type Caps uint

const (
	CapFreeIndividual Caps = 1 << iota
	CapFreeTag
	CapDedup
	CapContains
	CapEfficientContains
	CapHasTags
	CapLookup
)

// Has reports whether c contains every bit in want.
func (c Caps) Has(want Caps) bool { return c&want == want }

func (c Caps) String() string {
	names := []struct {
		bit  Caps
		name string
	}{
		{CapFreeIndividual, "free_individual"},
		{CapFreeTag, "free_tag"},
		{CapDedup, "dedup"},
		{CapContains, "contains"},
		{CapEfficientContains, "efficient_contains"},
		{CapHasTags, "has_tags"},
		{CapLookup, "lookup"},
	}

	out := ""
	for _, n := range names {
		if c.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// Allocator is the capability-oriented facade every concrete allocator
// variant implements. Not every method is meaningful for every allocator;
// callers should consult Caps() before relying on free-individual, lookup,
// or efficient-contains behavior.
type Allocator interface {
	// Caps reports which operations this allocator meaningfully supports.
	Caps() Caps

	// GetTag creates a new tag and returns it, or TagError if the
	// allocator has reached its configured tag count.
	GetTag() (Tag, error)
	// ReleaseTag reclaims every byte allocated under tag. Idempotent.
	ReleaseTag(tag Tag)
	// TagCount returns the number of tags currently live (Bump, with its
	// single implicit tag, always reports 1).
	TagCount() int
	// SetTagCount changes the maximum number of tags. It does not release
	// any live tag: if more than n tags are live, the new maximum still
	// applies to later GetTag calls and ErrTagExhausted is returned.
	SetTagCount(n int) error

	// Alloc allocates size bytes aligned to align (a power of two) under
	// tag. Returns an error if size+align overflows or the tag is invalid.
	Alloc(tag Tag, size, align int) (*byte, error)
	// Store copies data into the allocator under tag and returns an
	// immutable pointer to the copy (or, for a dedup allocator, to a
	// previously-stored identical copy).
	Store(tag Tag, data []byte, align int) (*byte, error)
	// StoreV is like Store, but gathers data from multiple slices.
	StoreV(tag Tag, iov [][]byte, align int) (*byte, error)
	// Lookup searches for previously-stored content identical to data.
	// Only meaningful when Caps().Has(CapLookup).
	Lookup(tag Tag, data []byte, align int) (*byte, bool)
	// Free releases a single allocation. A no-op unless
	// Caps().Has(CapFreeIndividual).
	Free(tag Tag, ptr *byte)
	// Contains reports whether ptr was returned by this allocator under
	// tag (or any tag, if tag == TagNone).
	Contains(tag Tag, ptr *byte) bool

	// TagLinearSize returns the total live bytes allocated under tag, or
	// -1 on error.
	TagLinearSize(tag Tag) int64
	// TagSingleLinear returns the tag's content as one contiguous range,
	// if (and only if) it happens to be stored that way.
	TagSingleLinear(tag Tag) ([]byte, bool)
	// TrimTag releases unused tail capacity for tag.
	TrimTag(tag Tag)
	// ResetTag empties tag's content without releasing the tag itself.
	ResetTag(tag Tag)

	// Dump renders a best-effort diagnostic description of the
	// allocator's internal state, for tests and troubleshooting.
	Dump() string
}

// ErrOutOfMemory is returned when an allocation cannot be satisfied.
var ErrOutOfMemory = fmt.Errorf("arena: out of memory")

// ErrInvalidArgument is returned for a bad size, alignment, or tag.
var ErrInvalidArgument = fmt.Errorf("arena: invalid argument")

// ErrTagExhausted is returned by GetTag when the configured tag count has
// been reached.
var ErrTagExhausted = fmt.Errorf("arena: tag count exhausted")

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
