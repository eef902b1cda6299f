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

// Bump is a single-tag, single-extent arena: allocations are satisfied by
// bumping a cursor through one contiguous buffer, and the whole thing is
// reclaimed in one shot. It corresponds to the "single_linear" scenario of
// the allocator selection table: lowest overhead, no individual free, no
// dedup of its own.
type Bump struct {
	mu sync.Mutex
	c  *chunk

	_ xunsafeNoCopy
}

// NewBump creates a Bump allocator with the given initial capacity in bytes.
func NewBump(initialSize int) *Bump {
	if initialSize <= 0 {
		initialSize = defaultMinArena
	}
	return &Bump{c: newChunk(initialSize)}
}

func (b *Bump) Caps() Caps {
	return CapContains | CapEfficientContains
}

func (b *Bump) GetTag() (Tag, error) { return TagDefault, nil }

func (b *Bump) ReleaseTag(tag Tag) {
	if tag != TagDefault {
		return
	}
	b.ResetTag(tag)
}

func (b *Bump) TagCount() int { return 1 }

func (b *Bump) SetTagCount(n int) error {
	if n != 1 {
		return fmt.Errorf("%w: bump allocator supports exactly one tag", ErrInvalidArgument)
	}
	return nil
}

func (b *Bump) Alloc(tag Tag, size, align int) (*byte, error) {
	if tag != TagDefault {
		return nil, ErrInvalidArgument
	}
	if size < 0 || align <= 0 || !isPow2(align) {
		return nil, ErrInvalidArgument
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if p := b.c.alloc(size, align); p != nil {
		dbg.Log(nil, "Bump.Alloc", "size=%d align=%d -> %p", size, align, p)
		return p, nil
	}

	grown := newChunk(max(len(b.c.data)*2, alignUp(size, align)*2))
	copy(grown.data, b.c.data[:b.c.next])
	grown.next = b.c.next
	b.c = grown

	p := b.c.alloc(size, align)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return p, nil
}

func (b *Bump) Store(tag Tag, data []byte, align int) (*byte, error) {
	p, err := b.Alloc(tag, len(data), align)
	if err != nil {
		return nil, err
	}
	copy(unsafeBytes(p, len(data)), data)
	return p, nil
}

func (b *Bump) StoreV(tag Tag, iov [][]byte, align int) (*byte, error) {
	total := 0
	for _, v := range iov {
		total += len(v)
	}
	p, err := b.Alloc(tag, total, align)
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

func (b *Bump) Lookup(tag Tag, data []byte, align int) (*byte, bool) { return nil, false }

func (b *Bump) Free(tag Tag, ptr *byte) {} // no individual free

func (b *Bump) Contains(tag Tag, ptr *byte) bool {
	if tag != TagDefault && tag != TagNone {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.contains(ptr)
}

func (b *Bump) TagLinearSize(tag Tag) int64 {
	if tag != TagDefault {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(b.c.next)
}

func (b *Bump) TagSingleLinear(tag Tag) ([]byte, bool) {
	if tag != TagDefault {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.data[:b.c.next], true
}

func (b *Bump) TrimTag(tag Tag) {
	if tag != TagDefault {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c.next < len(b.c.data) {
		trimmed := make([]byte, b.c.next)
		copy(trimmed, b.c.data[:b.c.next])
		b.c.data = trimmed
	}
}

func (b *Bump) ResetTag(tag Tag) {
	if tag != TagDefault {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.next = 0
}

func (b *Bump) Dump() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("bump{used=%d cap=%d}", b.c.next, len(b.c.data))
}
