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
	"unsafe"

	"github.com/fyvalue/fyvalue/internal/dbg"
)

// Malloc is an allocator that tracks every live allocation individually, so
// that Free actually reclaims memory instead of waiting for a whole-tag
// release. It corresponds to the "per_obj_free" scenario: most flexible,
// highest per-allocation bookkeeping cost.
type Malloc struct {
	mu      sync.RWMutex
	tags    map[Tag]map[*byte][]byte
	nextTag Tag
	maxTags int

	_ xunsafeNoCopy
}

// NewMalloc creates a Malloc allocator.
func NewMalloc(maxTags int) *Malloc {
	return &Malloc{tags: make(map[Tag]map[*byte][]byte), maxTags: maxTags}
}

func (m *Malloc) Caps() Caps {
	return CapFreeIndividual | CapFreeTag | CapContains | CapHasTags
}

func (m *Malloc) GetTag() (Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxTags > 0 && len(m.tags) >= m.maxTags {
		return TagError, ErrTagExhausted
	}

	tag := m.nextTag
	m.nextTag++
	m.tags[tag] = make(map[*byte][]byte)
	return tag, nil
}

func (m *Malloc) ReleaseTag(tag Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, tag)
}

func (m *Malloc) TagCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}

func (m *Malloc) SetTagCount(n int) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxTags = n
	if n > 0 && len(m.tags) > n {
		return fmt.Errorf("%w: %d tags already live, exceeds new count %d", ErrTagExhausted, len(m.tags), n)
	}
	return nil
}

func (m *Malloc) Alloc(tag Tag, size, align int) (*byte, error) {
	if size < 0 || align <= 0 || !isPow2(align) {
		return nil, ErrInvalidArgument
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	live, ok := m.tags[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrInvalidArgument, tag)
	}

	// Over-allocate to satisfy align, then hand back an aligned interior
	// pointer; the backing slice (keyed by that aligned pointer) is what
	// keeps the allocation alive and trackable for Free.
	buf := make([]byte, size+align)
	addr := addrOfFirst(buf)
	aligned := alignUp(addr, align)
	p := &buf[aligned-addr]

	live[p] = buf
	dbg.Log(nil, "Malloc.Alloc", "tag=%d size=%d align=%d -> %p", tag, size, align, p)
	return p, nil
}

func (m *Malloc) Store(tag Tag, data []byte, align int) (*byte, error) {
	p, err := m.Alloc(tag, len(data), align)
	if err != nil {
		return nil, err
	}
	copy(unsafeBytes(p, len(data)), data)
	return p, nil
}

func (m *Malloc) StoreV(tag Tag, iov [][]byte, align int) (*byte, error) {
	total := 0
	for _, v := range iov {
		total += len(v)
	}
	p, err := m.Alloc(tag, total, align)
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

func (m *Malloc) Lookup(tag Tag, data []byte, align int) (*byte, bool) { return nil, false }

func (m *Malloc) Free(tag Tag, ptr *byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if live, ok := m.tags[tag]; ok {
		delete(live, ptr)
	}
}

func (m *Malloc) Contains(tag Tag, ptr *byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tag == TagNone {
		for _, live := range m.tags {
			if _, ok := live[ptr]; ok {
				return true
			}
		}
		return false
	}
	live, ok := m.tags[tag]
	if !ok {
		return false
	}
	_, ok = live[ptr]
	return ok
}

func (m *Malloc) TagLinearSize(tag Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live, ok := m.tags[tag]
	if !ok {
		return -1
	}
	var n int64
	for _, buf := range live {
		n += int64(len(buf))
	}
	return n
}

func (m *Malloc) TagSingleLinear(tag Tag) ([]byte, bool) { return nil, false }

func (m *Malloc) TrimTag(tag Tag) {} // each allocation is its own buffer; no shared tail to trim

func (m *Malloc) ResetTag(tag Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[tag]; ok {
		m.tags[tag] = make(map[*byte][]byte)
	}
}

func (m *Malloc) Dump() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := "malloc{"
	first := true
	for tag, live := range m.tags {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%d: %d live allocations", tag, len(live))
	}
	return out + "}"
}

func addrOfFirst(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return int(uintptr(unsafe.Pointer(&b[0])))
}
