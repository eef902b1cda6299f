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

package fyvalue

import (
	"github.com/fyvalue/fyvalue/internal/xunsafe"
)

// KV is one key/value entry supplied to Mapping.
type KV struct {
	Key, Val Value
}

// emptySequence and emptyMapping are process-wide singletons: per the
// runtime's invariant that an empty container never needs its own storage,
// every builder's Sequence(nil) and Mapping(nil) return the same bit
// pattern, backed by static data rather than anything arena-allocated, so
// their validity never depends on any tag's lifetime.
var (
	emptySeqAddr = xunsafe.AddrOf(&[0]Value{})
	emptyMapAddr = xunsafe.AddrOf(&[0]mapPair{})

	emptySequence = sequenceValue(xunsafe.Addr[byte](emptySeqAddr), 0)
	emptyMapping  = mappingValue(xunsafe.Addr[byte](emptyMapAddr), 0)
)

func castMapPairs(hdr *byte, n int) []mapPair {
	return xunsafe.Slice[*mapPair, mapPair](xunsafe.Cast[mapPair](hdr), n)
}

// Null returns the singleton null value.
func (b *Builder) Null() Value { return nullValue() }

// Bool returns a boolean value.
func (b *Builder) Bool(v bool) Value { return boolValue(v) }

// Float returns a floating-point value.
func (b *Builder) Float(f float64) Value { return floatValue(f) }

// Int returns an integer value. Every int64 fits in the data word and is
// stored inline; Int never boxes. AsInt still reads a boxed payload
// (length -1), but no constructor produces one.
func (b *Builder) Int(n int64) Value { return inlineIntValue(n) }

// String interns s's bytes into the builder's allocator and returns a
// string value. The empty string is not stored: it is returned as a
// zero-length value with a zero address, which is never dereferenced.
func (b *Builder) String(s string) Value {
	if len(s) == 0 {
		return stringValue(0, 0)
	}
	ptr, err := b.alloc.Store(b.tag, []byte(s), 1)
	if err != nil {
		return b.fail("Builder.String", ErrOutOfMemory, err)
	}
	return stringValue(xunsafe.AddrOf(ptr), len(s))
}

// Sequence stores elems as a flat array and returns a sequence value. Every
// element must already belong to b's tag; use Rebind first if not.
func (b *Builder) Sequence(elems []Value) Value {
	if len(elems) == 0 {
		return emptySequence
	}
	raw := xunsafe.Slice[*byte, byte](xunsafe.Cast[byte](&elems[0]), len(elems)*sizeofValue)
	ptr, err := b.alloc.Store(b.tag, raw, alignofValue)
	if err != nil {
		return b.fail("Builder.Sequence", ErrOutOfMemory, err)
	}
	return sequenceValue(xunsafe.AddrOf(ptr), len(elems))
}

// Mapping stores pairs as a flat array of (key, value) entries and returns
// a mapping value. Every key and value must already belong to b's tag.
func (b *Builder) Mapping(pairs []KV) Value {
	if len(pairs) == 0 {
		return emptyMapping
	}
	records := make([]mapPair, len(pairs))
	for i, kv := range pairs {
		records[i] = mapPair{key: kv.Key, val: kv.Val}
	}
	raw := xunsafe.Slice[*byte, byte](xunsafe.Cast[byte](&records[0]), len(records)*sizeofMapPair)
	ptr, err := b.alloc.Store(b.tag, raw, alignofMapPair)
	if err != nil {
		return b.fail("Builder.Mapping", ErrOutOfMemory, err)
	}
	return mappingValue(xunsafe.AddrOf(ptr), len(pairs))
}

// Document wraps root with stream-level metadata (e.g. a set of directive
// lines) and returns a document value.
func (b *Builder) Document(root Value, metadata string) Value {
	rec := docRecord{root: root}
	if len(metadata) > 0 {
		ptr, err := b.alloc.Store(b.tag, []byte(metadata), 1)
		if err != nil {
			return b.fail("Builder.Document", ErrOutOfMemory, err)
		}
		rec.metaAddr = xunsafe.AddrOf(ptr)
		rec.metaLen = len(metadata)
	}
	ptr, err := b.alloc.Store(b.tag, xunsafe.Bytes(&rec), xunsafe.PointerAlign)
	if err != nil {
		return b.fail("Builder.Document", ErrOutOfMemory, err)
	}
	return documentValue(xunsafe.AddrOf(ptr))
}

// Alias returns an alias/anchor reference named name, optionally resolved
// to target (pass the invalid value if unresolved).
func (b *Builder) Alias(name string, target Value) Value {
	rec := aliasRecord{target: target}
	if len(name) > 0 {
		ptr, err := b.alloc.Store(b.tag, []byte(name), 1)
		if err != nil {
			return b.fail("Builder.Alias", ErrOutOfMemory, err)
		}
		rec.nameAddr = xunsafe.AddrOf(ptr)
		rec.nameLen = len(name)
	}
	ptr, err := b.alloc.Store(b.tag, xunsafe.Bytes(&rec), xunsafe.PointerAlign)
	if err != nil {
		return b.fail("Builder.Alias", ErrOutOfMemory, err)
	}
	return aliasValue(xunsafe.AddrOf(ptr))
}

var (
	sizeofValue, alignofValue     = xunsafe.Layout[Value]()
	sizeofMapPair, alignofMapPair = xunsafe.Layout[mapPair]()
)
