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

// Package fyvalue implements a generic, tagged immutable value runtime: a
// two-word value representation, a pluggable arena allocator with
// content-addressed deduplication, and a persistent functional API (assoc,
// dissoc, append, map, filter, reduce) with optional parallel execution.
package fyvalue

import (
	"math"

	"github.com/fyvalue/fyvalue/internal/xunsafe"
)

// Value is an opaque, immutable two-word handle produced by a Builder.
// Constructors are the only legal route from raw Go data to a Value;
// inspectors are pure functions on the word.
//
// A Value's backing memory (for any kind that isn't inline) is owned by the
// allocator tag that produced it, and remains valid only as long as that
// tag is live; see Builder's lifecycle documentation.
type Value struct {
	meta uint64 // kind (low byte), payload length/count (next 32 bits)
	data uint64 // inline scalar bits, or the address of out-of-line payload
}

const (
	metaKindBits = 8
	metaKindMask = 1<<metaKindBits - 1
	metaLenShift = metaKindBits
	metaLenBits  = 32
	metaLenMask  = uint64(1)<<metaLenBits - 1
)

func packMeta(k Kind, length int) uint64 {
	return uint64(k)&metaKindMask | (uint64(uint32(length))&metaLenMask)<<metaLenShift
}

// Kind returns v's kind.
func (v Value) Kind() Kind { return Kind(v.meta & metaKindMask) }

// IsContainer reports whether v is a sequence, mapping, or document.
func (v Value) IsContainer() bool { return v.Kind().IsContainer() }

// IsValid reports whether v is anything other than the distinguished
// invalid value returned by a failed constructor.
func (v Value) IsValid() bool { return v.Kind() != KindInvalid }

// length extracts the packed count/length field (string bytes, sequence
// element count, mapping entry count).
func (v Value) length() int { return int(int32((v.meta >> metaLenShift) & metaLenMask)) }

func (v Value) addr() xunsafe.Addr[byte] { return xunsafe.Addr[byte](v.data) }

// invalidValue is the distinguished value every constructor returns on
// failure.
var invalidValue = Value{meta: packMeta(KindInvalid, 0)}

func nullValue() Value { return Value{meta: packMeta(KindNull, 0)} }

func boolValue(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{meta: packMeta(KindBool, 0), data: d}
}

func inlineIntValue(n int64) Value {
	return Value{meta: packMeta(KindInt, 0), data: uint64(n)}
}

func boxedIntValue(addr xunsafe.Addr[int64]) Value {
	return Value{meta: packMeta(KindInt, -1), data: uint64(addr)}
}

func floatValue(f float64) Value {
	return Value{meta: packMeta(KindFloat, 0), data: math.Float64bits(f)}
}

func stringValue(addr xunsafe.Addr[byte], length int) Value {
	return Value{meta: packMeta(KindString, length), data: uint64(addr)}
}

func sequenceValue(addr xunsafe.Addr[byte], count int) Value {
	return Value{meta: packMeta(KindSequence, count), data: uint64(addr)}
}

func mappingValue(addr xunsafe.Addr[byte], count int) Value {
	return Value{meta: packMeta(KindMapping, count), data: uint64(addr)}
}

func documentValue(addr xunsafe.Addr[byte]) Value {
	return Value{meta: packMeta(KindDocument, 0), data: uint64(addr)}
}

func aliasValue(addr xunsafe.Addr[byte]) Value {
	return Value{meta: packMeta(KindAlias, 0), data: uint64(addr)}
}

// AsBool returns v's boolean payload, or def if v is not a bool.
func (v Value) AsBool(def bool) bool {
	if v.Kind() != KindBool {
		return def
	}
	return v.data != 0
}

// AsInt returns v's integer payload, or def if v is not an int.
func (v Value) AsInt(def int64) int64 {
	if v.Kind() != KindInt {
		return def
	}
	if v.length() < 0 {
		p := xunsafe.Cast[int64](v.addr().AssertValid())
		return *p
	}
	return int64(v.data)
}

// AsFloat returns v's float payload, or def if v is not a float.
func (v Value) AsFloat(def float64) float64 {
	if v.Kind() != KindFloat {
		return def
	}
	f := math.Float64frombits(v.data)
	return f
}

// AsString returns v's string payload, or def if v is not a string.
func (v Value) AsString(def string) string {
	if v.Kind() != KindString {
		return def
	}
	n := v.length()
	if n == 0 {
		return ""
	}
	b := xunsafe.Slice[*byte, byte](v.addr().AssertValid(), n)
	return string(b)
}

// Len returns the number of elements (sequence) or entries (mapping), or -1
// if v is neither a sequence nor a mapping (documents included).
func (v Value) Len() int {
	switch v.Kind() {
	case KindSequence, KindMapping:
		return v.length()
	default:
		return -1
	}
}

// At returns the element of a sequence at index i, or the invalid value if
// v is not a sequence or i is out of range.
func (v Value) At(i int) Value {
	if v.Kind() != KindSequence {
		return invalidValue
	}
	n := v.length()
	if i < 0 || i >= n {
		return invalidValue
	}
	hdr := v.addr().AssertValid()
	elems := xunsafe.Cast[Value](hdr)
	return *xunsafe.Add(elems, i)
}

// Get looks up key in a mapping, returning def if absent or v is not a
// mapping. Keys are compared by kind+payload byte equality, with strings
// compared by content (see valuesEqual).
func (v Value) Get(key Value, def Value) Value {
	if v.Kind() != KindMapping {
		return def
	}
	n := v.length()
	hdr := v.addr().AssertValid()
	pairs := xunsafe.Cast[mapPair](hdr)
	for i := range n {
		p := xunsafe.Add(pairs, i)
		if valuesEqual(p.key, key) {
			return p.val
		}
	}
	return def
}

// mapPair is the on-disk layout of one mapping entry: a flat (key, value)
// pair of slots, matching the "flat array of N inline entries"
// representation used for both sequences and mappings.
type mapPair struct {
	key, val Value
}

// docRecord is the on-disk layout of a document wrapper: a root value plus
// optional stream-level metadata (e.g. a YAML document's directives).
type docRecord struct {
	root     Value
	metaAddr xunsafe.Addr[byte]
	metaLen  int
}

// aliasRecord is the on-disk layout of an alias/anchor: a name, and an
// optional resolved target (the invalid value if unresolved).
type aliasRecord struct {
	nameAddr xunsafe.Addr[byte]
	nameLen  int
	target   Value
}

// Root returns the root value of a document, or the invalid value if v is
// not a document.
func (v Value) Root() Value {
	if v.Kind() != KindDocument {
		return invalidValue
	}
	return xunsafe.Cast[docRecord](v.addr().AssertValid()).root
}

// Metadata returns a document's stream-level metadata string, or "" if v is
// not a document or carries none.
func (v Value) Metadata() string {
	if v.Kind() != KindDocument {
		return ""
	}
	rec := xunsafe.Cast[docRecord](v.addr().AssertValid())
	if rec.metaLen == 0 {
		return ""
	}
	return string(xunsafe.Slice[*byte, byte](rec.metaAddr.AssertValid(), rec.metaLen))
}

// AliasName returns an alias's referenced name, or "" if v is not an alias.
func (v Value) AliasName() string {
	if v.Kind() != KindAlias {
		return ""
	}
	rec := xunsafe.Cast[aliasRecord](v.addr().AssertValid())
	if rec.nameLen == 0 {
		return ""
	}
	return string(xunsafe.Slice[*byte, byte](rec.nameAddr.AssertValid(), rec.nameLen))
}

// AliasTarget returns the value an alias resolves to, or the invalid value
// if v is not an alias or is unresolved.
func (v Value) AliasTarget() Value {
	if v.Kind() != KindAlias {
		return invalidValue
	}
	return xunsafe.Cast[aliasRecord](v.addr().AssertValid()).target
}

// valuesEqual compares two values by kind+payload bytes, except that two
// strings also compare equal when their contents match, so string keys from
// a non-deduplicating builder still find each other. Every other kind
// (floats included) compares by bits only; sequences, mappings, documents
// and aliases compare equal only when they share storage.
func valuesEqual(a, b Value) bool {
	if a.meta != b.meta {
		return false
	}
	if a.data == b.data {
		return true
	}
	return a.Kind() == KindString && a.AsString("") == b.AsString("")
}
