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
	"github.com/fyvalue/fyvalue/internal/arena"
	"github.com/fyvalue/fyvalue/internal/dbg"
	"github.com/fyvalue/fyvalue/internal/dedup"
)

// Builder couples a chosen allocator, a current tag, and a policy bitset.
// Every value constructor accepts a Builder; it is the only legal route
// from raw bytes to a Value.
//
// A Builder is not thread-safe: callers must serialize construction on a
// single Builder. Parallel map/filter callbacks that construct new values
// must each use their own Builder (see PMap/PFilter).
type Builder struct {
	alloc arena.Allocator
	tag   arena.Tag
	opts  Options

	lastErr *Error
	closed  bool
}

// NewBuilder creates a Builder over an existing allocator, obtaining a new
// tag from it. The builder does not own alloc unless WithOwnsAllocator is
// passed. Either way, Close releases only the builder's tag and leaves the
// allocator itself alive (callers created it, callers destroy it).
func NewBuilder(alloc arena.Allocator, opts ...BuilderOption) (*Builder, error) {
	var o Options
	for _, opt := range opts {
		opt.apply(&o)
	}

	working := alloc
	if o.DedupEnabled {
		working = dedup.New(alloc, o.Dedup)
	}

	tag, err := working.GetTag()
	if err != nil {
		return nil, newError("NewBuilder", ErrTagExhausted, err)
	}

	dbg.Log(nil, "NewBuilder", "tag=%d dedup=%v", tag, o.DedupEnabled)
	return &Builder{alloc: working, tag: tag, opts: o}, nil
}

// Tag returns the allocator tag this builder constructs values under.
func (b *Builder) Tag() arena.Tag { return b.tag }

// Allocator returns the allocator this builder constructs values through
// (the dedup-wrapping one, if dedup is enabled).
func (b *Builder) Allocator() arena.Allocator { return b.alloc }

// OwnsAllocator reports whether Close is also responsible for this
// builder's allocator (set via WithOwnsAllocator, or implicitly by
// NewBuilderFromConfig since that constructor creates the allocator
// itself).
func (b *Builder) OwnsAllocator() bool { return b.opts.OwnsAllocator }

// SchemaAuto returns the builder's opaque schema-auto policy bit.
func (b *Builder) SchemaAuto() bool { return b.opts.SchemaAuto }

// ScopeLeader returns the builder's opaque scope-leader policy bit.
func (b *Builder) ScopeLeader() bool { return b.opts.ScopeLeader }

// LastError returns the most recent error this builder's constructors
// encountered, or nil. The invalid Value return from a constructor is
// authoritative; LastError is a convenience for callers that want a reason.
func (b *Builder) LastError() *Error { return b.lastErr }

func (b *Builder) fail(op string, kind ErrorKind, cause error) Value {
	b.lastErr = newError(op, kind, cause)
	return invalidValue
}

// Close releases this builder's tag. Every value previously obtained from
// it becomes invalid simultaneously. If the builder owns its allocator
// (WithOwnsAllocator), this is the caller's last use of the builder; the
// allocator itself is not destroyed here, since Go has no destructors —
// callers that heap-allocated the allocator simply let it become garbage.
func (b *Builder) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.alloc.ReleaseTag(b.tag)
	dbg.Log(nil, "Builder.Close", "tag=%d", b.tag)
}

// sub returns a lightweight Builder sharing b's allocator, tag, and policy
// bits, suitable for a single parallel worker to construct values with. It
// does not obtain a new tag and must never have Close called on it; the
// owning Builder (b) remains solely responsible for the tag's lifecycle.
func (b *Builder) sub() *Builder {
	return &Builder{alloc: b.alloc, tag: b.tag, opts: b.opts}
}

// Rebind re-stores v, which may have come from a different builder (and
// thus a different tag), under b's own tag. Per the lifecycle rule that
// "values never cross tag boundaries silently", any composite that crosses
// into a new builder is re-stored, which for containers also reconstructs
// the flat child-slot record so it contains only children already bound to
// b's tag.
func (b *Builder) Rebind(v Value) Value {
	switch v.Kind() {
	case KindSequence:
		n := v.Len()
		elems := make([]Value, n)
		for i := range n {
			elems[i] = b.Rebind(v.At(i))
		}
		return b.Sequence(elems)
	case KindMapping:
		n := v.Len()
		pairs := make([]KV, n)
		hdr := v.addr().AssertValid()
		src := castMapPairs(hdr, n)
		for i := range n {
			pairs[i] = KV{b.Rebind(src[i].key), b.Rebind(src[i].val)}
		}
		return b.Mapping(pairs)
	case KindString:
		return b.String(v.AsString(""))
	default:
		return v
	}
}
