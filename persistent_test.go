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

package fyvalue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyvalue/fyvalue"
)

func TestAssocReplacesExistingKeyInPlace(t *testing.T) {
	b := newBuilder(t)
	k1, k2 := b.String("a"), b.String("b")
	m := b.Mapping([]fyvalue.KV{{Key: k1, Val: b.Int(1)}, {Key: k2, Val: b.Int(2)}})

	updated := b.Assoc(m, k1, b.Int(100))
	require.Equal(t, 2, updated.Len())
	require.Equal(t, int64(100), updated.Get(k1, fyvalue.Value{}).AsInt(-1))
	require.Equal(t, int64(2), updated.Get(k2, fyvalue.Value{}).AsInt(-1))

	// original untouched
	require.Equal(t, int64(1), m.Get(k1, fyvalue.Value{}).AsInt(-1))
}

func TestAssocAppendsNewKey(t *testing.T) {
	b := newBuilder(t)
	k1 := b.String("a")
	m := b.Mapping([]fyvalue.KV{{Key: k1, Val: b.Int(1)}})

	k2 := b.String("b")
	updated := b.Assoc(m, k2, b.Int(2))
	require.Equal(t, 2, updated.Len())
	require.Equal(t, int64(2), updated.Get(k2, fyvalue.Value{}).AsInt(-1))
}

func TestDissocRemovesKeyPreservingOrder(t *testing.T) {
	b := newBuilder(t)
	k1, k2, k3 := b.String("a"), b.String("b"), b.String("c")
	m := b.Mapping([]fyvalue.KV{
		{Key: k1, Val: b.Int(1)},
		{Key: k2, Val: b.Int(2)},
		{Key: k3, Val: b.Int(3)},
	})

	updated := b.Dissoc(m, k2)
	require.Equal(t, 2, updated.Len())
	require.False(t, updated.Get(k2, fyvalue.Value{}).IsValid())
	require.Equal(t, int64(1), updated.Get(k1, fyvalue.Value{}).AsInt(-1))
	require.Equal(t, int64(3), updated.Get(k3, fyvalue.Value{}).AsInt(-1))
}

func TestAppendIsTailInsertion(t *testing.T) {
	b := newBuilder(t)
	seq := b.Sequence([]fyvalue.Value{b.Int(1), b.Int(2)})
	updated := b.Append(seq, b.Int(3))
	require.Equal(t, 3, updated.Len())
	require.Equal(t, int64(3), updated.At(2).AsInt(-1))
	require.Equal(t, 2, seq.Len())
}

func TestGetTopLevelWrapper(t *testing.T) {
	b := newBuilder(t)
	k := b.String("k")
	m := b.Mapping([]fyvalue.KV{{Key: k, Val: b.Int(5)}})
	require.Equal(t, int64(5), fyvalue.Get(m, k, fyvalue.Value{}).AsInt(-1))
}

func TestUpdateRebuildsOnlyTheSpine(t *testing.T) {
	b := newBuilder(t)
	inner := b.Mapping([]fyvalue.KV{{Key: b.String("x"), Val: b.Int(1)}})
	unrelated := b.Sequence([]fyvalue.Value{b.Int(9), b.Int(10)})
	outerKey := b.String("inner")
	siblingKey := b.String("sibling")
	outer := b.Mapping([]fyvalue.KV{
		{Key: outerKey, Val: inner},
		{Key: siblingKey, Val: unrelated},
	})

	path := []fyvalue.Path{fyvalue.Key(outerKey), fyvalue.Key(b.String("x"))}
	updated := b.Update(outer, path, func(v fyvalue.Value) fyvalue.Value {
		return b.Int(v.AsInt(0) + 41)
	})

	require.Equal(t, int64(42), updated.Get(outerKey, fyvalue.Value{}).Get(b.String("x"), fyvalue.Value{}).AsInt(-1))
	// sibling subtree shared unchanged
	require.Equal(t, unrelated, updated.Get(siblingKey, fyvalue.Value{}))
	// original untouched
	require.Equal(t, int64(1), outer.Get(outerKey, fyvalue.Value{}).Get(b.String("x"), fyvalue.Value{}).AsInt(-1))
}

func TestUpdateOnSequenceIndex(t *testing.T) {
	b := newBuilder(t)
	seq := b.Sequence([]fyvalue.Value{b.Int(1), b.Int(2), b.Int(3)})
	updated := b.Update(seq, []fyvalue.Path{fyvalue.Index(1)}, func(v fyvalue.Value) fyvalue.Value {
		return b.Int(v.AsInt(0) * 10)
	})
	require.Equal(t, int64(20), updated.At(1).AsInt(-1))
	require.Equal(t, int64(1), updated.At(0).AsInt(-1))
	require.Equal(t, int64(2), seq.At(1).AsInt(-1))
}

func TestUpdateReturnsUnchangedOnBadPath(t *testing.T) {
	b := newBuilder(t)
	m := b.Mapping([]fyvalue.KV{{Key: b.String("a"), Val: b.Int(1)}})
	updated := b.Update(m, []fyvalue.Path{fyvalue.Key(b.String("missing"))}, func(v fyvalue.Value) fyvalue.Value {
		t.Fatal("fn must not be called on an unresolved path")
		return v
	})
	require.Equal(t, m, updated)
}
