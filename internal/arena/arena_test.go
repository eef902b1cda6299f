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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyvalue/fyvalue/internal/arena"
)

func allAllocators(t *testing.T) map[string]arena.Allocator {
	t.Helper()
	return map[string]arena.Allocator{
		"bump":     arena.NewBump(64),
		"growable": arena.NewGrowable(arena.GrowableOptions{MinExtentSize: 64}),
		"malloc":   arena.NewMalloc(0),
	}
}

func tagOf(t *testing.T, a arena.Allocator) arena.Tag {
	t.Helper()
	tag, err := a.GetTag()
	require.NoError(t, err)
	return tag
}

func TestStoreAndContains(t *testing.T) {
	for name, a := range allAllocators(t) {
		t.Run(name, func(t *testing.T) {
			tag := tagOf(t, a)
			p, err := a.Store(tag, []byte("hello"), 1)
			require.NoError(t, err)
			require.NotNil(t, p)
			require.True(t, a.Contains(tag, p))
		})
	}
}

func TestStoreVGathers(t *testing.T) {
	for name, a := range allAllocators(t) {
		t.Run(name, func(t *testing.T) {
			tag := tagOf(t, a)
			p, err := a.StoreV(tag, [][]byte{[]byte("foo"), []byte("bar")}, 1)
			require.NoError(t, err)
			require.NotNil(t, p)
		})
	}
}

func TestGrowableMultiTagIsolation(t *testing.T) {
	g := arena.NewGrowable(arena.GrowableOptions{MinExtentSize: 32})
	tagA, err := g.GetTag()
	require.NoError(t, err)
	tagB, err := g.GetTag()
	require.NoError(t, err)
	require.NotEqual(t, tagA, tagB)

	pa, err := g.Store(tagA, []byte("alpha"), 1)
	require.NoError(t, err)
	pb, err := g.Store(tagB, []byte("beta"), 1)
	require.NoError(t, err)

	require.True(t, g.Contains(tagA, pa))
	require.False(t, g.Contains(tagB, pa))
	require.True(t, g.Contains(tagB, pb))

	g.ReleaseTag(tagA)
	require.False(t, g.Contains(arena.TagNone, pa))
	require.True(t, g.Contains(tagB, pb))
}

func TestGrowableGrowsPastSingleExtent(t *testing.T) {
	g := arena.NewGrowable(arena.GrowableOptions{MinExtentSize: 16})
	tag, err := g.GetTag()
	require.NoError(t, err)

	for i := range 64 {
		_, err := g.Store(tag, []byte{byte(i), byte(i), byte(i), byte(i)}, 1)
		require.NoError(t, err)
	}
	require.Greater(t, g.TagLinearSize(tag), int64(16))
}

func TestMallocFreeReclaimsIndividualAllocation(t *testing.T) {
	m := arena.NewMalloc(0)
	tag, err := m.GetTag()
	require.NoError(t, err)

	p, err := m.Store(tag, []byte("gone soon"), 1)
	require.NoError(t, err)
	require.True(t, m.Contains(tag, p))

	m.Free(tag, p)
	require.False(t, m.Contains(tag, p))
}

func TestBumpResetTagReusesBuffer(t *testing.T) {
	b := arena.NewBump(64)
	tag, err := b.GetTag()
	require.NoError(t, err)

	_, err = b.Store(tag, []byte("first"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(5), b.TagLinearSize(tag))

	b.ResetTag(tag)
	require.Equal(t, int64(0), b.TagLinearSize(tag))
}

func TestBumpSingleLinear(t *testing.T) {
	b := arena.NewBump(64)
	tag, err := b.GetTag()
	require.NoError(t, err)

	_, err = b.Store(tag, []byte("abc"), 1)
	require.NoError(t, err)

	data, ok := b.TagSingleLinear(tag)
	require.True(t, ok)
	require.Equal(t, []byte("abc"), data)
}

func TestCapsString(t *testing.T) {
	require.Equal(t, "none", arena.Caps(0).String())
	require.Contains(t, (arena.CapFreeTag | arena.CapContains).String(), "free_tag")
}

func TestAutoBaseSelectsScenario(t *testing.T) {
	cases := []struct {
		scenario arena.Scenario
		dedup    bool
	}{
		{arena.ScenarioPerTagFree, false},
		{arena.ScenarioPerTagFreeDedup, true},
		{arena.ScenarioPerObjFree, false},
		{arena.ScenarioPerObjFreeDedup, true},
		{arena.ScenarioSingleLinear, false},
		{arena.ScenarioSingleLinearDedup, true},
	}
	for _, c := range cases {
		a, err := arena.Base(c.scenario, 4096)
		require.NoError(t, err)
		require.NotNil(t, a)
		require.Equal(t, c.dedup, c.scenario.NeedsDedup())
	}

	_, err := arena.Base("bogus", 0)
	require.ErrorIs(t, err, arena.ErrInvalidArgument)
}
