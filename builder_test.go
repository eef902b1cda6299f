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
	"github.com/fyvalue/fyvalue/internal/arena"
	"github.com/fyvalue/fyvalue/internal/dedup"
)

func TestNewBuilderDefaults(t *testing.T) {
	b, err := fyvalue.NewBuilder(arena.NewMalloc(0))
	require.NoError(t, err)
	defer b.Close()

	require.False(t, b.SchemaAuto())
	require.False(t, b.ScopeLeader())
}

func TestBuilderOptionsPassThrough(t *testing.T) {
	b, err := fyvalue.NewBuilder(arena.NewMalloc(0),
		fyvalue.WithSchemaAuto(true),
		fyvalue.WithScopeLeader(true),
	)
	require.NoError(t, err)
	defer b.Close()

	require.True(t, b.SchemaAuto())
	require.True(t, b.ScopeLeader())
}

func TestBuilderWithDedupInterns(t *testing.T) {
	b, err := fyvalue.NewBuilder(arena.NewMalloc(0), fyvalue.WithDedup(dedup.Config{}))
	require.NoError(t, err)
	defer b.Close()

	a := b.String("the quick brown fox jumps over the lazy dog")
	c := b.String("the quick brown fox jumps over the lazy dog")
	require.Equal(t, a, c)
}

func TestCloseIsIdempotent(t *testing.T) {
	b, err := fyvalue.NewBuilder(arena.NewMalloc(0))
	require.NoError(t, err)
	b.Close()
	require.NotPanics(t, b.Close)
}

func TestFailedConstructorSetsLastError(t *testing.T) {
	b, err := fyvalue.NewBuilder(arena.NewMalloc(0))
	require.NoError(t, err)
	defer b.Close()

	notAMapping := b.Int(1)
	result := b.Assoc(notAMapping, b.String("k"), b.Int(1))
	require.False(t, result.IsValid())
	require.NotNil(t, b.LastError())
	require.Equal(t, fyvalue.ErrInvalidArgument, b.LastError().Kind)
}

func TestRebindCrossesTagBoundary(t *testing.T) {
	alloc := arena.NewGrowable(arena.GrowableOptions{})
	src, err := fyvalue.NewBuilder(alloc)
	require.NoError(t, err)
	defer src.Close()

	dst, err := fyvalue.NewBuilder(alloc)
	require.NoError(t, err)
	defer dst.Close()

	seq := src.Sequence([]fyvalue.Value{src.Int(1), src.String("a")})
	moved := dst.Rebind(seq)
	require.Equal(t, 2, moved.Len())
	require.Equal(t, int64(1), moved.At(0).AsInt(-1))
	require.Equal(t, "a", moved.At(1).AsString(""))

	src.Close()
	require.Equal(t, "a", moved.At(1).AsString("gone"))
}
