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
)

func TestParseAllocatorConfigPlainTypes(t *testing.T) {
	for _, name := range []string{"default", "malloc"} {
		cfg, err := fyvalue.ParseAllocatorConfig(name)
		require.NoError(t, err)
		require.Equal(t, name, cfg.Type)
		a, err := cfg.Build()
		require.NoError(t, err)
		require.NotNil(t, a)
	}
}

func TestParseAllocatorConfigLinearSize(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig("linear:size=16M")
	require.NoError(t, err)
	require.Equal(t, "linear", cfg.Type)
	require.Equal(t, 16<<20, cfg.Linear.Size)

	a, err := cfg.Build()
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestParseAllocatorConfigMremapIsItsOwnType(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig(
		"mremap:big_alloc_threshold=4M,empty_threshold=0.25,minimum_arena_size=16K," +
			"grow_ratio=2,balloon_ratio=1.5,arena_type=malloc")
	require.NoError(t, err)
	require.Equal(t, "mremap", cfg.Type)
	require.Equal(t, 4<<20, cfg.Mremap.BigAllocThreshold)
	require.Equal(t, 0.25, cfg.Mremap.EmptyThreshold)
	require.Equal(t, 16<<10, cfg.Mremap.MinimumArenaSize)
	require.Equal(t, 2.0, cfg.Mremap.GrowRatio)
	require.Equal(t, 1.5, cfg.Mremap.BalloonRatio)
	require.Equal(t, "malloc", cfg.Mremap.ArenaType)

	// "size" is a linear-only key; mremap takes minimum_arena_size instead.
	_, err = fyvalue.ParseAllocatorConfig("mremap:size=4M")
	require.Error(t, err)

	a, err := cfg.Build()
	require.NoError(t, err)
	require.NotNil(t, a)
	require.True(t, a.Caps().Has(arena.CapHasTags))
}

func TestParseAllocatorConfigMremapRejectsUnknownArenaType(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("mremap:arena_type=bogus")
	require.Error(t, err)
}

func TestParseAllocatorConfigDedupWithParent(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig("dedup:parent=linear,dedup_threshold=32")
	require.NoError(t, err)
	require.Equal(t, "dedup", cfg.Type)
	require.Equal(t, 32, cfg.Dedup.DedupThreshold)
	require.NotNil(t, cfg.DedupParent)
	require.Equal(t, "linear", cfg.DedupParent.Type)

	a, err := cfg.Build()
	require.NoError(t, err)
	require.NotNil(t, a)
	require.True(t, a.Caps().Has(arena.CapDedup))
}

func TestParseAllocatorConfigDedupWithMremapParent(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig("dedup:parent=mremap,dedup_threshold=32,bucket_count_bits=10")
	require.NoError(t, err)
	require.Equal(t, "dedup", cfg.Type)
	require.Equal(t, 32, cfg.Dedup.DedupThreshold)
	require.Equal(t, 10, cfg.Dedup.BucketCountBits)
	require.NotNil(t, cfg.DedupParent)
	require.Equal(t, "mremap", cfg.DedupParent.Type)

	a, err := cfg.Build()
	require.NoError(t, err)
	require.True(t, a.Caps().Has(arena.CapDedup))
}

func TestParseAllocatorConfigAutoScenario(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig("auto:scenario=single_linear,estimated_max_size=100M")
	require.NoError(t, err)
	require.Equal(t, arena.ScenarioSingleLinear, cfg.Auto.Scenario)
	require.Equal(t, 100<<20, cfg.Auto.EstimatedMaxSize)

	a, err := cfg.Build()
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestParseAllocatorConfigAutoDedupScenarioWraps(t *testing.T) {
	cfg, err := fyvalue.ParseAllocatorConfig("auto:scenario=per_obj_free_dedup")
	require.NoError(t, err)
	a, err := cfg.Build()
	require.NoError(t, err)
	require.True(t, a.Caps().Has(arena.CapDedup))
}

func TestParseAllocatorConfigRejectsUnknownType(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("nonsense")
	require.Error(t, err)
}

func TestParseAllocatorConfigRejectsUnknownParam(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("linear:bogus=1")
	require.Error(t, err)
}

func TestParseAllocatorConfigRejectsBadSizeSuffix(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("linear:size=16Q")
	require.Error(t, err)
}

func TestParseAllocatorConfigRejectsEmptyName(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("")
	require.Error(t, err)
}

func TestParseAllocatorConfigDefaultTakesNoParams(t *testing.T) {
	_, err := fyvalue.ParseAllocatorConfig("default:size=1")
	require.Error(t, err)
}

func TestNewBuilderFromConfigBuildsAndOwns(t *testing.T) {
	b, err := fyvalue.NewBuilderFromConfig("dedup:parent=malloc,dedup_threshold=1")
	require.NoError(t, err)
	defer b.Close()

	require.True(t, b.OwnsAllocator())
	a := b.String("hello")
	c := b.String("hello")
	require.Equal(t, a, c)
}

func TestNewBuilderFromConfigEstimatedMaxSizeFallsThroughOption(t *testing.T) {
	b, err := fyvalue.NewBuilderFromConfig("auto:scenario=single_linear", fyvalue.WithEstimatedMaxSize(1<<20))
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, int64(5), b.Int(5).AsInt(-1))
}
