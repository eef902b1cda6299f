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
	"fmt"
	"strconv"
	"strings"

	"github.com/fyvalue/fyvalue/internal/arena"
	"github.com/fyvalue/fyvalue/internal/dedup"
)

// AllocatorConfig is the parsed form of an allocator configuration string of
// the form "type[:key=value,key=value,...]", e.g. "linear:size=16M",
// "dedup:parent=linear,dedup_threshold=32", or
// "auto:scenario=single_linear,estimated_max_size=100M".
type AllocatorConfig struct {
	Type   string
	Linear LinearConfig
	Mremap MremapConfig
	Dedup  dedup.Config
	Auto   AutoConfig

	// DedupParent names the parent allocator type for a "dedup" config
	// ("malloc" by default), e.g. "dedup:parent=linear,dedup_threshold=32".
	// The parent is always built with its own defaults; a bare type name,
	// not a nested "key=value" config, same as the grammar this parser is
	// ported from.
	DedupParent *AllocatorConfig
}

// LinearConfig configures a bump ("linear") allocator.
type LinearConfig struct {
	Size int
}

// MremapConfig configures a growable ("mremap") allocator, per the key set
// of spec.md §6.2. Zero values select the underlying arena.Growable's own
// defaults.
type MremapConfig struct {
	BigAllocThreshold int
	EmptyThreshold    float64
	MinimumArenaSize  int
	GrowRatio         float64
	BalloonRatio      float64
	// ArenaType is one of "default", "malloc", "mmap".
	ArenaType string
}

// AutoConfig configures the Auto selector.
type AutoConfig struct {
	Scenario         arena.Scenario
	EstimatedMaxSize int
}

// ParseAllocatorConfig parses s per the grammar above. Recognized types are
// "default", "malloc", "linear" (bump arena), "mremap" (growable, multi-tag
// arena), "dedup", and "auto".
func ParseAllocatorConfig(s string) (AllocatorConfig, error) {
	name, params, _ := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return AllocatorConfig{}, fmt.Errorf("fyvalue: empty allocator name")
	}

	cfg := AllocatorConfig{Type: name}
	switch name {
	case "default", "malloc":
		if params != "" {
			return AllocatorConfig{}, fmt.Errorf("fyvalue: %s takes no parameters", name)
		}
	case "linear":
		lc, err := parseLinearConfig(params)
		if err != nil {
			return AllocatorConfig{}, err
		}
		cfg.Linear = lc
	case "mremap":
		mc, err := parseMremapConfig(params)
		if err != nil {
			return AllocatorConfig{}, err
		}
		cfg.Mremap = mc
	case "dedup":
		dc, parent, err := parseDedupConfig(params)
		if err != nil {
			return AllocatorConfig{}, err
		}
		cfg.Dedup = dc
		cfg.DedupParent = parent
	case "auto":
		ac, err := parseAutoConfig(params)
		if err != nil {
			return AllocatorConfig{}, err
		}
		cfg.Auto = ac
	default:
		return AllocatorConfig{}, fmt.Errorf("fyvalue: unknown allocator type %q (valid: default, malloc, linear, mremap, dedup, auto)", name)
	}
	return cfg, nil
}

// Build instantiates the allocator this config describes.
func (c AllocatorConfig) Build() (arena.Allocator, error) {
	switch c.Type {
	case "default", "malloc":
		return arena.NewMalloc(0), nil
	case "linear":
		return arena.NewBump(c.Linear.Size), nil
	case "mremap":
		return arena.NewGrowable(arena.GrowableOptions{
			MinExtentSize:     c.Mremap.MinimumArenaSize,
			GrowthRatio:       c.Mremap.GrowRatio,
			BigAllocThreshold: c.Mremap.BigAllocThreshold,
			EmptyThreshold:    c.Mremap.EmptyThreshold,
			BalloonRatio:      c.Mremap.BalloonRatio,
			ArenaType:         c.Mremap.ArenaType,
		}), nil
	case "dedup":
		parentCfg := c.DedupParent
		if parentCfg == nil {
			parentCfg = &AllocatorConfig{Type: "malloc"}
		}
		parent, err := parentCfg.Build()
		if err != nil {
			return nil, fmt.Errorf("fyvalue: dedup parent: %w", err)
		}
		return dedup.New(parent, c.Dedup), nil
	case "auto":
		base, err := arena.Base(c.Auto.Scenario, c.Auto.EstimatedMaxSize)
		if err != nil {
			return nil, err
		}
		if c.Auto.Scenario.NeedsDedup() {
			return dedup.New(base, dedup.Config{}), nil
		}
		return base, nil
	default:
		return nil, fmt.Errorf("fyvalue: unknown allocator type %q", c.Type)
	}
}

// NewBuilderFromConfig parses s as an allocator configuration string,
// builds the allocator it describes, and wraps it in a new Builder that
// owns that allocator (Close releases both the tag and, implicitly, the
// allocator's resources). If s selects the "auto" type with a
// single_linear* scenario and does not itself set estimated_max_size, the
// last WithEstimatedMaxSize option, if any, sizes the bump arena instead.
func NewBuilderFromConfig(s string, opts ...BuilderOption) (*Builder, error) {
	cfg, err := ParseAllocatorConfig(s)
	if err != nil {
		return nil, newError("NewBuilderFromConfig", ErrInvalidArgument, err)
	}

	var o Options
	for _, opt := range opts {
		opt.apply(&o)
	}
	if cfg.Type == "auto" && cfg.Auto.EstimatedMaxSize == 0 && o.EstimatedMaxSize > 0 {
		cfg.Auto.EstimatedMaxSize = o.EstimatedMaxSize
	}

	alloc, err := cfg.Build()
	if err != nil {
		return nil, newError("NewBuilderFromConfig", ErrInvalidArgument, err)
	}

	allOpts := append(append([]BuilderOption(nil), opts...), WithOwnsAllocator())
	return NewBuilder(alloc, allOpts...)
}

// splitParams tokenizes a "key=value,key=value" parameter string.
func splitParams(params string) []string {
	params = strings.TrimSpace(params)
	if params == "" {
		return nil
	}
	parts := strings.Split(params, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitKV(token string) (key, value string, ok bool) {
	k, v, found := strings.Cut(token, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

func parseLinearConfig(params string) (LinearConfig, error) {
	var lc LinearConfig
	for _, tok := range splitParams(params) {
		key, value, ok := splitKV(tok)
		if !ok {
			return LinearConfig{}, fmt.Errorf("fyvalue: invalid linear parameter (want key=value): %q", tok)
		}
		switch key {
		case "size":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return LinearConfig{}, fmt.Errorf("fyvalue: invalid size %q: %w", value, err)
			}
			lc.Size = n
		default:
			return LinearConfig{}, fmt.Errorf("fyvalue: unknown linear allocator parameter %q", key)
		}
	}
	return lc, nil
}

func parseMremapConfig(params string) (MremapConfig, error) {
	var mc MremapConfig
	for _, tok := range splitParams(params) {
		key, value, ok := splitKV(tok)
		if !ok {
			return MremapConfig{}, fmt.Errorf("fyvalue: invalid mremap parameter (want key=value): %q", tok)
		}
		switch key {
		case "big_alloc_threshold":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid big_alloc_threshold %q: %w", value, err)
			}
			mc.BigAllocThreshold = n
		case "empty_threshold":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid empty_threshold %q: %w", value, err)
			}
			mc.EmptyThreshold = f
		case "minimum_arena_size":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid minimum_arena_size %q: %w", value, err)
			}
			mc.MinimumArenaSize = n
		case "grow_ratio":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid grow_ratio %q: %w", value, err)
			}
			mc.GrowRatio = f
		case "balloon_ratio":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid balloon_ratio %q: %w", value, err)
			}
			mc.BalloonRatio = f
		case "arena_type":
			switch value {
			case "default", "malloc", "mmap":
			default:
				return MremapConfig{}, fmt.Errorf("fyvalue: invalid arena_type %q (valid: default, malloc, mmap)", value)
			}
			mc.ArenaType = value
		default:
			return MremapConfig{}, fmt.Errorf("fyvalue: unknown mremap allocator parameter %q", key)
		}
	}
	return mc, nil
}

func parseDedupConfig(params string) (dedup.Config, *AllocatorConfig, error) {
	dc := dedup.Config{}
	parentStr := "malloc"
	for _, tok := range splitParams(params) {
		key, value, ok := splitKV(tok)
		if !ok {
			return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid dedup parameter (want key=value): %q", tok)
		}
		switch key {
		case "parent":
			parentStr = value
		case "bloom_filter_bits":
			n, err := strconv.Atoi(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid bloom_filter_bits %q: %w", value, err)
			}
			dc.BloomBits = n
		case "bucket_count_bits":
			n, err := strconv.Atoi(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid bucket_count_bits %q: %w", value, err)
			}
			dc.BucketCountBits = n
		case "dedup_threshold":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid dedup_threshold %q: %w", value, err)
			}
			dc.DedupThreshold = n
		case "chain_length_grow_trigger":
			n, err := strconv.Atoi(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid chain_length_grow_trigger %q: %w", value, err)
			}
			dc.ChainLengthGrowTrigger = n
		case "minimum_bucket_occupancy":
			n, err := strconv.Atoi(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid minimum_bucket_occupancy %q: %w", value, err)
			}
			dc.MinOccupancy = n
		case "estimated_content_size":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return dedup.Config{}, nil, fmt.Errorf("fyvalue: invalid estimated_content_size %q: %w", value, err)
			}
			dc.EstimatedContentSize = n
		default:
			return dedup.Config{}, nil, fmt.Errorf("fyvalue: unknown dedup allocator parameter %q", key)
		}
	}
	switch parentStr {
	case "default", "malloc", "linear", "mremap":
	default:
		return dedup.Config{}, nil, fmt.Errorf("fyvalue: unknown dedup parent allocator type %q", parentStr)
	}
	parent := AllocatorConfig{Type: parentStr}
	return dc, &parent, nil
}

func parseAutoConfig(params string) (AutoConfig, error) {
	ac := AutoConfig{Scenario: arena.ScenarioPerTagFree}
	for _, tok := range splitParams(params) {
		key, value, ok := splitKV(tok)
		if !ok {
			return AutoConfig{}, fmt.Errorf("fyvalue: invalid auto parameter (want key=value): %q", tok)
		}
		switch key {
		case "scenario":
			switch value {
			case "per_tag_free":
				ac.Scenario = arena.ScenarioPerTagFree
			case "per_tag_free_dedup":
				ac.Scenario = arena.ScenarioPerTagFreeDedup
			case "per_obj_free":
				ac.Scenario = arena.ScenarioPerObjFree
			case "per_obj_free_dedup":
				ac.Scenario = arena.ScenarioPerObjFreeDedup
			case "single_linear", "single_linear_range":
				ac.Scenario = arena.ScenarioSingleLinear
			case "single_linear_dedup", "single_linear_range_dedup":
				ac.Scenario = arena.ScenarioSingleLinearDedup
			default:
				return AutoConfig{}, fmt.Errorf("fyvalue: invalid scenario %q (valid: per_tag_free, per_tag_free_dedup, per_obj_free, per_obj_free_dedup, single_linear, single_linear_dedup)", value)
			}
		case "estimated_max_size":
			n, err := parseSizeSuffix(value)
			if err != nil {
				return AutoConfig{}, fmt.Errorf("fyvalue: invalid estimated_max_size %q: %w", value, err)
			}
			ac.EstimatedMaxSize = n
		default:
			return AutoConfig{}, fmt.Errorf("fyvalue: unknown auto allocator parameter %q", key)
		}
	}
	return ac, nil
}

// parseSizeSuffix parses a size string with an optional K/M/G/T binary
// multiplier, an optional trailing 'B' (decimal-suffix spelling, treated
// identically to the bare letter) or 'i' (as in "Ki"), e.g. "1024", "16K",
// "4MB", "1Gi".
func parseSizeSuffix(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("no leading digits")
	}
	val, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return 0, err
	}

	rest := strings.TrimSpace(s[i:])
	multiplier := uint64(1)
	if rest != "" {
		switch rest[0] {
		case 'K', 'k':
			multiplier = 1 << 10
		case 'M', 'm':
			multiplier = 1 << 20
		case 'G', 'g':
			multiplier = 1 << 30
		case 'T', 't':
			multiplier = 1 << 40
		default:
			return 0, fmt.Errorf("invalid size suffix %q", rest)
		}
		rest = rest[1:]
		if rest != "" && (rest[0] == 'B' || rest[0] == 'b' || rest[0] == 'i') {
			rest = rest[1:]
		}
		rest = strings.TrimSpace(rest)
		if rest != "" {
			return 0, fmt.Errorf("trailing garbage %q", rest)
		}
	}

	total := val * multiplier
	if multiplier != 0 && total/multiplier != val {
		return 0, fmt.Errorf("size overflow")
	}
	return int(total), nil
}
