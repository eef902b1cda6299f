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

import "github.com/fyvalue/fyvalue/internal/dedup"

// Options collects a Builder's construction-time configuration.
type Options struct {
	DedupEnabled     bool
	OwnsAllocator    bool
	SchemaAuto       bool
	ScopeLeader      bool
	EstimatedMaxSize int
	Dedup            dedup.Config
}

// BuilderOption is a configuration setting for NewBuilder.
type BuilderOption struct{ apply func(*Options) }

// WithDedup enables content-addressed interning of constructed values,
// using cfg to tune the dedup store's table sizing and threshold policy.
func WithDedup(cfg dedup.Config) BuilderOption {
	return BuilderOption{func(o *Options) { o.DedupEnabled = true; o.Dedup = cfg }}
}

// WithOwnsAllocator marks the builder as the owner of its allocator, as
// reported by OwnsAllocator. Close releases the builder's tag whether or not
// this is set, and does nothing further to the allocator.
func WithOwnsAllocator() BuilderOption {
	return BuilderOption{func(o *Options) { o.OwnsAllocator = true }}
}

// WithSchemaAuto sets the schema-auto policy bit. The core never reads this
// bit; it exists purely as an opaque pass-through flag for external
// collaborators (e.g. a schema-aware producer) to coordinate through.
func WithSchemaAuto(v bool) BuilderOption {
	return BuilderOption{func(o *Options) { o.SchemaAuto = v }}
}

// WithScopeLeader sets the scope-leader policy bit. Like SchemaAuto, this
// is opaque to the core and exists for external coordination only.
func WithScopeLeader(v bool) BuilderOption {
	return BuilderOption{func(o *Options) { o.ScopeLeader = v }}
}

// WithEstimatedMaxSize hints the size, in bytes, a builder's values are
// expected to occupy in total. Consulted only when the builder itself
// creates a bump allocator (see NewBuilderFromConfig, scenario
// single_linear); ignored otherwise.
func WithEstimatedMaxSize(n int) BuilderOption {
	return BuilderOption{func(o *Options) { o.EstimatedMaxSize = n }}
}
