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

import "fmt"

// Scenario names a workload shape from the allocator selection table; it
// drives which concrete Allocator Auto instantiates.
type Scenario string

const (
	ScenarioPerTagFree         Scenario = "per_tag_free"
	ScenarioPerTagFreeDedup    Scenario = "per_tag_free_dedup"
	ScenarioPerObjFree         Scenario = "per_obj_free"
	ScenarioPerObjFreeDedup    Scenario = "per_obj_free_dedup"
	ScenarioSingleLinear       Scenario = "single_linear"
	ScenarioSingleLinearDedup  Scenario = "single_linear_dedup"
)

// NeedsDedup reports whether s names one of the "_dedup" scenarios, whose
// composition requires wrapping the base allocator with a dedup store. The
// dedup store itself lives one layer up (internal/dedup imports this
// package, so this package cannot import it back); callers that need the
// dedup-wrapped scenarios construct Base and then wrap it themselves.
func (s Scenario) NeedsDedup() bool {
	switch s {
	case ScenarioPerTagFreeDedup, ScenarioPerObjFreeDedup, ScenarioSingleLinearDedup:
		return true
	default:
		return false
	}
}

// Base returns the underlying (non-dedup) allocator for scenario s, per the
// §6.4 selection table. estimatedMaxSize sizes the bump arena chosen for the
// single_linear scenarios; it is ignored by the other scenarios.
func Base(s Scenario, estimatedMaxSize int) (Allocator, error) {
	switch s {
	case ScenarioPerTagFree, ScenarioPerTagFreeDedup:
		return NewGrowable(GrowableOptions{}), nil
	case ScenarioPerObjFree, ScenarioPerObjFreeDedup:
		return NewMalloc(0), nil
	case ScenarioSingleLinear, ScenarioSingleLinearDedup:
		return NewBump(estimatedMaxSize), nil
	default:
		return nil, fmt.Errorf("%w: unknown scenario %q", ErrInvalidArgument, s)
	}
}
