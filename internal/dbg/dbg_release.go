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

//go:build !debug

package dbg

import "testing"

// Enabled is false in ordinary (non-debug) builds; the compiler eliminates
// every call site guarded by `if dbg.Enabled`.
const Enabled = false

// WithTesting is a no-op outside of debug builds.
func WithTesting(testing.TB) func() { return func() {} }

// Log is a no-op outside of debug builds.
func Log(context []any, operation, format string, args ...any) {}

// Assert is a no-op outside of debug builds.
func Assert(cond bool, format string, args ...any) {}
