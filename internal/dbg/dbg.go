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

// Package dbg provides debug-build-only logging and assertions for the
// arena, dedup, and pool internals. Log and Assert do nothing unless the
// binary is built with the "debug" tag: the core never logs in ordinary
// operation. The Formatter helpers in this file are compiled in either way.
package dbg

import "fmt"

// Formatter is an fmt.Formatter built from a closure, used to defer
// formatting work until (if ever) a log line is actually rendered.
type Formatter func(s fmt.State)

// Format implements fmt.Formatter.
func (f Formatter) Format(s fmt.State, verb rune) {
	if verb != 'v' {
		fmt.Fprintf(s, "%%%c(unsupported)", verb)
		return
	}
	f(s)
}

// String implements fmt.Stringer.
func (f Formatter) String() string { return fmt.Sprint(f) }

// Fprintf defers formatting until the returned Formatter is printed.
func Fprintf(format string, args ...any) Formatter {
	return Formatter(func(s fmt.State) { fmt.Fprintf(s, format, args...) })
}

// Dict pretty-prints key/value pairs as a dictionary literal, skipping any
// pair whose value is nil.
func Dict(prefix any, kv ...any) Formatter {
	return Formatter(func(s fmt.State) {
		if len(kv)%2 != 0 {
			panic("dbg: Dict requires an even number of kv arguments")
		}
		if prefix == nil {
			prefix = ""
		}

		first := true
		fmt.Fprintf(s, "%v{", prefix)
		for i := range len(kv) / 2 {
			k, v := kv[2*i], kv[2*i+1]
			if v == nil {
				continue
			}
			if !first {
				fmt.Fprint(s, ", ")
			}
			first = false
			fmt.Fprintf(s, "%v: %v", k, v)
		}
		fmt.Fprint(s, "}")
	})
}
