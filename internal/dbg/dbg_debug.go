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

//go:build debug

package dbg

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/timandy/routine"
)

// Enabled is true when the "debug" build tag is set.
const Enabled = true

var (
	pattern   *regexp.Regexp
	nocapture = flag.Bool("fyvalue.nocapture", false, "disable capturing debug logs as test logs")

	testLogsMu sync.RWMutex
	testLogs   = map[int64]testing.TB{}
)

func init() {
	flag.Func("fyvalue.filter", "regexp to filter debug logs by", func(s string) (err error) {
		pattern, err = regexp.Compile(s)
		return err
	})
}

// WithTesting routes debug-build log output produced by the calling
// goroutine into t.Log for the duration of the returned function's
// lifetime; call the returned function (typically via defer) to stop.
func WithTesting(t testing.TB) func() {
	id := routine.Goid()
	testLogsMu.Lock()
	testLogs[id] = t
	testLogsMu.Unlock()

	return func() {
		testLogsMu.Lock()
		delete(testLogs, id)
		testLogsMu.Unlock()
	}
}

// Log prints debugging information, attributing it to the calling
// package/file/line and goroutine id. context, if non-empty, is a
// printf-style (format, args...) pair printed ahead of operation.
func Log(context []any, operation, format string, args ...any) {
	skip := 1
again:
	pc, file, line, _ := runtime.Caller(skip)
	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	if strings.HasPrefix(name, "log") || strings.Contains(name, "Log") {
		skip++
		goto again
	}

	pkg := fn.Name()
	pkg = strings.TrimPrefix(pkg, "github.com/fyvalue/fyvalue/")
	pkg = strings.TrimPrefix(pkg, "internal/")
	if idx := strings.Index(pkg, "."); idx >= 0 {
		pkg = pkg[:idx]
	}
	file = filepath.Base(file)

	id := routine.Goid()

	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, file, line, id)
	if len(context) >= 1 {
		fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...)
	}
	fmt.Fprintf(buf, "] %s: ", operation)
	fmt.Fprintf(buf, format, args...)

	if pattern != nil && !pattern.MatchString(buf.String()) {
		return
	}

	testLogsMu.RLock()
	t := testLogs[id]
	testLogsMu.RUnlock()

	if !*nocapture && t != nil {
		t.Log(buf.String())
		return
	}

	buf.WriteByte('\n')
	os.Stderr.WriteString(buf.String())
}

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("fyvalue: internal assertion failed: "+format, args...))
	}
}
