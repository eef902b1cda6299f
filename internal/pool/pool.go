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

// Package pool implements the two thread-pool execution modes the
// collection operations build on: reservation mode, where a caller reserves
// a single worker and submits one item of work to it, and work-stealing
// mode, where a batch of work items is run via a single Join call. Join
// starts one goroutine per offloaded item (at most Size() at a time); there
// is no shared queue that idle workers pull from.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fyvalue/fyvalue/internal/dbg"
	"github.com/fyvalue/fyvalue/internal/sync2"
	"github.com/fyvalue/fyvalue/internal/xsync"
)

// CheckFunc decides, for a given work item index, whether it is worth
// offloading to a worker goroutine at all; returning false runs that item
// inline on the caller, avoiding dispatch overhead for trivial work.
type CheckFunc func(index int) bool

// Pool is a process-local pool of workers supporting both reservation-mode
// and work-stealing execution, per the concurrency model's thread-pool
// component.
type Pool struct {
	sem       *semaphore.Weighted
	size      int
	stealMode bool
	userdata  any

	reserved xsync.Set[*Thread]
	handles  sync2.Pool[Thread]
}

// Config configures a Pool, per spec.md §6.3:
// "{steal_mode: bool, num_threads: uint (0 = auto), userdata: opaque}".
type Config struct {
	// NumThreads is the pool size; zero selects (online CPUs * 3 / 2).
	NumThreads int
	// StealMode selects Join's dispatch strategy: true offloads each work
	// item to its own goroutine (no shared item list is drained), false
	// runs every item on the calling goroutine instead, matching the
	// original's FYTPCF_STEAL_MODE flag.
	StealMode bool
	// Userdata is an opaque value carried on the Pool (and every Thread
	// reserved from it) purely for external coordination; the pool itself
	// never reads it, the same way Builder carries SchemaAuto/ScopeLeader.
	Userdata any
}

// New creates a Pool. A NumThreads of zero selects a default pool size; a
// negative or explicitly-zero-after-defaulting size is rejected, matching
// the thread-pool configuration contract's "a pool of 0 threads is
// rejected" rule.
func New(cfg Config) (*Pool, error) {
	n := cfg.NumThreads
	if n == 0 {
		n = runtime.NumCPU() * 3 / 2
	}
	if n <= 0 {
		return nil, fmt.Errorf("pool: invalid thread count %d", cfg.NumThreads)
	}
	p := &Pool{
		sem:       semaphore.NewWeighted(int64(n)),
		size:      n,
		stealMode: cfg.StealMode,
		userdata:  cfg.Userdata,
	}
	p.handles.Reset = func(t *Thread) { t.pool = nil; t.err = nil }
	return p, nil
}

// Size returns the number of worker slots in this pool.
func (p *Pool) Size() int { return p.size }

// StealMode reports whether Join offloads work items to worker goroutines
// (true) or runs every item on the calling goroutine (false).
func (p *Pool) StealMode() bool { return p.stealMode }

// Userdata returns the opaque value this pool was configured with.
func (p *Pool) Userdata() any { return p.userdata }

// Thread is a single worker slot reserved from a Pool in reservation mode.
type Thread struct {
	pool *Pool
	drop func()
	wg   sync.WaitGroup
	err  error
}

// Reserve acquires a worker slot, blocking until one is free. The handle is
// drawn from a recycled pool of Thread structs (so repeated reserve/release
// cycles don't keep allocating), and the caller must eventually call
// Unreserve to return the slot.
func (p *Pool) Reserve(ctx context.Context) (*Thread, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	t, drop := p.handles.Get()
	t.pool = p
	t.drop = drop
	p.reserved.Store(t)
	return t, nil
}

// SubmitWork runs fn on a worker goroutine backed by t's reservation. Only
// one submission may be outstanding on a Thread at a time.
func (t *Thread) SubmitWork(fn func() error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.err = fn()
	}()
}

// WaitWork blocks until the most recently submitted work on t completes,
// returning its error, if any.
func (t *Thread) WaitWork() error {
	t.wg.Wait()
	return t.err
}

// Unreserve returns t's slot to the pool. t must not be used afterward.
func (t *Thread) Unreserve() {
	pool, drop := t.pool, t.drop
	pool.reserved.Delete(t)
	drop()
	pool.sem.Release(1)
}

// Userdata returns the opaque value of the pool t was reserved from.
func (t *Thread) Userdata() any { return t.pool.userdata }

// Join executes n work items, indices [0, n), via fn. check, if non-nil, is
// consulted per item; items for which it returns false always run inline on
// the calling goroutine, regardless of StealMode. Join is a
// cancellation-free barrier: it returns only once every item has run,
// propagating the first error encountered (if any) after every item has
// completed, per the "a failing work item... remaining items still run to
// completion" rule.
//
// When the pool's StealMode is false, every item runs inline on the caller
// (no goroutines are spawned at all); when true, each item not filtered out
// by check runs on its own goroutine, up to Size() concurrently, while the
// calling goroutine runs only the items check rejected.
func (p *Pool) Join(ctx context.Context, n int, check CheckFunc, fn func(ctx context.Context, index int) error) error {
	if n == 0 {
		return nil
	}

	if !p.stealMode {
		var firstErr error
		for i := range n {
			if err := fn(ctx, i); err != nil {
				dbg.Log(nil, "Pool.Join", "item %d failed (steal_mode=false): %v", i, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	}

	// A plain Group (not errgroup.WithContext) so that one item's error
	// does not cancel the context the other items receive.
	ctx = context.WithoutCancel(ctx)
	var grp errgroup.Group
	grp.SetLimit(p.size)

	for i := range n {
		if check != nil && !check(i) {
			if err := fn(ctx, i); err != nil {
				dbg.Log(nil, "Pool.Join", "inline item %d failed: %v", i, err)
				// Recorded via the errgroup below so that every item still
				// runs; a zero-cost no-op goroutine carries the error.
				grp.Go(func() error { return err })
			}
			continue
		}

		i := i
		grp.Go(func() error {
			return fn(ctx, i)
		})
	}

	return grp.Wait()
}
