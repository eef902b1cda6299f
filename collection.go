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
	"context"

	"github.com/fyvalue/fyvalue/internal/pool"
)

// Map returns a new sequence of the same length as seq, with each element
// replaced by fn's result.
func (b *Builder) Map(seq Value, fn func(Value) Value) Value {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.Map", ErrInvalidArgument, nil)
	}
	n := seq.length()
	elems := make([]Value, n)
	for i := range n {
		elems[i] = fn(seq.At(i))
	}
	return b.Sequence(elems)
}

// Filter returns a new sequence containing only the elements of seq for
// which pred returns true, preserving their relative order.
func (b *Builder) Filter(seq Value, pred func(Value) bool) Value {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.Filter", ErrInvalidArgument, nil)
	}
	n := seq.length()
	elems := make([]Value, 0, n)
	for i := range n {
		v := seq.At(i)
		if pred(v) {
			elems = append(elems, v)
		}
	}
	return b.Sequence(elems)
}

// Reduce folds fn over seq's elements left to right, starting from init,
// and returns the accumulated value. It does not allocate through b unless
// fn itself does.
func (b *Builder) Reduce(seq Value, init Value, fn func(acc, elem Value) Value) Value {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.Reduce", ErrInvalidArgument, nil)
	}
	acc := init
	n := seq.length()
	for i := range n {
		acc = fn(acc, seq.At(i))
	}
	return acc
}

// Concat returns a new sequence of length len(x)+len(y) containing x's
// elements followed by y's.
func (b *Builder) Concat(x, y Value) Value {
	if x.Kind() != KindSequence || y.Kind() != KindSequence {
		return b.fail("Builder.Concat", ErrInvalidArgument, nil)
	}
	nx, ny := x.length(), y.length()
	elems := make([]Value, nx+ny)
	for i := range nx {
		elems[i] = x.At(i)
	}
	for i := range ny {
		elems[nx+i] = y.At(i)
	}
	return b.Sequence(elems)
}

// PMap is the parallel variant of Map: fn is applied to seq's elements
// concurrently via p, one short-lived sub-builder per worker (see the
// Builder's thread-safety documentation), merged into the result sequence
// by b once every element has been transformed. check, if non-nil, is
// consulted per index; elements it rejects run inline on the calling
// goroutine instead of being dispatched to a worker.
func (b *Builder) PMap(ctx context.Context, p *pool.Pool, seq Value, check pool.CheckFunc, fn func(*Builder, Value) Value) (Value, error) {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.PMap", ErrInvalidArgument, nil), nil
	}
	n := seq.length()
	elems := make([]Value, n)
	err := p.Join(ctx, n, check, func(ctx context.Context, i int) error {
		elems[i] = fn(b.sub(), seq.At(i))
		return nil
	})
	if err != nil {
		return b.fail("Builder.PMap", ErrWorkerFailure, err), err
	}
	return b.Sequence(elems), nil
}

// PFilter is the parallel variant of Filter: pred is evaluated concurrently
// via p, one short-lived sub-builder per worker; the surviving elements are
// collected into the result sequence by b in seq's original order once
// every element has been evaluated. check behaves as in PMap.
func (b *Builder) PFilter(ctx context.Context, p *pool.Pool, seq Value, check pool.CheckFunc, pred func(*Builder, Value) bool) (Value, error) {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.PFilter", ErrInvalidArgument, nil), nil
	}
	n := seq.length()
	keep := make([]bool, n)
	err := p.Join(ctx, n, check, func(ctx context.Context, i int) error {
		keep[i] = pred(b.sub(), seq.At(i))
		return nil
	})
	if err != nil {
		return b.fail("Builder.PFilter", ErrWorkerFailure, err), err
	}
	elems := make([]Value, 0, n)
	for i := range n {
		if keep[i] {
			elems = append(elems, seq.At(i))
		}
	}
	return b.Sequence(elems), nil
}
