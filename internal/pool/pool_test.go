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

package pool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyvalue/fyvalue/internal/pool"
)

func TestNewRejectsNegativeThreads(t *testing.T) {
	_, err := pool.New(pool.Config{NumThreads: -1})
	require.Error(t, err)
}

func TestNewDefaultsPoolSize(t *testing.T) {
	p, err := pool.New(pool.Config{})
	require.NoError(t, err)
	require.Greater(t, p.Size(), 0)
}

func TestJoinRunsEveryItem(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 4, StealMode: true})
	require.NoError(t, err)

	var count atomic.Int64
	err = p.Join(context.Background(), 100, nil, func(ctx context.Context, i int) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 100, count.Load())
}

func TestJoinHonorsWorkCheckPredicate(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 4, StealMode: true})
	require.NoError(t, err)

	var inlineCount atomic.Int64
	check := func(i int) bool { return i%2 == 0 } // odd indices run inline

	err = p.Join(context.Background(), 10, check, func(ctx context.Context, i int) error {
		if i%2 != 0 {
			inlineCount.Add(1)
		}
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, inlineCount.Load())
}

func TestJoinRunsEveryItemDespiteErrors(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 4, StealMode: true})
	require.NoError(t, err)

	var ran atomic.Int64
	err = p.Join(context.Background(), 20, nil, func(ctx context.Context, i int) error {
		ran.Add(1)
		if i == 5 {
			return errors.New("boom")
		}
		return nil
	})
	require.Error(t, err)
	require.EqualValues(t, 20, ran.Load())
}

func TestJoinStealModeFalseRunsSynchronouslyOnCaller(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 4})
	require.NoError(t, err)
	require.False(t, p.StealMode())

	// A plain, unsynchronized counter is safe here only because Join with
	// StealMode false never spawns a goroutine for the work items.
	count := 0
	err = p.Join(context.Background(), 50, nil, func(ctx context.Context, i int) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 50, count)
}

func TestJoinStealModeFalseStillReportsErrors(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 4})
	require.NoError(t, err)

	var ran atomic.Int64
	err = p.Join(context.Background(), 20, nil, func(ctx context.Context, i int) error {
		ran.Add(1)
		if i == 5 {
			return errors.New("boom")
		}
		return nil
	})
	require.Error(t, err)
	require.EqualValues(t, 20, ran.Load())
}

func TestPoolAndThreadExposeUserdata(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 1, Userdata: "marker"})
	require.NoError(t, err)
	require.Equal(t, "marker", p.Userdata())

	th, err := p.Reserve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "marker", th.Userdata())
	th.Unreserve()
}

func TestReservationModeRoundTrip(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 2})
	require.NoError(t, err)

	th, err := p.Reserve(context.Background())
	require.NoError(t, err)

	var ran atomic.Bool
	th.SubmitWork(func() error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, th.WaitWork())
	require.True(t, ran.Load())
	th.Unreserve()
}

func TestReserveBlocksWhenExhausted(t *testing.T) {
	p, err := pool.New(pool.Config{NumThreads: 1})
	require.NoError(t, err)

	th, err := p.Reserve(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Reserve(ctx)
	require.Error(t, err)

	th.Unreserve()
}
