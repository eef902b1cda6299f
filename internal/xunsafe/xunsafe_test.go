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

package xunsafe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyvalue/fyvalue/internal/xunsafe"
)

func TestAddrRoundTrip(t *testing.T) {
	xs := []int64{1, 2, 3, 4}
	p := &xs[0]
	addr := xunsafe.AddrOf(p)

	require.Equal(t, p, addr.AssertValid())
	require.Equal(t, int64(2), *addr.Add(1).AssertValid())
}

func TestSliceRoundTrip(t *testing.T) {
	backing := make([]int32, 8)
	for i := range backing {
		backing[i] = int32(i * i)
	}

	s := xunsafe.Slice2(&backing[0], 4, 8)
	require.Len(t, s, 4)
	require.Equal(t, int32(9), s[3])
}

type header struct {
	n int32
}

func TestVLA(t *testing.T) {
	buf := make([]byte, 64)
	h := xunsafe.Cast[header](&buf[0])
	h.n = 3

	vla := xunsafe.Beyond[int64](h)
	for i := range 3 {
		*vla.Get(i) = int64(i + 1)
	}

	s := vla.Slice(3)
	require.Equal(t, []int64{1, 2, 3}, s)
}
