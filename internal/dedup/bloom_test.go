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

package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomNeverFalseNegative(t *testing.T) {
	b := newBloom(1<<12, 4)
	hashes := make([]hash, 50)
	for i := range hashes {
		hashes[i] = hashBytes([]byte{byte(i), byte(i * 7), byte(i * 13)})
		b.add(hashes[i])
	}
	for _, h := range hashes {
		require.True(t, b.maybeContains(h))
	}
}

func TestBloomResetClearsState(t *testing.T) {
	b := newBloom(1<<10, 3)
	h := hashBytes([]byte("present"))
	b.add(h)
	require.True(t, b.maybeContains(h))
	b.reset()
	require.False(t, b.maybeContains(h))
}
