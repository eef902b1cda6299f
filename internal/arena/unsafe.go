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

import "github.com/fyvalue/fyvalue/internal/xunsafe"

// ptrDiff returns p - base, in bytes. Used by chunk.contains to test
// whether a pointer falls within [base, base+len).
func ptrDiff(p, base *byte) int {
	return xunsafe.Sub[*byte, byte](p, base)
}

// unsafeBytes reinterprets p as the start of a []byte of the given length.
func unsafeBytes(p *byte, length int) []byte {
	return xunsafe.Slice[*byte, byte](p, length)
}

// xunsafeNoCopy embeds xunsafe.NoCopy so go vet's copylocks check flags any
// allocator that gets copied by value instead of passed by pointer.
type xunsafeNoCopy = xunsafe.NoCopy
