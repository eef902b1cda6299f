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

// Package xunsafe provides a more convenient interface for performing the
// unsafe pointer arithmetic that the arena allocator and the tagged value
// word need.
package xunsafe

import (
	"fmt"
	"sync"
	"unsafe"
)

const (
	PointerSize  = int(unsafe.Sizeof(uintptr(0)))
	PointerAlign = PointerSize
)

// Int is any integer type usable as an offset.
type Int interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 | uintptr
}

// Layout returns the size and alignment of T.
func Layout[T any]() (size, align int) {
	var z T
	return int(unsafe.Sizeof(z)), int(unsafe.Alignof(z))
}

// Cast reinterprets a pointer to From as a pointer to To.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// Add adds n elements worth of offset to p.
func Add[P ~*E, E any, I Int](p P, n I) P {
	size, _ := Layout[E]()
	return P(unsafe.Add(unsafe.Pointer(p), uintptr(size)*uintptr(n)))
}

// Sub returns the number of elements of E between p1 and p2.
func Sub[P ~*E, E any](p1, p2 P) int {
	size, _ := Layout[E]()
	return int(uintptr(unsafe.Pointer(p1))-uintptr(unsafe.Pointer(p2))) / size
}

// ByteAdd adds n bytes of offset to p, without scaling by sizeof(E).
func ByteAdd[P ~*E, E any, I Int](p P, n I) P {
	return P(unsafe.Add(unsafe.Pointer(p), uintptr(n)))
}

// ByteLoad loads a T at the given byte offset from p.
func ByteLoad[T any, P ~*E, E any, I Int](p P, n I) T {
	return *Cast[T](ByteAdd(p, n))
}

// ByteStore stores v at the given byte offset from p.
func ByteStore[T any, P ~*E, E any, I Int](p P, n I, v T) {
	*Cast[T](ByteAdd(p, n)) = v
}

// Load loads the nth element of E starting at p.
func Load[P ~*E, E any, I Int](p P, n I) E {
	return *Add(p, n)
}

// Store stores v at the nth element of E starting at p.
func Store[P ~*E, E any, I Int](p P, n I, v E) {
	*Add(p, n) = v
}

// Slice builds a []E of the given length starting at p.
func Slice[P ~*E, E any, I Int](p P, length I) []E {
	return Slice2(p, length, length)
}

// Slice2 is like Slice but allows specifying length and capacity separately.
func Slice2[P ~*E, E any, I Int](p P, length, cap I) []E {
	return unsafe.Slice(p, cap)[:length]
}

// Bytes reinterprets *E as its raw byte representation.
func Bytes[P ~*E, E any](p P) []byte {
	size, _ := Layout[E]()
	return Slice(Cast[byte](p), size)
}

// Copy copies n elements of E from src to dst.
func Copy[P ~*E, E any, I Int](dst, src P, n I) {
	copy(Slice(dst, n), Slice(src, n))
}

// Clear zeroes n elements of E starting at p.
func Clear[P ~*E, E any, I Int](p P, n I) {
	clear(Slice(p, n))
}

// AnyData extracts the data pointer from an interface value.
func AnyData(v any) *byte {
	type iface struct {
		_    uintptr
		data *byte
	}
	return Cast[iface](&v).data
}

// Addr is a typed raw address. Holding an Addr, unlike a pointer, does not
// keep the pointee alive and generates no write barriers when stored.
type Addr[T any] uintptr

// AddrOf returns the address of p.
func AddrOf[P ~*E, E any](p P) Addr[E] {
	return Addr[E](unsafe.Pointer(p))
}

// AssertValid reinterprets this address as a live pointer. The caller is
// responsible for ensuring the pointee is still reachable by some other
// means (e.g. an owning arena).
//
//go:nosplit
func (a Addr[T]) AssertValid() *T {
	return (*T)(unsafe.Pointer(a))
}

// Add adds n elements of offset to this address.
func (a Addr[T]) Add(n int) Addr[T] {
	size, _ := Layout[T]()
	return a + Addr[T](n*size)
}

// Sub returns the number of elements of T between a and b.
func (a Addr[T]) Sub(b Addr[T]) int {
	size, _ := Layout[T]()
	return int(a-b) / size
}

// Misalign returns the byte offsets to the previous and next align-aligned
// addresses. align must be a power of two.
func (a Addr[T]) Misalign(align int) (prev, next int) {
	addr := int(a)
	prev = addr & (align - 1)
	next = (align - addr) & (align - 1)
	return prev, next
}

// Format implements fmt.Formatter.
func (a Addr[T]) Format(state fmt.State, verb rune) {
	if verb == 'v' {
		fmt.Fprintf(state, "%#x", uintptr(a))
		return
	}
	fmt.Fprintf(state, fmt.FormatString(state, verb), uintptr(a))
}

// VLA models a variable-length array following some struct, used to lay out
// sequence/mapping records as a fixed header plus N inline entries.
type VLA[T any] [0]T

// Beyond obtains the VLA immediately following a value of type Header at p,
// respecting T's alignment.
func Beyond[T, Header any](p *Header) *VLA[T] {
	size, _ := Layout[Header]()
	_, align := Layout[T]()
	size = (size + align - 1) &^ (align - 1)
	return Cast[VLA[T]](ByteAdd(p, size))
}

// Get returns a pointer to the nth element of this array.
func (a *VLA[T]) Get(n int) *T {
	return Add(Cast[T](a), n)
}

// Slice converts this VLA into a slice of the given length.
func (a *VLA[T]) Slice(n int) []T {
	return unsafe.Slice(a.Get(0), n)
}

// NoCopy causes `go vet` to flag types that embed it if they are copied,
// by way of the copylocks check recognizing the embedded sync.Mutex.
type NoCopy [0]sync.Mutex
