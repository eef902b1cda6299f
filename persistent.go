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

// Assoc returns a new mapping equal to m with key bound to val, replacing
// any prior binding for key in place. A new key is appended, preserving
// insertion order for every surviving entry. m itself is untouched; every
// entry other than the replaced one is shared with the result.
func (b *Builder) Assoc(m Value, key, val Value) Value {
	if m.Kind() != KindMapping {
		return b.fail("Builder.Assoc", ErrInvalidArgument, nil)
	}
	n := m.length()
	pairs := make([]KV, 0, n+1)
	replaced := false
	walkMapPairs(m, func(k, v Value) {
		if !replaced && valuesEqual(k, key) {
			pairs = append(pairs, KV{key, val})
			replaced = true
			return
		}
		pairs = append(pairs, KV{k, v})
	})
	if !replaced {
		pairs = append(pairs, KV{key, val})
	}
	return b.Mapping(pairs)
}

// Dissoc returns a new mapping equal to m with key removed, if present.
// Order of the surviving entries is preserved.
func (b *Builder) Dissoc(m Value, key Value) Value {
	if m.Kind() != KindMapping {
		return b.fail("Builder.Dissoc", ErrInvalidArgument, nil)
	}
	n := m.length()
	pairs := make([]KV, 0, n)
	walkMapPairs(m, func(k, v Value) {
		if valuesEqual(k, key) {
			return
		}
		pairs = append(pairs, KV{k, v})
	})
	return b.Mapping(pairs)
}

// Get looks up key in m, returning def if m is not a mapping or key is
// absent. It is a package-level wrapper around Value.Get for symmetry with
// Assoc/Dissoc/Append.
func Get(m Value, key Value, def Value) Value {
	return m.Get(key, def)
}

// Append returns a new sequence equal to seq with val appended as its new
// last element.
func (b *Builder) Append(seq Value, val Value) Value {
	if seq.Kind() != KindSequence {
		return b.fail("Builder.Append", ErrInvalidArgument, nil)
	}
	n := seq.length()
	elems := make([]Value, n+1)
	for i := range n {
		elems[i] = seq.At(i)
	}
	elems[n] = val
	return b.Sequence(elems)
}

// Path is one step of a path passed to Update: either a sequence index or a
// mapping key.
type Path struct {
	Index int   // used when Key is the invalid value
	Key   Value // used when valid; takes precedence over Index
}

// Index returns a Path step addressing a sequence element.
func Index(i int) Path { return Path{Index: i, Key: invalidValue} }

// Key returns a Path step addressing a mapping entry.
func Key(k Value) Path { return Path{Key: k} }

// Update applies fn to the value reached by walking path from coll,
// rebuilding only the spine of containers from the root down to that leaf;
// every sibling subtree is shared unchanged with the original. If any step
// of path fails to resolve (wrong container kind, out-of-range index,
// absent key), Update returns coll unchanged.
func (b *Builder) Update(coll Value, path []Path, fn func(Value) Value) Value {
	if len(path) == 0 {
		return fn(coll)
	}
	step := path[0]
	switch {
	case step.Key.IsValid():
		if coll.Kind() != KindMapping {
			return coll
		}
		child := coll.Get(step.Key, invalidValue)
		if !child.IsValid() {
			return coll
		}
		updated := b.Update(child, path[1:], fn)
		return b.Assoc(coll, step.Key, updated)
	default:
		if coll.Kind() != KindSequence {
			return coll
		}
		n := coll.length()
		if step.Index < 0 || step.Index >= n {
			return coll
		}
		child := coll.At(step.Index)
		updated := b.Update(child, path[1:], fn)
		elems := make([]Value, n)
		for i := range n {
			if i == step.Index {
				elems[i] = updated
			} else {
				elems[i] = coll.At(i)
			}
		}
		return b.Sequence(elems)
	}
}

// walkMapPairs calls f for every (key, value) entry of m, in storage order.
// m must be a mapping.
func walkMapPairs(m Value, f func(k, v Value)) {
	n := m.length()
	if n == 0 {
		return
	}
	hdr := m.addr().AssertValid()
	pairs := castMapPairs(hdr, n)
	for i := range n {
		f(pairs[i].key, pairs[i].val)
	}
}
