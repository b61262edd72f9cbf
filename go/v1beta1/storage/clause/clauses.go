// Copyright 2021 The Rode Authors
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

package clause

// Clauses maps a clause kind to exactly one Clause. Values are never mutated after
// construction, so a Clauses can be shared between relations spawned from each other.
type Clauses struct {
	keys    []string
	clauses map[string]*Clause
}

var empty = &Clauses{}

// Empty returns the shared empty tree.
func Empty() *Clauses {
	return empty
}

// NewClauses builds a tree by appending each clause in order.
func NewClauses(clauses ...*Clause) *Clauses {
	result := Empty()
	for _, c := range clauses {
		result = result.Append(c)
	}

	return result
}

func (cs *Clauses) Len() int {
	return len(cs.keys)
}

func (cs *Clauses) IsEmpty() bool {
	return len(cs.keys) == 0
}

// Keys returns the clause kinds in the order they were first added.
func (cs *Clauses) Keys() []string {
	return append([]string{}, cs.keys...)
}

func (cs *Clauses) Get(key string) (*Clause, bool) {
	c, ok := cs.clauses[key]
	return c, ok
}

func (cs *Clauses) Each(fn func(c *Clause)) {
	for _, k := range cs.keys {
		fn(cs.clauses[k])
	}
}

// Append adds the fragments of c under its key, creating the key if needed.
func (cs *Clauses) Append(c *Clause) *Clauses {
	if c == nil {
		return cs
	}

	return cs.with(c.key, func(existing *Clause) *Clause {
		if existing == nil {
			return NewWithOptions(c.key, c.options, c.values...)
		}

		return existing.Add(c)
	})
}

// Remove removes the fragments of c from its key. The key is dropped once it holds no
// fragments.
func (cs *Clauses) Remove(c *Clause) *Clauses {
	if c == nil {
		return cs
	}
	if _, ok := cs.clauses[c.key]; !ok {
		return cs
	}

	return cs.with(c.key, func(existing *Clause) *Clause {
		return existing.Sub(c)
	})
}

// Union adds the fragments of c under its key, skipping fragments already present.
func (cs *Clauses) Union(c *Clause) *Clauses {
	if c == nil {
		return cs
	}

	return cs.with(c.key, func(existing *Clause) *Clause {
		if existing == nil {
			return NewWithOptions(c.key, c.options).Or(c)
		}

		return existing.Or(c)
	})
}

// Merge appends every clause of other.
func (cs *Clauses) Merge(other *Clauses) *Clauses {
	result := cs
	other.Each(func(c *Clause) {
		result = result.Append(c)
	})

	return result
}

func (cs *Clauses) Equal(other *Clauses) bool {
	if other == nil || len(cs.keys) != len(other.keys) {
		return false
	}
	for _, k := range cs.keys {
		o, ok := other.clauses[k]
		if !ok || !cs.clauses[k].Equal(o) {
			return false
		}
	}

	return true
}

func (cs *Clauses) with(key string, update func(existing *Clause) *Clause) *Clauses {
	updated := update(cs.clauses[key])

	result := &Clauses{
		clauses: make(map[string]*Clause, len(cs.clauses)+1),
	}
	for _, k := range cs.keys {
		if k == key {
			continue
		}
		result.keys = append(result.keys, k)
		result.clauses[k] = cs.clauses[k]
	}

	if updated != nil && !updated.IsEmpty() {
		result.keys = insertKey(result.keys, cs.keys, key)
		result.clauses[key] = updated
	}

	if len(result.keys) == 0 {
		return Empty()
	}

	return result
}

// insertKey places key back at its original position when it existed before.
func insertKey(keys, original []string, key string) []string {
	position := -1
	for i, k := range original {
		if k == key {
			position = i
			break
		}
	}
	if position == -1 || position >= len(keys) {
		return append(keys, key)
	}

	keys = append(keys, "")
	copy(keys[position+1:], keys[position:])
	keys[position] = key

	return keys
}
