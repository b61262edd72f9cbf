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

import (
	"github.com/google/go-cmp/cmp"
)

// Known clause kinds of a bool compound query.
const (
	Filter  = "filter"
	Must    = "must"
	MustNot = "must_not"
	Should  = "should"
)

// Clause is a keyed group of predicate fragments. A fragment is an opaque value,
// usually a native query map such as {"term": {"status": "active"}} or an AST node.
type Clause struct {
	key     string
	values  []interface{}
	options map[string]interface{}
}

func New(key string, values ...interface{}) *Clause {
	return NewWithOptions(key, nil, values...)
}

func NewWithOptions(key string, options map[string]interface{}, values ...interface{}) *Clause {
	return &Clause{
		key:     key,
		values:  append([]interface{}{}, values...),
		options: copyOptions(options),
	}
}

func (c *Clause) Key() string {
	return c.key
}

// Values returns a copy of the clause fragments in insertion order.
func (c *Clause) Values() []interface{} {
	return append([]interface{}{}, c.values...)
}

func (c *Clause) Options() map[string]interface{} {
	return copyOptions(c.options)
}

func (c *Clause) Len() int {
	return len(c.values)
}

func (c *Clause) IsEmpty() bool {
	return len(c.values) == 0
}

// Add appends the fragments of other. Options of other win on conflicting keys.
func (c *Clause) Add(other *Clause) *Clause {
	values := make([]interface{}, 0, len(c.values)+len(other.values))
	values = append(values, c.values...)
	values = append(values, other.values...)

	return &Clause{
		key:     c.key,
		values:  values,
		options: mergeOptions(c.options, other.options),
	}
}

// Sub removes every fragment that is equal by value to one of other's fragments.
func (c *Clause) Sub(other *Clause) *Clause {
	var values []interface{}
	for _, v := range c.values {
		if !contains(other.values, v) {
			values = append(values, v)
		}
	}

	return &Clause{
		key:     c.key,
		values:  values,
		options: copyOptions(c.options),
	}
}

// Or unions the fragments of both clauses without repeating equal fragments.
func (c *Clause) Or(other *Clause) *Clause {
	var values []interface{}
	for _, v := range c.values {
		if !contains(values, v) {
			values = append(values, v)
		}
	}
	for _, v := range other.values {
		if !contains(values, v) {
			values = append(values, v)
		}
	}

	return &Clause{
		key:     c.key,
		values:  values,
		options: mergeOptions(c.options, other.options),
	}
}

// Equal compares key and fragments, ignoring fragment order. Options are not part of a
// clause's identity.
func (c *Clause) Equal(other *Clause) bool {
	if other == nil || c.key != other.key || len(c.values) != len(other.values) {
		return false
	}
	matched := make([]bool, len(other.values))
	for _, v := range c.values {
		found := false
		for i, o := range other.values {
			if !matched[i] && cmp.Equal(v, o) {
				matched[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func contains(values []interface{}, value interface{}) bool {
	for _, v := range values {
		if cmp.Equal(v, value) {
			return true
		}
	}

	return false
}

func copyOptions(options map[string]interface{}) map[string]interface{} {
	if len(options) == 0 {
		return nil
	}

	result := make(map[string]interface{}, len(options))
	for k, v := range options {
		result[k] = v
	}

	return result
}

func mergeOptions(base, override map[string]interface{}) map[string]interface{} {
	result := copyOptions(base)
	if len(override) == 0 {
		return result
	}
	if result == nil {
		result = make(map[string]interface{}, len(override))
	}
	for k, v := range override {
		result[k] = v
	}

	return result
}
