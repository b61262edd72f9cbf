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

package ast

// Helpers used by the relation layer and tests to build trees tersely.

func NewTable(name string) *Table {
	return &Table{Name: name}
}

func (t *Table) Attr(name string) *Attribute {
	return &Attribute{Relation: t, Name: name}
}

func Attr(name string) *Attribute {
	return &Attribute{Name: name}
}

func Value(v interface{}) *Quoted {
	return &Quoted{Value: v}
}

func Values(vs ...interface{}) []Node {
	nodes := make([]Node, 0, len(vs))
	for _, v := range vs {
		nodes = append(nodes, Value(v))
	}

	return nodes
}

func Eq(field string, v interface{}) *Equality {
	return &Equality{Left: Attr(field), Right: valueNode(v)}
}

func NotEq(field string, v interface{}) *NotEqual {
	return &NotEqual{Left: Attr(field), Right: valueNode(v)}
}

func valueNode(v interface{}) Node {
	if v == nil {
		return nil
	}
	if n, ok := v.(Node); ok {
		return n
	}

	return Value(v)
}
