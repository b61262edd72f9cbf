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

package translator

import (
	"fmt"
	"sort"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/clause"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
)

var boolClauses = map[string]bool{
	clause.Filter:  true,
	clause.Must:    true,
	clause.MustNot: true,
	clause.Should:  true,
}

// keys a count request does not accept
var countExcludedKeys = []string{"sort", "size", "from", "_source", "aggs"}

func (v *visitor) visitSelectStatement(n *ast.SelectStatement) error {
	v.q.Type = query.KindSearch

	if n.Core == nil {
		return fmt.Errorf("%w: select statement without core", ErrInvalidTranslation)
	}
	if err := v.visit(n.Core); err != nil {
		return err
	}

	for _, order := range n.Orders {
		if err := v.visit(order); err != nil {
			return err
		}
	}

	if n.Limit != nil {
		if err := v.visit(n.Limit); err != nil {
			return err
		}
	}

	if n.Offset != nil {
		if err := v.visit(n.Offset); err != nil {
			return err
		}
	}

	if v.q.Type == query.KindCount {
		for _, key := range countExcludedKeys {
			v.q.Override(key, nil)
		}
	}

	return v.visitConfigures(n.Configures)
}

func (v *visitor) visitSelectCore(n *ast.SelectCore) error {
	if err := v.visitSource(n.Source); err != nil {
		return err
	}

	if err := v.visitQueries(n.Kind, n.Queries, n.Name); err != nil {
		return err
	}

	if len(n.Aggs) > 0 {
		var err error
		v.q.AssignBlock("aggs", func() {
			for _, agg := range n.Aggs {
				if err = v.visit(agg); err != nil {
					return
				}
			}
		})
		if err != nil {
			return err
		}
	}

	return v.visitProjections(n.Projections)
}

// visitQueries builds query.<kind> from the clause queries.
func (v *visitor) visitQueries(kind *ast.SelectKind, queries []*ast.SelectQuery, name string) error {
	v.kind = defaultKind
	var options map[string]interface{}
	if kind != nil {
		if kind.Name != "" {
			v.kind = kind.Name
		}
		options = kind.Options
	}

	var err error
	v.q.AssignBlock("query", func() {
		v.q.AssignBlock(v.kind, func() {
			for _, key := range sortedKeys(options) {
				v.q.Assign(key, options[key])
			}

			for _, sq := range queries {
				if err = v.visit(sq); err != nil {
					return
				}
			}

			if name != "" {
				v.q.Assign("_name", name)
			}
		})
	})

	return err
}

func (v *visitor) visitSelectQuery(n *ast.SelectQuery) error {
	if v.kind == defaultKind && !boolClauses[n.Clause] {
		return fmt.Errorf("%w: unknown clause %q for a bool query", ErrInvalidTranslation, n.Clause)
	}

	previous := v.clause
	v.clause = n.Clause
	defer func() {
		v.clause = previous
	}()

	for _, value := range n.Values {
		if node, ok := value.(ast.Node); ok {
			if err := v.visit(node); err != nil {
				return err
			}
			continue
		}

		v.emit(n.Clause, value)
	}

	for _, key := range sortedKeys(n.Options) {
		v.q.Assign(key, n.Options[key])
	}

	return nil
}

func (v *visitor) visitSelectAgg(n *ast.SelectAgg) error {
	if n.Name == "" {
		return fmt.Errorf("%w: aggregation without a name", ErrInvalidTranslation)
	}

	definition := map[string]interface{}{}
	for k, value := range n.Value {
		definition[k] = value
	}
	for k, value := range n.Options {
		definition[k] = value
	}

	v.q.Assign(n.Name, definition)

	return nil
}

func (v *visitor) visitProjections(projections []ast.Node) error {
	var columns []interface{}
	for _, projection := range projections {
		switch p := projection.(type) {
		case *ast.Attribute:
			if p.Name == ast.AllColumns {
				continue
			}
			columns = append(columns, p.Name)
		case *ast.Star:
		case ast.SQLLiteral:
			if string(p) != ast.AllColumns {
				columns = append(columns, string(p))
			}
		case *ast.Count:
			v.q.Type = query.KindCount
		default:
			return fmt.Errorf("%w: %T is not a valid projection", ErrUnsupportedNode, projection)
		}
	}

	if len(columns) == 0 {
		return nil
	}

	v.q.Assign("_source", columns)
	for _, c := range columns {
		v.q.Columns = append(v.q.Columns, c.(string))
	}

	return nil
}

func (v *visitor) visitOrder(node ast.Node) error {
	var fragment interface{}

	switch n := node.(type) {
	case *ast.Ascending:
		field, err := v.field(n.Expr)
		if err != nil {
			return err
		}
		fragment = sortFragment(field, "asc")
	case *ast.Descending:
		field, err := v.field(n.Expr)
		if err != nil {
			return err
		}
		fragment = sortFragment(field, "desc")
	case *ast.Sort:
		fragment = n.Value
	case *ast.RandomSort:
		fragment = randomSort()
	default:
		return fmt.Errorf("%w: %T is not a valid order", ErrUnsupportedNode, node)
	}

	v.q.Assign("sort", []interface{}{fragment})

	return nil
}

func sortFragment(field, direction string) interface{} {
	if field == ast.RandomField {
		return randomSort()
	}

	return map[string]interface{}{
		field: direction,
	}
}

func randomSort() map[string]interface{} {
	return map[string]interface{}{
		"_script": map[string]interface{}{
			"type": "number",
			"script": map[string]interface{}{
				"source": "Math.random()",
			},
			"order": "asc",
		},
	}
}

func (v *visitor) visitLimit(n *ast.Limit) error {
	return v.assignNumber("size", n.Expr)
}

func (v *visitor) visitOffset(n *ast.Offset) error {
	return v.assignNumber("from", n.Expr)
}

func (v *visitor) assignNumber(key string, expr interface{}) error {
	value := expr
	if node, ok := expr.(ast.Node); ok {
		var (
			bound bool
			err   error
		)
		value, bound, err = v.value(node)
		if err != nil {
			return err
		}
		if !bound {
			return nil
		}
	}
	if value == nil {
		return nil
	}

	v.q.Assign(key, value)

	return nil
}

func (v *visitor) visitConfigures(configures []*ast.SelectConfigure) error {
	for _, c := range configures {
		if err := v.visit(c); err != nil {
			return err
		}
	}

	return nil
}

// visitSelectConfigure applies raw overrides on top of everything assigned so far.
func (v *visitor) visitSelectConfigure(n *ast.SelectConfigure) error {
	for _, key := range sortedKeys(n.Values) {
		value := n.Values[key]
		if key != query.ArgRefresh {
			v.q.Override(key, value)
			continue
		}

		if value == nil {
			v.q.Refresh = nil
			continue
		}
		refresh, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: refresh must be a boolean, got %T", ErrInvalidTranslation, value)
		}
		v.q.SetRefresh(refresh)
	}

	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
