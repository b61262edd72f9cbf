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
	"regexp"

	"github.com/google/go-cmp/cmp"
	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/clause"
)

var elasticsearchSpecialCharacterRegex = regexp.MustCompile(`([\-=&|!(){}\[\]^"~*?:\\/])`)

const tautology = ast.SQLLiteral("1=1")

func (v *visitor) visitSQLLiteral(n ast.SQLLiteral) error {
	switch n {
	case ast.Impossible:
		v.q.MarkFailed()
		return nil
	case tautology:
		return nil
	default:
		return fmt.Errorf("%w: raw condition %q", ErrUnsupportedNode, string(n))
	}
}

func (v *visitor) visitEquality(n *ast.Equality) error {
	if folded, err := v.foldConstants(n.Left, n.Right, true); folded || err != nil {
		return err
	}

	field, err := v.field(n.Left)
	if err != nil {
		return err
	}

	value, bound, err := v.value(n.Right)
	if err != nil || !bound {
		return err
	}

	if value == nil {
		v.emitNegated(exists(field))
		return nil
	}

	v.emit(v.clause, term(field, value))

	return nil
}

func (v *visitor) visitNotEqual(n *ast.NotEqual) error {
	if folded, err := v.foldConstants(n.Left, n.Right, false); folded || err != nil {
		return err
	}

	field, err := v.field(n.Left)
	if err != nil {
		return err
	}

	value, bound, err := v.value(n.Right)
	if err != nil || !bound {
		return err
	}

	if value == nil {
		v.emit(v.clause, exists(field))
		return nil
	}

	v.emitNegated(term(field, value))

	return nil
}

// foldConstants handles comparisons between two literal values. A comparison that is
// false can never match anything.
func (v *visitor) foldConstants(left, right ast.Node, equal bool) (bool, error) {
	l, ok := left.(*ast.Quoted)
	if !ok {
		return false, nil
	}
	if _, isField := l.Value.(string); isField {
		return false, nil
	}

	r, bound, err := v.value(right)
	if err != nil || !bound {
		return true, err
	}

	if cmp.Equal(l.Value, r) != equal {
		v.q.MarkFailed()
	}

	return true, nil
}

func (v *visitor) visitIn(n *ast.In) error {
	field, err := v.field(n.Left)
	if err != nil {
		return err
	}

	values, includesNull, bound, err := v.values(n.Right)
	if err != nil || !bound {
		return err
	}

	switch {
	case len(values) == 0 && !includesNull:
		v.q.MarkFailed()
	case len(values) == 0:
		v.emitNegated(exists(field))
	case includesNull:
		v.emit(v.clause, map[string]interface{}{
			"bool": map[string]interface{}{
				clause.Should: []interface{}{
					terms(field, values),
					map[string]interface{}{
						"bool": map[string]interface{}{
							clause.MustNot: []interface{}{exists(field)},
						},
					},
				},
				"minimum_should_match": 1,
			},
		})
	default:
		v.emit(v.clause, terms(field, values))
	}

	return nil
}

func (v *visitor) visitNotIn(n *ast.NotIn) error {
	field, err := v.field(n.Left)
	if err != nil {
		return err
	}

	values, includesNull, bound, err := v.values(n.Right)
	if err != nil || !bound {
		return err
	}

	if includesNull {
		v.emit(v.clause, exists(field))
	}
	if len(values) > 0 {
		v.emitNegated(terms(field, values))
	}

	return nil
}

func (v *visitor) visitRange(left, right ast.Node, operator string) error {
	field, err := v.field(left)
	if err != nil {
		return err
	}

	value, bound, err := v.value(right)
	if err != nil || !bound {
		return err
	}

	// nothing compares to null
	if value == nil {
		v.q.MarkFailed()
		return nil
	}

	v.emit(v.clause, map[string]interface{}{
		"range": map[string]interface{}{
			field: map[string]interface{}{
				operator: value,
			},
		},
	})

	return nil
}

func (v *visitor) visitMatches(n *ast.Matches) error {
	field, prefix, ok, err := v.fieldAndString(n.Left, n.Right)
	if err != nil || !ok {
		return err
	}

	v.emit(v.clause, map[string]interface{}{
		"prefix": map[string]interface{}{
			field: prefix,
		},
	})

	return nil
}

func (v *visitor) visitContains(n *ast.Contains) error {
	field, substring, ok, err := v.fieldAndString(n.Left, n.Right)
	if err != nil || !ok {
		return err
	}

	v.emit(v.clause, map[string]interface{}{
		"query_string": map[string]interface{}{
			"default_field": field,
			"query":         fmt.Sprintf("*%s*", elasticsearchSpecialCharacterRegex.ReplaceAllString(substring, `\$1`)),
		},
	})

	return nil
}

func (v *visitor) fieldAndString(left, right ast.Node) (string, string, bool, error) {
	field, err := v.field(left)
	if err != nil {
		return "", "", false, err
	}

	value, bound, err := v.value(right)
	if err != nil || !bound {
		return "", "", false, err
	}
	if value == nil {
		v.q.MarkFailed()
		return "", "", false, nil
	}

	s, ok := value.(string)
	if !ok {
		return "", "", false, fmt.Errorf("%w: expected %[2]v to have type string but was %[2]T", ErrInvalidTranslation, value)
	}

	return field, s, true, nil
}

func (v *visitor) visitAnd(n *ast.And) error {
	for _, child := range n.Children {
		if err := v.visit(child); err != nil {
			return err
		}
	}

	return nil
}

// visitOr builds a should query out of the children. Children that can never match are
// dropped; if none are left the whole condition can never match.
func (v *visitor) visitOr(n *ast.Or) error {
	if len(n.Children) == 0 {
		return fmt.Errorf("%w: disjunction without conditions", ErrInvalidTranslation)
	}

	var should []interface{}
	for _, child := range n.Children {
		fragment, failed, err := v.fragment(child)
		if err != nil {
			return err
		}
		if failed {
			continue
		}
		if fragment == nil {
			// one branch matches everything
			return nil
		}
		should = append(should, fragment)
	}

	if len(should) == 0 {
		v.q.MarkFailed()
		return nil
	}

	v.emit(v.clause, map[string]interface{}{
		"bool": map[string]interface{}{
			clause.Should:          should,
			"minimum_should_match": 1,
		},
	})

	return nil
}

func (v *visitor) visitNot(n *ast.Not) error {
	fragment, failed, err := v.fragment(n.Expr)
	if err != nil || failed {
		return err
	}
	if fragment == nil {
		v.q.MarkFailed()
		return nil
	}

	v.emitNegated(fragment)

	return nil
}

func (v *visitor) visitNested(n *ast.Nested) error {
	if n.Path == "" {
		return fmt.Errorf("%w: nested query without a path", ErrInvalidTranslation)
	}

	kind, current := v.kind, v.clause
	v.kind, v.clause = defaultKind, clause.Filter

	var err error
	inner := v.q.Detached(func() {
		v.q.AssignBlock(defaultKind, func() {
			err = v.visit(n.Expr)
		})
	})
	v.kind, v.clause = kind, current

	if err != nil || len(inner) == 0 {
		return err
	}

	v.emit(v.clause, map[string]interface{}{
		"nested": map[string]interface{}{
			"path":  n.Path,
			"query": inner,
		},
	})

	return nil
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: value,
		},
	}
}

func terms(field string, values []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"terms": map[string]interface{}{
			field: values,
		},
	}
}

func exists(field string) map[string]interface{} {
	return map[string]interface{}{
		"exists": map[string]interface{}{
			"field": field,
		},
	}
}
