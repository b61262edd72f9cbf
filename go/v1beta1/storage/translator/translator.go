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
	"errors"
	"fmt"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/clause"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
)

var (
	// ErrUnsupportedNode is returned for node kinds the translator does not know.
	ErrUnsupportedNode = errors.New("unsupported node")
	// ErrInvalidTranslation is returned for trees that have no Elasticsearch equivalent.
	ErrInvalidTranslation = errors.New("invalid translation")
)

const defaultKind = "bool"

type Translator interface {
	Compile(statement ast.Node) (*query.Query, error)
}

type translator struct{}

func New() Translator {
	return &translator{}
}

// Compile turns a statement into a query. Conditions that can never match mark the query
// as failed instead of returning an error.
func (t *translator) Compile(statement ast.Node) (*query.Query, error) {
	v := &visitor{
		q:      query.New("", ""),
		kind:   defaultKind,
		clause: clause.Filter,
	}

	switch n := statement.(type) {
	case *ast.SelectStatement:
		if n == nil {
			return nil, nilStatement(statement)
		}
	case *ast.InsertStatement:
		if n == nil {
			return nil, nilStatement(statement)
		}
	case *ast.UpdateStatement:
		if n == nil {
			return nil, nilStatement(statement)
		}
	case *ast.DeleteStatement:
		if n == nil {
			return nil, nilStatement(statement)
		}
	default:
		return nil, fmt.Errorf("%w: expected a statement, got %T", ErrUnsupportedNode, statement)
	}

	if err := v.visit(statement); err != nil {
		return nil, err
	}

	if !v.q.Valid() {
		return nil, fmt.Errorf("%w: unrecognized query type %q", ErrInvalidTranslation, v.q.Type)
	}

	return v.q, nil
}

func nilStatement(statement ast.Node) error {
	return fmt.Errorf("%w: nil %T", ErrInvalidTranslation, statement)
}

// visitor carries the state of a single compilation: the query being built, the compound
// query kind and the clause predicates are currently assigned to.
type visitor struct {
	q      *query.Query
	kind   string
	clause string
}

func (v *visitor) visit(node ast.Node) error {
	switch n := node.(type) {
	case *ast.SelectStatement:
		return v.visitSelectStatement(n)
	case *ast.InsertStatement:
		return v.visitInsertStatement(n)
	case *ast.UpdateStatement:
		return v.visitUpdateStatement(n)
	case *ast.DeleteStatement:
		return v.visitDeleteStatement(n)
	case *ast.SelectCore:
		return v.visitSelectCore(n)
	case *ast.SelectQuery:
		return v.visitSelectQuery(n)
	case *ast.SelectAgg:
		return v.visitSelectAgg(n)
	case *ast.SelectConfigure:
		return v.visitSelectConfigure(n)
	case *ast.Limit:
		return v.visitLimit(n)
	case *ast.Offset:
		return v.visitOffset(n)
	case *ast.Ascending, *ast.Descending, *ast.Sort, *ast.RandomSort:
		return v.visitOrder(n)
	case *ast.Table:
		return v.visitTable(n)
	case *ast.JoinSource:
		return v.visitJoinSource(n)
	case *ast.TableAlias:
		return fmt.Errorf("%w: table alias %q is not supported", ErrInvalidTranslation, n.Name)
	case ast.SQLLiteral:
		return v.visitSQLLiteral(n)
	case *ast.Equality:
		return v.visitEquality(n)
	case *ast.NotEqual:
		return v.visitNotEqual(n)
	case *ast.In:
		return v.visitIn(n)
	case *ast.NotIn:
		return v.visitNotIn(n)
	case *ast.GreaterThan:
		return v.visitRange(n.Left, n.Right, "gt")
	case *ast.GreaterThanOrEqual:
		return v.visitRange(n.Left, n.Right, "gte")
	case *ast.LessThan:
		return v.visitRange(n.Left, n.Right, "lt")
	case *ast.LessThanOrEqual:
		return v.visitRange(n.Left, n.Right, "lte")
	case *ast.Matches:
		return v.visitMatches(n)
	case *ast.Contains:
		return v.visitContains(n)
	case *ast.And:
		return v.visitAnd(n)
	case *ast.Or:
		return v.visitOr(n)
	case *ast.Not:
		return v.visitNot(n)
	case *ast.Nested:
		return v.visitNested(n)
	case *ast.Grouping:
		v.q.MarkFailed()
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedNode, node)
	}
}

func (v *visitor) visitTable(n *ast.Table) error {
	v.q.Index = n.Name

	return nil
}

func (v *visitor) visitJoinSource(n *ast.JoinSource) error {
	if len(n.Right) > 0 {
		return fmt.Errorf("%w: joins are not supported", ErrInvalidTranslation)
	}
	if n.Left == nil {
		return nil
	}

	return v.visit(n.Left)
}

func (v *visitor) visitSource(source ast.Node) error {
	if source == nil {
		return nil
	}

	switch source.(type) {
	case *ast.Table, *ast.JoinSource, *ast.TableAlias:
		return v.visit(source)
	default:
		return fmt.Errorf("%w: %T is not a valid source", ErrUnsupportedNode, source)
	}
}

// emit places a fragment under clause. A bool query holds lists of fragments, other
// compound queries hold a single fragment per clause.
func (v *visitor) emit(clauseKind string, fragment interface{}) {
	if v.kind == defaultKind {
		v.q.Assign(clauseKind, []interface{}{fragment})
		return
	}

	v.q.Assign(clauseKind, fragment)
}

// emitNegated places a fragment so that matching documents are excluded.
func (v *visitor) emitNegated(fragment interface{}) {
	negated := map[string]interface{}{
		"bool": map[string]interface{}{
			clause.MustNot: []interface{}{fragment},
		},
	}

	if v.kind != defaultKind {
		v.emit(v.clause, negated)
		return
	}

	switch v.clause {
	case clause.MustNot:
		v.emit(clause.Filter, fragment)
	case clause.Should:
		v.emit(clause.Should, negated)
	default:
		v.emit(clause.MustNot, fragment)
	}
}

// fragment compiles a predicate on its own and reduces it to a single native query.
// A nil fragment matches every document; failed reports a predicate that matches none.
func (v *visitor) fragment(node ast.Node) (fragment map[string]interface{}, failed bool, err error) {
	sub := &visitor{
		q:      query.New(v.q.Index, v.q.Type),
		kind:   defaultKind,
		clause: clause.Filter,
	}
	if err := sub.visit(node); err != nil {
		return nil, false, err
	}
	if sub.q.Failed() {
		return nil, true, nil
	}

	return collapse(sub.q.Body), false, nil
}

func collapse(body map[string]interface{}) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	if filters, ok := body[clause.Filter].([]interface{}); ok && len(body) == 1 && len(filters) == 1 {
		if single, ok := filters[0].(map[string]interface{}); ok {
			return single
		}
	}

	return map[string]interface{}{
		defaultKind: body,
	}
}
