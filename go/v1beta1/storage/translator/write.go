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
	"strconv"
	"strings"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
)

const (
	scriptSeparator = "; "
	scriptLanguage  = "painless"
	documentPrefix  = "ctx._source."
	idColumn        = "_id"
)

// visitInsertStatement compiles a single document creation.
func (v *visitor) visitInsertStatement(n *ast.InsertStatement) error {
	table, ok := n.Relation.(*ast.Table)
	if !ok {
		return fmt.Errorf("%w: insert requires a table, got %T", ErrInvalidTranslation, n.Relation)
	}

	v.q.Type = query.KindCreate
	if err := v.visit(table); err != nil {
		return err
	}

	if n.Values == nil || len(n.Values.Rows) == 0 {
		v.q.MarkFailed()
		return nil
	}
	if len(n.Values.Rows) > 1 {
		return fmt.Errorf("%w: insert of %d rows, only single documents can be created", ErrInvalidTranslation, len(n.Values.Rows))
	}

	row := n.Values.Rows[0]
	if len(row) != len(n.Columns) {
		return fmt.Errorf("%w: %d columns but %d values", ErrInvalidTranslation, len(n.Columns), len(row))
	}

	document := map[string]interface{}{}
	for i, column := range n.Columns {
		value, bound, err := v.value(row[i])
		if err != nil || !bound {
			return err
		}

		if column.Name == idColumn {
			if value != nil {
				v.q.Arguments[query.ArgID] = fmt.Sprint(value)
			}
			continue
		}

		document[column.Name] = value
	}

	for _, key := range sortedKeys(document) {
		v.q.Assign(key, document[key])
	}

	return nil
}

func (v *visitor) visitUpdateStatement(n *ast.UpdateStatement) error {
	v.q.Type = query.KindUpdateByQuery
	if err := v.visitByQueryRelation(n.Relation, n.Wheres); err != nil {
		return err
	}

	if len(n.Values) > 0 {
		var err error
		v.q.AssignBlock("script", func() {
			v.q.Assign("lang", scriptLanguage)
			for i, assignment := range n.Values {
				var statement string
				if statement, err = v.scriptStatement(assignment); err != nil || v.q.Failed() {
					return
				}
				if i > 0 {
					statement = scriptSeparator + statement
				}
				v.q.Assign("inline", statement)
			}
		})
		if err != nil {
			return err
		}
	}

	return v.visitConfigures(n.Configures)
}

func (v *visitor) visitDeleteStatement(n *ast.DeleteStatement) error {
	v.q.Type = query.KindDeleteByQuery
	if err := v.visitByQueryRelation(n.Relation, n.Wheres); err != nil {
		return err
	}

	return v.visitConfigures(n.Configures)
}

// visitByQueryRelation compiles the target and conditions shared by update and delete by
// query. A bare table means a single document write, which never reaches the translator.
func (v *visitor) visitByQueryRelation(relation ast.Node, wheres []*ast.SelectQuery) error {
	var (
		kind    *ast.SelectKind
		queries []*ast.SelectQuery
	)

	switch r := relation.(type) {
	case *ast.Table:
		return fmt.Errorf("%w: %s against a single table %q", ErrInvalidTranslation, v.q.Type, r.Name)
	case *ast.JoinSource:
		if err := v.visit(r); err != nil {
			return err
		}
	case *ast.SelectStatement:
		if r.Core == nil {
			return fmt.Errorf("%w: select statement without core", ErrInvalidTranslation)
		}
		if err := v.visitSource(r.Core.Source); err != nil {
			return err
		}
		kind = r.Core.Kind
		queries = r.Core.Queries
		if r.Limit != nil {
			if err := v.assignNumber("max_docs", r.Limit.Expr); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T is not a valid %s target", ErrInvalidTranslation, relation, v.q.Type)
	}

	v.q.SetRefresh(true)

	all := make([]*ast.SelectQuery, 0, len(queries)+len(wheres))
	all = append(all, queries...)
	all = append(all, wheres...)

	return v.visitQueries(kind, all, "")
}

// scriptStatement renders `ctx._source.field = value` for a painless script.
func (v *visitor) scriptStatement(a *ast.Assignment) (string, error) {
	if a.Left == nil || a.Left.Name == "" {
		return "", fmt.Errorf("%w: assignment without a field", ErrInvalidTranslation)
	}

	if attribute, ok := a.Right.(*ast.Attribute); ok {
		return documentPrefix + a.Left.Name + " = " + documentPrefix + attribute.Name, nil
	}

	value, bound, err := v.value(a.Right)
	if err != nil || !bound {
		return "", err
	}

	literal, err := scriptLiteral(value)
	if err != nil {
		return "", err
	}

	return documentPrefix + a.Left.Name + " = " + literal, nil
}

var scriptEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func scriptLiteral(value interface{}) (string, error) {
	switch val := value.(type) {
	case nil:
		return "null", nil
	case string:
		return "'" + scriptEscaper.Replace(val) + "'", nil
	case bool:
		return strconv.FormatBool(val), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case fmt.Stringer:
		return "'" + scriptEscaper.Replace(val.String()) + "'", nil
	default:
		return "", fmt.Errorf("%w: %T cannot be used in an update script", ErrInvalidTranslation, value)
	}
}
