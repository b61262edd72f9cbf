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

package relation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/esutil"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
	"github.com/rode/es-relation/go/v1beta1/storage/result"
)

var (
	ErrNoClient   = errors.New("relation has no client")
	ErrNoFilterer = errors.New("relation has no filterer")
)

// WhereExpression adds the conditions of a CEL filter expression.
func (r *Relation) WhereExpression(filter string) (*Relation, error) {
	if r.filterer == nil {
		return nil, ErrNoFilterer
	}

	predicate, err := r.filterer.ParseExpression(filter)
	if err != nil {
		return nil, err
	}

	return r.Filter(predicate), nil
}

// Load runs the search and decodes the hits.
func (r *Relation) Load(ctx context.Context) (*result.Result, error) {
	log := r.logger.Named("Load").With(zap.String("index", r.Index()))

	q, err := r.Compile()
	if err != nil {
		return nil, err
	}

	response, err := r.execute(ctx, q)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded relation", zap.String("query", q.String()))

	return result.New(response, r.resultColumns(q), r.resultOptions()...), nil
}

// Pluck loads the cast values of columns, flat for a single column.
func (r *Relation) Pluck(ctx context.Context, columns ...string) ([]interface{}, error) {
	res, err := r.Select(columns...).Load(ctx)
	if err != nil {
		return nil, err
	}

	return res.CastValues(nil), nil
}

// Count returns the number of documents matching the relation.
func (r *Relation) Count(ctx context.Context) (int, error) {
	counted := r.spawn(func(s *Relation) {
		s.count = true
	})

	q, err := counted.Compile()
	if err != nil {
		return 0, err
	}

	response, err := r.execute(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.New(response, nil).Total(), nil
}

// UpdateAll sets fields on every matching document and returns how many were updated.
// Values are literals or attributes of the document.
func (r *Relation) UpdateAll(ctx context.Context, assignments map[string]interface{}) (int, error) {
	statement := &ast.UpdateStatement{
		Relation:   r.Arel(),
		Configures: r.Arel().Configures,
	}
	for _, field := range sortedKeys(assignments) {
		statement.Values = append(statement.Values, &ast.Assignment{
			Left:  r.table.Attr(field),
			Right: node(assignments[field]),
		})
	}

	return r.write(ctx, statement, "updated")
}

// DeleteAll deletes every matching document and returns how many were deleted.
func (r *Relation) DeleteAll(ctx context.Context) (int, error) {
	statement := &ast.DeleteStatement{
		Relation:   r.Arel(),
		Configures: r.Arel().Configures,
	}

	return r.write(ctx, statement, "deleted")
}

func (r *Relation) write(ctx context.Context, statement ast.Node, counter string) (int, error) {
	log := r.logger.Named("write").With(zap.String("index", r.Index()))

	q, err := r.translator.Compile(statement)
	if err != nil {
		return 0, err
	}

	response, err := r.execute(ctx, q)
	if err != nil {
		return 0, err
	}
	log.Debug("wrote documents", zap.String("query", q.String()), zap.Any(counter, response[counter]))

	return cast.ToInt(response[counter]), nil
}

// Create indexes a single document and returns its id. An `_id` value is used as the
// document id.
func (r *Relation) Create(ctx context.Context, values map[string]interface{}) (string, error) {
	statement := &ast.InsertStatement{
		Relation: r.table,
		Values:   &ast.ValuesList{},
	}

	var row []ast.Node
	for _, column := range sortedKeys(values) {
		statement.Columns = append(statement.Columns, r.table.Attr(column))
		row = append(row, node(values[column]))
	}
	if len(row) > 0 {
		statement.Values.Rows = [][]ast.Node{row}
	}

	q, err := r.translator.Compile(statement)
	if err != nil {
		return "", err
	}
	if r.refresh != nil {
		q.SetRefresh(*r.refresh)
	}

	response, err := r.execute(ctx, q)
	if err != nil {
		return "", err
	}

	id, _ := response["_id"].(string)

	return id, nil
}

// MultiLoad runs the searches of every relation in a single request. Results keep the
// order of the relations.
func MultiLoad(ctx context.Context, client esutil.Client, relations ...*Relation) ([]*result.Result, error) {
	if client == nil {
		return nil, ErrNoClient
	}

	var (
		queries []*query.Query
		columns [][]string
		casters []map[string]result.Caster
	)
	for _, r := range relations {
		q, err := r.Compile()
		if err != nil {
			return nil, fmt.Errorf("error compiling relation on %s: %w", r.Index(), err)
		}

		queries = append(queries, q)
		columns = append(columns, r.resultColumns(q))
		casters = append(casters, r.casters())
	}

	responses, err := client.MultiSearch(ctx, queries)
	if err != nil {
		return nil, err
	}

	return result.NewMulti(responses, columns, casters), nil
}

func (r *Relation) execute(ctx context.Context, q *query.Query) (map[string]interface{}, error) {
	if r.client == nil {
		return nil, ErrNoClient
	}

	return r.client.Execute(ctx, q)
}

// selected columns, or every column of the schema
func (r *Relation) resultColumns(q *query.Query) []string {
	if len(q.Columns) > 0 {
		return q.Columns
	}
	if r.schema != nil {
		return r.schema.Columns(r.Index())
	}

	return nil
}

func (r *Relation) casters() map[string]result.Caster {
	if r.schema == nil {
		return nil
	}

	return r.schema.Casters(r.Index())
}

func (r *Relation) resultOptions() []result.Option {
	return []result.Option{
		result.WithCasters(r.casters()),
		result.WithLogger(r.logger),
	}
}

func node(value interface{}) ast.Node {
	if n, ok := value.(ast.Node); ok {
		return n
	}

	return ast.Value(value)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
