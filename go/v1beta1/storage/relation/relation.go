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
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
	"github.com/rode/es-relation/go/v1beta1/storage/clause"
	"github.com/rode/es-relation/go/v1beta1/storage/esutil"
	"github.com/rode/es-relation/go/v1beta1/storage/filtering"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
	"github.com/rode/es-relation/go/v1beta1/storage/schema"
	"github.com/rode/es-relation/go/v1beta1/storage/translator"
)

type Option func(*Relation)

func WithClient(client esutil.Client) Option {
	return func(r *Relation) {
		r.client = client
	}
}

// WithSchema provides the columns and casters of loaded rows.
func WithSchema(schema *schema.Manager) Option {
	return func(r *Relation) {
		r.schema = schema
	}
}

func WithFilterer(filterer filtering.Filterer) Option {
	return func(r *Relation) {
		r.filterer = filterer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Relation) {
		r.logger = logger
	}
}

// WithRefresh sets whether created documents are visible to searches immediately.
func WithRefresh(refresh bool) Option {
	return func(r *Relation) {
		r.refresh = &refresh
	}
}

// Relation describes a set of documents of an index. Every builder method returns a new
// Relation and leaves the receiver untouched.
type Relation struct {
	table *ast.Table

	kind        string
	kindOptions map[string]interface{}
	clauses     *clause.Clauses
	aggs        []*ast.SelectAgg
	columns     []string
	orders      []ast.Node
	limit       interface{}
	offset      interface{}
	configure   map[string]interface{}
	name        string
	count       bool

	client     esutil.Client
	schema     *schema.Manager
	filterer   filtering.Filterer
	translator translator.Translator
	logger     *zap.Logger
	refresh    *bool
}

func New(index string, opts ...Option) *Relation {
	r := &Relation{
		table:      ast.NewTable(index),
		clauses:    clause.Empty(),
		translator: translator.New(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Relation) Index() string {
	return r.table.Name
}

func (r *Relation) Clauses() *clause.Clauses {
	return r.clauses
}

func (r *Relation) spawn(extend func(*Relation)) *Relation {
	spawned := *r
	spawned.kindOptions = copyMap(r.kindOptions)
	spawned.aggs = append([]*ast.SelectAgg(nil), r.aggs...)
	spawned.columns = append([]string(nil), r.columns...)
	spawned.orders = append([]ast.Node(nil), r.orders...)
	spawned.configure = copyMap(r.configure)

	extend(&spawned)

	return &spawned
}

// Where is an alias of Filter.
func (r *Relation) Where(values ...interface{}) *Relation {
	return r.Filter(values...)
}

// Filter adds conditions that must match without contributing to the score. Values are
// predicate nodes or raw query fragments.
func (r *Relation) Filter(values ...interface{}) *Relation {
	return r.addClause(clause.Filter, values)
}

func (r *Relation) Must(values ...interface{}) *Relation {
	return r.addClause(clause.Must, values)
}

func (r *Relation) MustNot(values ...interface{}) *Relation {
	return r.addClause(clause.MustNot, values)
}

func (r *Relation) Should(values ...interface{}) *Relation {
	return r.addClause(clause.Should, values)
}

// Clause adds values under any clause key, for compound queries other than bool.
func (r *Relation) Clause(key string, values ...interface{}) *Relation {
	return r.addClause(key, values)
}

func (r *Relation) addClause(key string, values []interface{}) *Relation {
	if len(values) == 0 {
		return r
	}

	return r.spawn(func(s *Relation) {
		s.clauses = s.clauses.Append(clause.New(key, values...))
	})
}

// Unscope removes every condition under key.
func (r *Relation) Unscope(key string) *Relation {
	c, ok := r.clauses.Get(key)
	if !ok {
		return r
	}

	return r.spawn(func(s *Relation) {
		s.clauses = s.clauses.Remove(c)
	})
}

// Merge adds the conditions of other to the conditions of r.
func (r *Relation) Merge(other *Relation) *Relation {
	return r.spawn(func(s *Relation) {
		s.clauses = s.clauses.Merge(other.clauses)
	})
}

// Kind sets the compound query wrapping the conditions, bool by default.
func (r *Relation) Kind(name string, options map[string]interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		s.kind = name
		s.kindOptions = copyMap(options)
	})
}

func (r *Relation) Aggregate(name string, value map[string]interface{}, options map[string]interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		s.aggs = append(s.aggs, &ast.SelectAgg{Name: name, Value: value, Options: options})
	})
}

// Select restricts the source fields returned for every hit.
func (r *Relation) Select(columns ...string) *Relation {
	return r.spawn(func(s *Relation) {
		s.columns = append(s.columns, columns...)
	})
}

// Order sorts by field, ascending unless the field is prefixed with `-`.
func (r *Relation) Order(fields ...string) *Relation {
	return r.spawn(func(s *Relation) {
		for _, field := range fields {
			if len(field) > 1 && field[0] == '-' {
				s.orders = append(s.orders, &ast.Descending{Expr: s.table.Attr(field[1:])})
				continue
			}
			s.orders = append(s.orders, &ast.Ascending{Expr: s.table.Attr(field)})
		}
	})
}

// Sort adds a raw sort fragment.
func (r *Relation) Sort(value map[string]interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		s.orders = append(s.orders, &ast.Sort{Value: value})
	})
}

func (r *Relation) Random() *Relation {
	return r.spawn(func(s *Relation) {
		s.orders = append(s.orders, &ast.RandomSort{})
	})
}

func (r *Relation) Limit(limit interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		s.limit = limit
	})
}

func (r *Relation) Offset(offset interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		s.offset = offset
	})
}

// Configure sets top level request keys. A nil value removes the key.
func (r *Relation) Configure(values map[string]interface{}) *Relation {
	return r.spawn(func(s *Relation) {
		if s.configure == nil {
			s.configure = map[string]interface{}{}
		}
		for k, v := range values {
			s.configure[k] = v
		}
	})
}

// Named sets the name reported for the query in matched_queries.
func (r *Relation) Named(name string) *Relation {
	return r.spawn(func(s *Relation) {
		s.name = name
	})
}

// Arel builds the select statement of the relation.
func (r *Relation) Arel() *ast.SelectStatement {
	core := &ast.SelectCore{
		Source: &ast.JoinSource{Left: r.table},
		Aggs:   r.aggs,
		Name:   r.name,
	}
	if r.kind != "" {
		core.Kind = &ast.SelectKind{Name: r.kind, Options: r.kindOptions}
	}

	r.clauses.Each(func(c *clause.Clause) {
		core.Queries = append(core.Queries, &ast.SelectQuery{
			Clause:  c.Key(),
			Values:  c.Values(),
			Options: c.Options(),
		})
	})

	for _, column := range r.columns {
		core.Projections = append(core.Projections, r.table.Attr(column))
	}
	if r.count {
		core.Projections = append(core.Projections, &ast.Count{})
	}

	statement := &ast.SelectStatement{
		Core:   core,
		Orders: r.orders,
	}
	if r.limit != nil {
		statement.Limit = &ast.Limit{Expr: r.limit}
	}
	if r.offset != nil {
		statement.Offset = &ast.Offset{Expr: r.offset}
	}
	if len(r.configure) > 0 {
		statement.Configures = []*ast.SelectConfigure{{Values: r.configure}}
	}

	return statement
}

// Compile translates the relation into a search request.
func (r *Relation) Compile() (*query.Query, error) {
	return r.translator.Compile(r.Arel())
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}
