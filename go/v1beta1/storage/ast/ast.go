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

// Package ast holds the statement tree that the translator compiles into Elasticsearch
// requests. Trees are built by the relation layer and are read-only once handed over.
package ast

// Node is implemented by every statement tree node. The set of node kinds is closed:
// the translator rejects anything it does not know.
type Node interface {
	node()
}

// Bindable is implemented by values that may not be bound to a concrete value yet.
type Bindable interface {
	BindValue() (interface{}, bool)
}

const (
	// RandomField is the reserved sort field that requests a random order.
	RandomField = "_rand"
	// AllColumns projects the whole document source.
	AllColumns = "*"
)

// Impossible is a literal condition that no document satisfies.
var Impossible = SQLLiteral("1=0")

// Statements

type SelectStatement struct {
	Core       *SelectCore
	Orders     []Node
	Limit      *Limit
	Offset     *Offset
	Configures []*SelectConfigure
}

type InsertStatement struct {
	Relation Node
	Columns  []*Attribute
	Values   *ValuesList
}

type UpdateStatement struct {
	Relation   Node
	Values     []*Assignment
	Wheres     []*SelectQuery
	Configures []*SelectConfigure
}

type DeleteStatement struct {
	Relation   Node
	Wheres     []*SelectQuery
	Configures []*SelectConfigure
}

// Select parts

type SelectCore struct {
	Source      Node
	Kind        *SelectKind
	Queries     []*SelectQuery
	Aggs        []*SelectAgg
	Projections []Node
	Name        string
}

// SelectKind names the compound query the clauses are placed in, e.g. bool,
// constant_score or boosting.
type SelectKind struct {
	Name    string
	Options map[string]interface{}
}

// SelectQuery is one clause kind with its fragments. A fragment is either a native
// query value or a predicate node.
type SelectQuery struct {
	Clause  string
	Values  []interface{}
	Options map[string]interface{}
}

type SelectAgg struct {
	Name    string
	Value   map[string]interface{}
	Options map[string]interface{}
}

// SelectConfigure holds raw top-level overrides. A nil value removes the key.
type SelectConfigure struct {
	Values map[string]interface{}
}

type Limit struct {
	Expr interface{}
}

type Offset struct {
	Expr interface{}
}

type Ascending struct {
	Expr Node
}

type Descending struct {
	Expr Node
}

// Sort is a native sort fragment passed through as is.
type Sort struct {
	Value map[string]interface{}
}

type RandomSort struct{}

// Sources

type Table struct {
	Name string
}

type TableAlias struct {
	Relation Node
	Name     string
}

type JoinSource struct {
	Left  Node
	Right []Node
}

// Values

type Attribute struct {
	Relation *Table
	Name     string
}

type Quoted struct {
	Value interface{}
}

type BindParam struct {
	Name  string
	Value interface{}
	Bound bool
}

func (b *BindParam) BindValue() (interface{}, bool) {
	return b.Value, b.Bound
}

type SQLLiteral string

type Star struct{}

type Count struct {
	Distinct bool
}

type ValuesList struct {
	Rows [][]Node
}

type Assignment struct {
	Left  *Attribute
	Right Node
}

// Predicates

type Equality struct {
	Left  Node
	Right Node
}

type NotEqual struct {
	Left  Node
	Right Node
}

type In struct {
	Left  Node
	Right []Node
}

type NotIn struct {
	Left  Node
	Right []Node
}

type GreaterThan struct {
	Left  Node
	Right Node
}

type GreaterThanOrEqual struct {
	Left  Node
	Right Node
}

type LessThan struct {
	Left  Node
	Right Node
}

type LessThanOrEqual struct {
	Left  Node
	Right Node
}

// Matches is a prefix match.
type Matches struct {
	Left  Node
	Right Node
}

// Contains is a wildcard substring match.
type Contains struct {
	Left  Node
	Right Node
}

type And struct {
	Children []Node
}

type Or struct {
	Children []Node
}

type Not struct {
	Expr Node
}

type Nested struct {
	Path string
	Expr Node
}

type Grouping struct {
	Expr Node
}

func (*SelectStatement) node()    {}
func (*InsertStatement) node()    {}
func (*UpdateStatement) node()    {}
func (*DeleteStatement) node()    {}
func (*SelectCore) node()         {}
func (*SelectKind) node()         {}
func (*SelectQuery) node()        {}
func (*SelectAgg) node()          {}
func (*SelectConfigure) node()    {}
func (*Limit) node()              {}
func (*Offset) node()             {}
func (*Ascending) node()          {}
func (*Descending) node()         {}
func (*Sort) node()               {}
func (*RandomSort) node()         {}
func (*Table) node()              {}
func (*TableAlias) node()         {}
func (*JoinSource) node()         {}
func (*Attribute) node()          {}
func (*Quoted) node()             {}
func (*BindParam) node()          {}
func (SQLLiteral) node()          {}
func (*Star) node()               {}
func (*Count) node()              {}
func (*ValuesList) node()         {}
func (*Assignment) node()         {}
func (*Equality) node()           {}
func (*NotEqual) node()           {}
func (*In) node()                 {}
func (*NotIn) node()              {}
func (*GreaterThan) node()        {}
func (*GreaterThanOrEqual) node() {}
func (*LessThan) node()           {}
func (*LessThanOrEqual) node()    {}
func (*Matches) node()            {}
func (*Contains) node()           {}
func (*And) node()                {}
func (*Or) node()                 {}
func (*Not) node()                {}
func (*Nested) node()             {}
func (*Grouping) node()           {}
