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

package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var metadataColumns = []string{"_id", "_score", "_index", "_type"}

func isMetadata(column string) bool {
	for _, c := range metadataColumns {
		if c == column {
			return true
		}
	}

	return false
}

type Option func(*Result)

// WithCasters sets the default casters per column, usually the ones derived from the index mapping.
func WithCasters(casters map[string]Caster) Option {
	return func(r *Result) {
		for column, c := range casters {
			r.casters[column] = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Result) {
		r.logger = logger
	}
}

// Result wraps a decoded Elasticsearch response.
type Result struct {
	response map[string]interface{}
	columns  []string
	casters  map[string]Caster
	logger   *zap.Logger

	totalOnce sync.Once
	total     int

	rowsOnce sync.Once
	rows     []Row
}

func New(response map[string]interface{}, columns []string, opts ...Option) *Result {
	if response == nil {
		response = map[string]interface{}{}
	}

	r := &Result{
		response: response,
		columns:  append([]string(nil), columns...),
		casters:  map[string]Caster{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Decode builds a Result from a raw JSON response body. Integral numbers are decoded as int64.
func Decode(raw []byte, columns []string, opts ...Option) (*Result, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var response map[string]interface{}
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding response: %s", err)
	}

	return New(Normalize(response).(map[string]interface{}), columns, opts...), nil
}

// Normalize replaces json.Number values with int64 or float64.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		for k, item := range v {
			v[k] = Normalize(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = Normalize(item)
		}
		return v
	default:
		return v
	}
}

func (r *Result) Response() map[string]interface{} {
	return r.response
}

func (r *Result) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Total prefers an explicit total, then the hit total, then the number of aggregations.
func (r *Result) Total() int {
	r.totalOnce.Do(func() {
		r.total = r.resolveTotal()
	})

	return r.total
}

func (r *Result) resolveTotal() int {
	for _, key := range []string{"total", "count"} {
		if n, ok := toInt(r.response[key]); ok {
			return n
		}
	}

	switch total := r.Hits()["total"].(type) {
	case map[string]interface{}:
		if n, ok := toInt(total["value"]); ok {
			return n
		}
	default:
		if n, ok := toInt(total); ok {
			return n
		}
	}

	if aggs := r.Aggregations(); len(aggs) > 0 {
		return len(aggs)
	}

	return 0
}

func toInt(value interface{}) (int, bool) {
	if value == nil {
		return 0, false
	}
	if _, ok := value.(string); ok {
		return 0, false
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return 0, false
	}

	return n, true
}

func (r *Result) Hits() map[string]interface{} {
	return mapValue(r.response, "hits")
}

func (r *Result) Aggregations() map[string]interface{} {
	return mapValue(r.response, "aggregations")
}

func (r *Result) Aggregation(name string) map[string]interface{} {
	return mapValue(r.Aggregations(), name)
}

// Buckets returns the buckets of a bucket aggregation, or nil.
func (r *Result) Buckets(name string) []interface{} {
	buckets, _ := r.Aggregation(name)["buckets"].([]interface{})

	return buckets
}

func mapValue(m map[string]interface{}, key string) map[string]interface{} {
	if value, ok := m[key].(map[string]interface{}); ok {
		return value
	}

	return map[string]interface{}{}
}

// Rows returns one row per hit. Rows are built once.
func (r *Result) Rows() []Row {
	r.rowsOnce.Do(func() {
		r.rows = r.buildRows()
	})

	return r.rows
}

func (r *Result) Each(fn func(Row)) {
	for _, row := range r.Rows() {
		fn(row)
	}
}

func (r *Result) buildRows() []Row {
	hits, _ := r.Hits()["hits"].([]interface{})
	rows := make([]Row, 0, len(hits))

	for _, h := range hits {
		doc, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		source, _ := doc["_source"].(map[string]interface{})

		row := Row{values: map[string]interface{}{}}
		for _, column := range metadataColumns {
			row.columns = append(row.columns, column)
			row.values[column] = doc[column]
		}
		for _, column := range r.sourceColumns(source) {
			if isMetadata(column) {
				continue
			}
			row.columns = append(row.columns, column)
			if value := lookup(source, column); value != nil {
				row.values[column] = value
			}
		}

		rows = append(rows, row)
	}

	return rows
}

// without declared columns every top level source field is read
func (r *Result) sourceColumns(source map[string]interface{}) []string {
	if len(r.columns) > 0 {
		return r.columns
	}

	var columns []string
	for k := range source {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return columns
}

func lookup(source map[string]interface{}, column string) interface{} {
	if value, ok := source[column]; ok {
		return value
	}

	parts := strings.SplitN(column, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	nested, ok := source[parts[0]].(map[string]interface{})
	if !ok {
		return nil
	}

	return lookup(nested, parts[1])
}

// CastValues casts the declared columns of every row. A single column yields a flat slice,
// several columns yield one []interface{} per row.
func (r *Result) CastValues(overrides map[string]Caster) []interface{} {
	log := r.logger.Named("CastValues")
	columns := r.columns
	if len(columns) == 0 {
		columns = []string{"_id"}
	}

	casters := make([]Caster, len(columns))
	for i, column := range columns {
		casters[i] = r.caster(column, overrides)
	}

	values := make([]interface{}, 0, len(r.Rows()))
	for _, row := range r.Rows() {
		tuple := make([]interface{}, len(columns))
		for i, column := range columns {
			raw, ok := row.Get(column)
			if !ok || raw == nil {
				continue
			}

			value, err := casters[i].Cast(raw)
			if err != nil {
				log.Debug("falling back to raw value", zap.String("column", column), zap.Error(err))
				value = raw
			}
			tuple[i] = value
		}

		if len(columns) == 1 {
			values = append(values, tuple[0])
		} else {
			values = append(values, tuple)
		}
	}

	return values
}

func (r *Result) caster(column string, overrides map[string]Caster) Caster {
	if c, ok := overrides[column]; ok && c != nil {
		return c
	}
	if c, ok := r.casters[column]; ok && c != nil {
		return c
	}

	return Passthrough
}

// Row is a single hit flattened into column values.
type Row struct {
	columns []string
	values  map[string]interface{}
}

func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r Row) Get(column string) (interface{}, bool) {
	value, ok := r.values[column]

	return value, ok
}

func (r Row) Value(column string) interface{} {
	return r.values[column]
}

func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}

	return m
}

// NewMulti wraps each sub-response of a multi-search. Results keep the order of the responses.
// columns and casters are positional and may be shorter than responses.
func NewMulti(responses []map[string]interface{}, columns [][]string, casters []map[string]Caster, opts ...Option) []*Result {
	results := make([]*Result, len(responses))

	var wg sync.WaitGroup
	for i := range responses {
		resultOpts := opts
		if i < len(casters) && casters[i] != nil {
			resultOpts = append(append([]Option(nil), opts...), WithCasters(casters[i]))
		}
		var cols []string
		if i < len(columns) {
			cols = columns[i]
		}
		results[i] = New(responses[i], cols, resultOpts...)

		wg.Add(1)
		go func(r *Result) {
			defer wg.Done()
			r.Total()
			r.Rows()
		}(results[i])
	}
	wg.Wait()

	return results
}
