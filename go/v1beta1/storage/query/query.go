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

package query

import (
	"fmt"
)

// Query is a compiled request: the target index, the operation to run and the native
// request body. It is only mutated while being compiled.
type Query struct {
	Index     string
	Type      Kind
	Status    Status
	Body      map[string]interface{}
	Arguments map[string]interface{}
	Refresh   *bool
	Columns   []string
	Name      string

	frames []*frame
}

func New(index string, kind Kind) *Query {
	return &Query{
		Index:     index,
		Type:      kind,
		Status:    StatusValid,
		Body:      map[string]interface{}{},
		Arguments: map[string]interface{}{},
	}
}

// Valid reports whether the kind is one of the recognized operations.
func (q *Query) Valid() bool {
	return kinds[q.Type]
}

func (q *Query) Failed() bool {
	return q.Status == StatusFailed
}

// MarkFailed turns the query into one that matches nothing. There is no way back.
func (q *Query) MarkFailed() {
	q.Status = StatusFailed
}

// Gate is the backend endpoint used to run the query.
func (q *Query) Gate() string {
	if gate, ok := gates[q.Type]; ok {
		return gate
	}

	return string(q.Type)
}

func (q *Query) IsWriteOperation() bool {
	return !readKinds[q.Type]
}

func (q *Query) SetRefresh(refresh bool) {
	q.Refresh = &refresh
}

// Finalize returns the arguments handed to the transport. They share no maps with the
// query, so the transport may change them freely.
func (q *Query) Finalize() map[string]interface{} {
	if q.Failed() {
		return map[string]interface{}{
			ArgIndex: q.Index,
			ArgBody:  failedBody(q.Type),
		}
	}

	args := deepCopy(q.Arguments).(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	args[ArgIndex] = q.Index
	if len(q.Body) > 0 {
		args[ArgBody] = deepCopy(q.Body)
	}
	if q.Refresh != nil {
		args[ArgRefresh] = *q.Refresh
	}

	return args
}

func (q *Query) String() string {
	return fmt.Sprintf("%s %s (%s)", q.Gate(), q.Index, q.Status)
}

// failedBody filters on an _id no document can have.
func failedBody(kind Kind) map[string]interface{} {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{
							"_id": failedFilterValue,
						},
					},
				},
			},
		},
	}
	if kind != KindCount {
		body["size"] = 0
	}

	return body
}

func deepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if v == nil {
			return map[string]interface{}(nil)
		}
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			result[k] = deepCopy(item)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = deepCopy(item)
		}
		return result
	default:
		return v
	}
}
