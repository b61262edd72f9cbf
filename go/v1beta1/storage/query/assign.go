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

type frame struct {
	key  string
	node map[string]interface{}
	// detached frames are not merged into their parent when popped
	detached bool
}

// Scope returns the path of keys currently being built.
func (q *Query) Scope() []string {
	var path []string
	for _, f := range q.frames {
		if f.detached {
			path = nil
			continue
		}
		path = append(path, f.key)
	}

	return path
}

// Assign merges value under key into the node addressed by the current scope.
func (q *Query) Assign(key string, value interface{}) {
	node := q.current()
	merged, keep := Merge(node[key], value, true)
	if !keep {
		delete(node, key)
		return
	}

	node[key] = merged
}

// AssignBlock evaluates build with key pushed onto the scope, then merges what build
// assigned into the parent scope under key. Nothing is merged when build assigns nothing.
func (q *Query) AssignBlock(key string, build func()) {
	f := q.push(key, false)
	build()
	q.pop()

	if len(f.node) > 0 {
		q.Assign(key, f.node)
	}
}

// Detached evaluates build against a fresh root and returns what it assigned, leaving the
// body untouched. Used to build composite values such as nested queries.
func (q *Query) Detached(build func()) map[string]interface{} {
	f := q.push("", true)
	build()
	q.pop()

	return f.node
}

// Override replaces a top-level body key. A nil value removes the key.
func (q *Query) Override(key string, value interface{}) {
	if q.Body == nil {
		q.Body = map[string]interface{}{}
	}
	if value == nil {
		delete(q.Body, key)
		return
	}

	q.Body[key] = deepCopy(value)
}

func (q *Query) current() map[string]interface{} {
	if len(q.frames) > 0 {
		return q.frames[len(q.frames)-1].node
	}
	if q.Body == nil {
		q.Body = map[string]interface{}{}
	}

	return q.Body
}

func (q *Query) push(key string, detached bool) *frame {
	f := &frame{
		key:      key,
		node:     map[string]interface{}{},
		detached: detached,
	}
	q.frames = append(q.frames, f)

	return f
}

func (q *Query) pop() {
	q.frames = q.frames[:len(q.frames)-1]
}

// Merge combines an existing value with an incoming one:
//   - nil incoming removes the value (keep is false)
//   - arrays concatenate
//   - maps merge deeply: nested maps merge, nested arrays concatenate, nil deletes a key,
//     anything else is overwritten
//   - strings concatenate when concat is set (top level of an assignment), otherwise they
//     are overwritten
//   - scalars overwrite, also when the existing value has another shape
//
// existing may be modified in place; incoming is never retained by reference.
func Merge(existing, incoming interface{}, concat bool) (result interface{}, keep bool) {
	if incoming == nil {
		return nil, false
	}

	switch current := existing.(type) {
	case []interface{}:
		if values, ok := incoming.([]interface{}); ok {
			return append(current, deepCopy(values).([]interface{})...), true
		}
	case map[string]interface{}:
		if values, ok := incoming.(map[string]interface{}); ok {
			return mergeMaps(current, values), true
		}
	case string:
		if value, ok := incoming.(string); ok && concat {
			return current + value, true
		}
	}

	return deepCopy(incoming), true
}

func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		merged, keep := Merge(dst[k], v, false)
		if !keep {
			delete(dst, k)
			continue
		}
		dst[k] = merged
	}

	return dst
}
