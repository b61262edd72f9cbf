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
	"fmt"

	"github.com/spf13/cast"
)

// Caster converts a raw response value into its Go representation.
type Caster interface {
	Cast(value interface{}) (interface{}, error)
}

type CasterFunc func(value interface{}) (interface{}, error)

func (f CasterFunc) Cast(value interface{}) (interface{}, error) {
	return f(value)
}

// Passthrough returns values unchanged.
var Passthrough Caster = CasterFunc(func(value interface{}) (interface{}, error) {
	return value, nil
})

// Object accepts only maps, which is how object and nested fields are returned.
var Object Caster = objectCaster{}

type objectCaster struct{}

func (objectCaster) Cast(value interface{}) (interface{}, error) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object but got %T", value)
	}

	return m, nil
}

var (
	stringCaster   = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToStringE(v) })
	integerCaster  = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToInt64E(v) })
	unsignedCaster = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToUint64E(v) })
	floatCaster    = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToFloat64E(v) })
	boolCaster     = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToBoolE(v) })
	timeCaster     = CasterFunc(func(v interface{}) (interface{}, error) { return cast.ToTimeE(v) })
)

// https://www.elastic.co/guide/en/elasticsearch/reference/current/mapping-types.html
var castersByType = map[string]Caster{
	"keyword":          stringCaster,
	"constant_keyword": stringCaster,
	"wildcard":         stringCaster,
	"text":             stringCaster,
	"ip":               stringCaster,
	"long":             integerCaster,
	"integer":          integerCaster,
	"short":            integerCaster,
	"byte":             integerCaster,
	"unsigned_long":    unsignedCaster,
	"double":           floatCaster,
	"float":            floatCaster,
	"half_float":       floatCaster,
	"scaled_float":     floatCaster,
	"boolean":          boolCaster,
	"date":             timeCaster,
	"date_nanos":       timeCaster,
	"object":           Object,
	"nested":           Object,
	"flattened":        Object,
}

// CasterForType returns the caster for an Elasticsearch mapping type. Unknown types are
// passed through.
func CasterForType(mappingType string) Caster {
	if c, ok := castersByType[mappingType]; ok {
		return c
	}

	return Passthrough
}

// CastResult is the outcome of a multicast: either the cast value, or the raw value when
// the nested caster failed.
type CastResult struct {
	Value    interface{}
	Fallback bool
	Err      error
}

// Multicast casts fields that may hold a single value or a list of values of the same
// type. Object fields are always cast as a whole.
type Multicast struct {
	Nested Caster
	object bool
}

func NewMulticast(nested Caster) *Multicast {
	if nested == nil {
		nested = Passthrough
	}
	_, object := nested.(objectCaster)

	return &Multicast{
		Nested: nested,
		object: object,
	}
}

// MulticastForType wraps the caster of a mapping type.
func MulticastForType(mappingType string) *Multicast {
	return NewMulticast(CasterForType(mappingType))
}

func (m *Multicast) CastValue(raw interface{}) CastResult {
	value, err := m.cast(raw)
	if err != nil {
		return CastResult{Value: raw, Fallback: true, Err: err}
	}

	return CastResult{Value: value}
}

// Cast never fails: values the nested caster rejects are returned unmodified.
func (m *Multicast) Cast(raw interface{}) (interface{}, error) {
	return m.CastValue(raw).Value, nil
}

func (m *Multicast) cast(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if m.object {
		if list, ok := raw.([]interface{}); ok {
			return m.castList(list)
		}
		return m.Nested.Cast(raw)
	}

	switch value := raw.(type) {
	case []interface{}:
		return m.castList(value)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(value))
		for k, item := range value {
			cast, err := m.Nested.Cast(item)
			if err != nil {
				return nil, err
			}
			result[k] = cast
		}
		return result, nil
	default:
		return m.Nested.Cast(value)
	}
}

func (m *Multicast) castList(list []interface{}) (interface{}, error) {
	result := make([]interface{}, 0, len(list))
	for _, item := range list {
		cast, err := m.Nested.Cast(item)
		if err != nil {
			return nil, err
		}
		result = append(result, cast)
	}

	return result, nil
}
