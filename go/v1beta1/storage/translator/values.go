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

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
)

// field resolves the name of the document field a node refers to.
func (v *visitor) field(node ast.Node) (string, error) {
	switch n := node.(type) {
	case *ast.Attribute:
		return n.Name, nil
	case ast.SQLLiteral:
		return string(n), nil
	case *ast.Quoted:
		if s, ok := n.Value.(string); ok {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: %T does not refer to a field", ErrInvalidTranslation, node)
}

// value resolves a literal value. An unbound value marks the query as failed and reports
// bound as false.
func (v *visitor) value(node ast.Node) (value interface{}, bound bool, err error) {
	if node == nil {
		return nil, true, nil
	}

	switch n := node.(type) {
	case *ast.Quoted:
		return n.Value, true, nil
	case ast.SQLLiteral:
		return string(n), true, nil
	case ast.Bindable:
		value, ok := n.BindValue()
		if !ok {
			v.q.MarkFailed()
			return nil, false, nil
		}
		return value, true, nil
	case *ast.Attribute:
		return nil, false, fmt.Errorf("%w: comparing field %q to another field", ErrInvalidTranslation, n.Name)
	default:
		return nil, false, fmt.Errorf("%w: %T is not a value", ErrUnsupportedNode, node)
	}
}

// values resolves a list of values, separating out nulls.
func (v *visitor) values(nodes []ast.Node) (values []interface{}, includesNull, bound bool, err error) {
	values = []interface{}{}
	for _, node := range nodes {
		value, ok, err := v.value(node)
		if err != nil || !ok {
			return nil, false, false, err
		}
		if value == nil {
			includesNull = true
			continue
		}
		values = append(values, value)
	}

	return values, includesNull, true, nil
}
