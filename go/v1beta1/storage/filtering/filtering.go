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

package filtering

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/overloads"
	"github.com/hashicorp/go-multierror"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/rode/es-relation/go/v1beta1/storage/ast"
)

//go:generate mockgen -destination=../../../mocks/filterer.go -package=mocks github.com/rode/es-relation/go/v1beta1/storage/filtering Filterer

// Filterer turns a CEL filter expression into a predicate tree.
type Filterer interface {
	ParseExpression(filter string) (ast.Node, error)
}

type filterer struct{}

func NewFilterer() Filterer {
	return &filterer{}
}

const nestedFilter = "nestedFilter"

// field is an identifier or a selection such as `resource.uri`
type field string

// ParseExpression will serve as the entrypoint to the filter
// that is eventually passed to visit which will handle the recursive logic
func (f *filterer) ParseExpression(filter string) (ast.Node, error) {
	env, err := cel.NewEnv(
		cel.ClearMacros(),
		cel.Declarations(decls.NewFunction(
			nestedFilter, decls.NewOverload(nestedFilter, []*expr.Type{decls.Any}, decls.Any))),
	)

	if err != nil {
		return nil, err
	}
	parsedExpr, issues := env.Parse(filter)
	if issues != nil && len(issues.Errors()) > 0 {
		var resultErr error = fmt.Errorf("error parsing filter")
		for _, e := range issues.Errors() {
			resultErr = multierror.Append(resultErr, fmt.Errorf("%s (%d:%d)", e.Message, e.Location.Line(), e.Location.Column()))
		}

		return nil, resultErr
	}

	return f.visitPredicate(parsedExpr.Expr(), "")
}

func (f *filterer) visit(expression *expr.Expr, depth string) (interface{}, error) {
	switch expression.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return f.visitIdent(expression, depth)
	case *expr.Expr_ConstExpr:
		return f.visitConst(expression, depth)
	case *expr.Expr_SelectExpr:
		return f.visitSelect(expression, depth)
	case *expr.Expr_ListExpr:
		return f.visitList(expression, depth)
	case *expr.Expr_CallExpr:
		return f.visitCall(expression, depth)
	default:
		return nil, fmt.Errorf("unrecognized expression: %v", expression)
	}
}

func (f *filterer) visitIdent(expression *expr.Expr, depth string) (field, error) {
	return field(addPath(depth, expression.GetIdentExpr().Name)), nil
}

func (f *filterer) visitConst(expression *expr.Expr, _ string) (*ast.Quoted, error) {
	constantExpr := expression.GetConstExpr()

	var value interface{}

	switch constantExpr.ConstantKind.(type) {
	case *expr.Constant_BoolValue:
		value = constantExpr.GetBoolValue()
	case *expr.Constant_StringValue:
		value = constantExpr.GetStringValue()
	case *expr.Constant_Int64Value:
		value = constantExpr.GetInt64Value()
	case *expr.Constant_Uint64Value:
		value = constantExpr.GetUint64Value()
	case *expr.Constant_DoubleValue:
		value = constantExpr.GetDoubleValue()
	case *expr.Constant_NullValue:
		value = nil
	default:
		return nil, fmt.Errorf("unrecognized constant kind %T", constantExpr.ConstantKind)
	}

	return ast.Value(value), nil
}

func (f *filterer) visitSelect(expression *expr.Expr, depth string) (field, error) {
	selectExp := expression.GetSelectExpr()

	value, err := f.visit(selectExp.Operand, "")
	if err != nil {
		return "", err
	}
	operand, ok := value.(field)
	if !ok {
		return "", fmt.Errorf("cannot select %s from a value", selectExp.Field)
	}

	return field(addPath(depth, fmt.Sprintf("%s.%s", operand, selectExp.Field))), nil
}

func (f *filterer) visitList(expression *expr.Expr, depth string) ([]ast.Node, error) {
	var values []ast.Node
	for _, element := range expression.GetListExpr().Elements {
		value, err := f.visit(element, depth)
		if err != nil {
			return nil, err
		}
		quoted, ok := value.(*ast.Quoted)
		if !ok {
			return nil, fmt.Errorf("expected list element %v to be a constant", value)
		}
		values = append(values, quoted)
	}

	return values, nil
}

func (f *filterer) visitCall(expression *expr.Expr, depth string) (interface{}, error) {
	function := expression.GetCallExpr().Function
	switch function {
	case operators.LogicalAnd,
		operators.LogicalOr:
		return f.visitLogicalOperator(expression, depth)
	case operators.Equals,
		operators.Greater,
		operators.GreaterEquals,
		operators.Less,
		operators.LessEquals,
		operators.NotEquals:
		return f.visitBinaryOperator(expression, depth)
	case operators.In:
		return f.visitIn(expression, depth)
	case operators.LogicalNot:
		return f.visitNot(expression, depth)
	case overloads.Contains,
		overloads.StartsWith:
		return f.visitCallFunction(expression, depth)
	case nestedFilter:
		return f.visitNestedFilterCall(expression, depth)
	default:
		return nil, fmt.Errorf("unrecognized function: %s", function)
	}
}

func (f *filterer) visitLogicalOperator(expression *expr.Expr, depth string) (ast.Node, error) {
	function := expression.GetCallExpr().Function

	var children []ast.Node
	for _, arg := range expression.GetCallExpr().Args {
		child, err := f.visitPredicate(arg, depth)
		if err != nil {
			return nil, err
		}

		// flatten chains of the same operator
		switch c := child.(type) {
		case *ast.And:
			if function == operators.LogicalAnd {
				children = append(children, c.Children...)
				continue
			}
		case *ast.Or:
			if function == operators.LogicalOr {
				children = append(children, c.Children...)
				continue
			}
		}
		children = append(children, child)
	}

	if function == operators.LogicalAnd {
		return &ast.And{Children: children}, nil
	}

	return &ast.Or{Children: children}, nil
}

func (f *filterer) visitBinaryOperator(expression *expr.Expr, depth string) (ast.Node, error) {
	args := expression.GetCallExpr().Args

	if len(args) != 2 {
		return nil, fmt.Errorf("unexpected number of arguments to binary operator")
	}

	lhs, err := f.visit(args[0], depth)
	if err != nil {
		return nil, err
	}

	rhs, err := f.visit(args[1], depth)
	if err != nil {
		return nil, err
	}

	function := expression.GetCallExpr().Function
	left, right, swapped := operands(lhs, rhs)
	if swapped {
		function = mirrored[function]
	}

	switch function {
	case operators.Equals:
		return &ast.Equality{Left: left, Right: right}, nil
	case operators.NotEquals:
		return &ast.NotEqual{Left: left, Right: right}, nil
	case operators.Greater:
		return &ast.GreaterThan{Left: left, Right: right}, nil
	case operators.GreaterEquals:
		return &ast.GreaterThanOrEqual{Left: left, Right: right}, nil
	case operators.Less:
		return &ast.LessThan{Left: left, Right: right}, nil
	case operators.LessEquals:
		return &ast.LessThanOrEqual{Left: left, Right: right}, nil
	}

	return nil, fmt.Errorf("unrecognized function %s", expression.GetCallExpr().Function)
}

// the comparison that holds when both sides are swapped
var mirrored = map[string]string{
	operators.Equals:        operators.Equals,
	operators.NotEquals:     operators.NotEquals,
	operators.Greater:       operators.Less,
	operators.GreaterEquals: operators.LessEquals,
	operators.Less:          operators.Greater,
	operators.LessEquals:    operators.GreaterEquals,
}

// operands puts the field on the left. When both sides are fields the right one is read as a
// literal, so `a == b` compares the field a with the string "b".
func operands(lhs, rhs interface{}) (ast.Node, ast.Node, bool) {
	switch l := lhs.(type) {
	case field:
		return ast.Attr(string(l)), operand(rhs), false
	case *ast.Quoted:
		if r, ok := rhs.(field); ok {
			return ast.Attr(string(r)), l, true
		}
		return l, operand(rhs), false
	}

	return operand(lhs), operand(rhs), false
}

func operand(value interface{}) ast.Node {
	switch v := value.(type) {
	case field:
		return ast.Value(string(v))
	case ast.Node:
		return v
	}

	return ast.Value(value)
}

func (f *filterer) visitIn(expression *expr.Expr, depth string) (ast.Node, error) {
	args := expression.GetCallExpr().Args
	if len(args) != 2 {
		return nil, fmt.Errorf("unexpected number of arguments to in operator")
	}

	lhs, err := f.visit(args[0], depth)
	if err != nil {
		return nil, err
	}
	target, ok := lhs.(field)
	if !ok {
		return nil, fmt.Errorf("expected %v to be a field", lhs)
	}

	rhs, err := f.visit(args[1], depth)
	if err != nil {
		return nil, err
	}
	values, ok := rhs.([]ast.Node)
	if !ok {
		return nil, fmt.Errorf("expected %v to be a list", rhs)
	}

	return &ast.In{Left: ast.Attr(string(target)), Right: values}, nil
}

func (f *filterer) visitNot(expression *expr.Expr, depth string) (ast.Node, error) {
	args := expression.GetCallExpr().Args
	if len(args) != 1 {
		return nil, fmt.Errorf("unexpected number of arguments to negation")
	}

	predicate, err := f.visitPredicate(args[0], depth)
	if err != nil {
		return nil, err
	}

	return &ast.Not{Expr: predicate}, nil
}

func (f *filterer) visitCallFunction(expression *expr.Expr, depth string) (ast.Node, error) {
	callExpr := expression.GetCallExpr()

	parsedTarget, err := f.visit(callExpr.Target, depth)
	if err != nil {
		return nil, err
	}

	if len(callExpr.Args) != 1 {
		return nil, fmt.Errorf("invalid number of arguments")
	}

	parsedArg, err := f.visit(callExpr.Args[0], depth)
	if err != nil {
		return nil, err
	}

	target, ok := parsedTarget.(field)
	if !ok {
		return nil, fmt.Errorf("expected %[1]v to be a field but was %[1]T", parsedTarget)
	}

	arg, err := assertString(parsedArg)
	if err != nil {
		return nil, err
	}

	switch callExpr.Function {
	case overloads.StartsWith:
		return &ast.Matches{Left: ast.Attr(string(target)), Right: ast.Value(arg)}, nil
	case overloads.Contains:
		return &ast.Contains{Left: ast.Attr(string(target)), Right: ast.Value(arg)}, nil
	}

	return nil, fmt.Errorf("unrecognized function: %s", callExpr.Function)
}

func (f *filterer) visitNestedFilterCall(expression *expr.Expr, depth string) (ast.Node, error) {
	callExpr := expression.GetCallExpr()

	parsedTarget, err := f.visit(callExpr.Target, depth)
	if err != nil {
		return nil, err
	}

	if len(callExpr.Args) != 1 {
		return nil, fmt.Errorf("invalid number of arguments")
	}

	target, ok := parsedTarget.(field)
	if !ok {
		return nil, fmt.Errorf("expected %[1]v to be a field but was %[1]T", parsedTarget)
	}

	nestedPredicate, err := f.visitPredicate(callExpr.Args[0], string(target))
	if err != nil {
		return nil, err
	}

	return &ast.Nested{
		Path: string(target),
		Expr: nestedPredicate,
	}, nil
}

func (f *filterer) visitPredicate(expression *expr.Expr, depth string) (ast.Node, error) {
	value, err := f.visit(expression, depth)
	if err != nil {
		return nil, err
	}

	if _, ok := value.(*ast.Quoted); ok {
		return nil, fmt.Errorf("expected %v to be a condition", value)
	}
	predicate, ok := value.(ast.Node)
	if !ok {
		return nil, fmt.Errorf("expected %v to be a condition", value)
	}

	return predicate, nil
}

func assertString(value interface{}) (string, error) {
	switch v := value.(type) {
	case field:
		return string(v), nil
	case *ast.Quoted:
		if s, ok := v.Value.(string); ok {
			return s, nil
		}
	}

	return "", fmt.Errorf("expected %v to have type string", value)
}

func addPath(depth, path string) string {
	if depth == "" {
		return path
	}

	return fmt.Sprintf("%s.%s", depth, path)
}
