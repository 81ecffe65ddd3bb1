package aggregation

import (
	"fmt"
	"math"
	"strings"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// ErrOperandType is returned when an arithmetic expression gets an operand it
// cannot use. It is scoped to one record.
type ErrOperandType struct {
	Operator string
	Operand  any
}

// Error implements [error].
func (e ErrOperandType) Error() string {
	return fmt.Sprintf("%s: unsupported operand %v (%T)", e.Operator, e.Operand, e.Operand)
}

// Unwrap allows matching with [domain.ErrTypeMismatch].
func (e ErrOperandType) Unwrap() error { return domain.ErrTypeMismatch }

// Expr is an expression evaluated against one record.
type Expr interface {
	// eval returns the value of the expression and whether it is defined.
	eval(e *env, doc domain.Document) (any, bool, error)
}

// FieldRef reads a dotted field of the record.
type FieldRef struct {
	Path string
}

// Field returns an expression reading path. Reading through arrays yields the
// list of reached values.
func Field(path string) FieldRef { return FieldRef{Path: path} }

func (f FieldRef) eval(e *env, doc domain.Document) (any, bool, error) {
	addr, err := e.fieldNavigator.GetAddress(f.Path)
	if err != nil {
		return nil, false, err
	}
	fields, expanded, err := e.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return nil, false, err
	}
	if !expanded {
		if len(fields) == 0 {
			return nil, false, nil
		}
		v, defined := fields[0].Get()
		return v, defined, nil
	}
	res := make([]any, 0, len(fields))
	for _, field := range fields {
		if v, defined := field.Get(); defined {
			res = append(res, v)
		}
	}
	return res, true, nil
}

// Literal is a constant value.
type Literal struct {
	Value any
}

// Lit returns a constant expression.
func Lit(v any) Literal { return Literal{Value: v} }

func (l Literal) eval(*env, domain.Document) (any, bool, error) {
	return l.Value, true, nil
}

// Object builds a document out of expressions. Undefined values are omitted.
type Object map[string]Expr

func (o Object) eval(e *env, doc domain.Document) (any, bool, error) {
	res, err := e.docFac(nil)
	if err != nil {
		return nil, false, err
	}
	for k, expr := range o {
		v, defined, err := expr.eval(e, doc)
		if err != nil {
			return nil, false, err
		}
		if defined {
			res.Set(k, v)
		}
	}
	return res, true, nil
}

// Array builds a list out of expressions. Undefined values become nil.
type Array []Expr

func (a Array) eval(e *env, doc domain.Document) (any, bool, error) {
	res := make([]any, len(a))
	for n, expr := range a {
		v, _, err := expr.eval(e, doc)
		if err != nil {
			return nil, false, err
		}
		res[n] = v
	}
	return res, true, nil
}

// Arith applies an arithmetic operator to its arguments.
type Arith struct {
	Op   string
	Args []Expr
}

// Add sums its arguments.
func Add(args ...Expr) Arith { return Arith{Op: "$add", Args: args} }

// Subtract subtracts b from a.
func Subtract(a, b Expr) Arith { return Arith{Op: "$subtract", Args: []Expr{a, b}} }

// Multiply multiplies its arguments.
func Multiply(args ...Expr) Arith { return Arith{Op: "$multiply", Args: args} }

// Divide divides a by b. The result is always a float64.
func Divide(a, b Expr) Arith { return Arith{Op: "$divide", Args: []Expr{a, b}} }

// Mod returns the remainder of a divided by b, with the sign of a.
func Mod(a, b Expr) Arith { return Arith{Op: "$mod", Args: []Expr{a, b}} }

// arity is the number of arguments of each operator. Zero means any number.
var arity = map[string]int{
	"$add":      0,
	"$multiply": 0,
	"$subtract": 2,
	"$divide":   2,
	"$mod":      2,
}

func (a Arith) eval(e *env, doc domain.Document) (any, bool, error) {
	if n, ok := arity[a.Op]; !ok || (n > 0 && len(a.Args) != n) {
		return nil, false, fmt.Errorf("%w: %s with %d arguments", domain.ErrInvalidSpec, a.Op, len(a.Args))
	}

	nums := make([]any, len(a.Args))
	allInts := true
	for n, arg := range a.Args {
		v, defined, err := arg.eval(e, doc)
		if err != nil {
			return nil, false, err
		}
		if !defined {
			return nil, false, ErrOperandType{Operator: a.Op, Operand: nil}
		}
		if _, ok := structure.AsFloat(v); !ok {
			return nil, false, ErrOperandType{Operator: a.Op, Operand: v}
		}
		if _, ok := structure.AsInt64(v); !ok {
			allInts = false
		}
		nums[n] = v
	}

	if allInts && a.Op != "$divide" {
		return a.evalInts(nums)
	}
	return a.evalFloats(nums)
}

func (a Arith) evalInts(nums []any) (any, bool, error) {
	ints := make([]int64, len(nums))
	for n, v := range nums {
		ints[n], _ = structure.AsInt64(v)
	}
	switch a.Op {
	case "$add":
		var sum int64
		for _, i := range ints {
			var ok bool
			if sum, ok = addInt64(sum, i); !ok {
				return a.evalFloats(nums)
			}
		}
		return sum, true, nil
	case "$multiply":
		prod := int64(1)
		for _, i := range ints {
			var ok bool
			if prod, ok = mulInt64(prod, i); !ok {
				return a.evalFloats(nums)
			}
		}
		return prod, true, nil
	case "$subtract":
		diff, ok := subInt64(ints[0], ints[1])
		if !ok {
			return a.evalFloats(nums)
		}
		return diff, true, nil
	default: // $mod
		if ints[1] == 0 {
			return nil, false, ErrOperandType{Operator: a.Op, Operand: nums[1]}
		}
		return ints[0] % ints[1], true, nil
	}
}

func (a Arith) evalFloats(nums []any) (any, bool, error) {
	fs := make([]float64, len(nums))
	for n, v := range nums {
		fs[n], _ = structure.AsFloat(v)
	}
	switch a.Op {
	case "$add":
		var sum float64
		for _, f := range fs {
			sum += f
		}
		return sum, true, nil
	case "$multiply":
		prod := 1.0
		for _, f := range fs {
			prod *= f
		}
		return prod, true, nil
	case "$subtract":
		return fs[0] - fs[1], true, nil
	case "$divide":
		if fs[1] == 0 {
			return nil, false, ErrOperandType{Operator: a.Op, Operand: nums[1]}
		}
		return fs[0] / fs[1], true, nil
	default: // $mod
		if fs[1] == 0 {
			return nil, false, ErrOperandType{Operator: a.Op, Operand: nums[1]}
		}
		return math.Mod(fs[0], fs[1]), true, nil
	}
}

// ParseExpr reads a MongoDB-shaped expression: "$path" field references,
// operator documents, plain documents, lists and literals.
func ParseExpr(v any) (Expr, error) {
	switch t := v.(type) {
	case Expr:
		return t, nil
	case string:
		if strings.HasPrefix(t, "$$") {
			return nil, fmt.Errorf("%w: variables are not supported: %s", domain.ErrInvalidSpec, t)
		}
		if path, ok := strings.CutPrefix(t, "$"); ok {
			if path == "" {
				return nil, fmt.Errorf("%w: empty field reference", domain.ErrInvalidSpec)
			}
			return Field(path), nil
		}
		return Lit(t), nil
	case []any:
		res := make(Array, len(t))
		for n, item := range t {
			expr, err := ParseExpr(item)
			if err != nil {
				return nil, err
			}
			res[n] = expr
		}
		return res, nil
	case domain.Document:
		return parseDocExpr(t)
	case map[string]any:
		d, err := data.NewDocument(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSpec, err)
		}
		return parseDocExpr(d)
	}
	return Lit(v), nil
}

func parseDocExpr(d domain.Document) (Expr, error) {
	operators := 0
	for k := range d.Keys() {
		if strings.HasPrefix(k, "$") {
			operators++
		}
	}
	if operators == 0 {
		res := make(Object, d.Len())
		for k, v := range d.Iter() {
			expr, err := ParseExpr(v)
			if err != nil {
				return nil, err
			}
			res[k] = expr
		}
		return res, nil
	}
	if d.Len() != 1 {
		return nil, fmt.Errorf("%w: expression documents take exactly one operator", domain.ErrInvalidSpec)
	}

	for op, arg := range d.Iter() {
		if op == "$literal" {
			return Lit(arg), nil
		}
		n, ok := arity[op]
		if !ok {
			return nil, fmt.Errorf("%w: unknown expression operator %q", domain.ErrInvalidSpec, op)
		}
		list, isList := arg.([]any)
		if !isList {
			list = []any{arg}
		}
		if n > 0 && len(list) != n {
			return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", domain.ErrInvalidSpec, op, n, len(list))
		}
		args := make([]Expr, len(list))
		for i, item := range list {
			expr, err := ParseExpr(item)
			if err != nil {
				return nil, err
			}
			args[i] = expr
		}
		return Arith{Op: op, Args: args}, nil
	}
	return nil, nil
}

// addInt64 returns a+b and false when the result overflows.
func addInt64(a, b int64) (int64, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

func subInt64(a, b int64) (int64, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	return c, c/b == a
}
