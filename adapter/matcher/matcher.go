// Package matcher contains the default implementation of [domain.Matcher]
// using a MongoDB-like filter language.
//
// Field operators: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $exists,
// $regex (with $options), $size, $elemMatch and $not. Logic operators: $and,
// $or, $nor and $not. Fields at the same level are AND-ed.
package matcher

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// ErrMixedOperators is returned when user provides a field condition mixing
// operators and normal fields.
var ErrMixedOperators = fmt.Errorf("%w: cannot mix operators and normal fields", domain.ErrInvalidSpec)

// ErrUnknownOperator is returned when user provides an unknown dollar field.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// Unwrap allows matching with [domain.ErrInvalidSpec].
func (e ErrUnknownOperator) Unwrap() error { return domain.ErrInvalidSpec }

// ErrCompArgType is returned when an operator is called with an argument of
// invalid type.
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf("%s value should be of type %s, got %T", e.Comp, e.Want, e.Actual)
}

// Unwrap allows matching with [domain.ErrInvalidSpec].
func (e ErrCompArgType) Unwrap() error { return domain.ErrInvalidSpec }

// Matcher implements [domain.Matcher].
type Matcher struct {
	documentFactory domain.DocumentFactory
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
	query           Query
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		documentFactory: data.NewDocument,
		comparer:        comparer.NewComparer(),
		fieldNavigator:  fieldnavigator.NewFieldNavigator(data.NewDocument),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// SetQuery implements [domain.Matcher]. A nil query matches everything. On
// failure the previous query is kept.
func (m *Matcher) SetQuery(query any) error {
	lo, err := m.compileAnd(query)
	if err != nil {
		return err
	}
	m.query = Query{Lo: lo}
	return nil
}

type pair struct {
	key string
	val any
}

// pairs lists the fields of obj sorted by key, so compilation is
// deterministic.
func (m *Matcher) pairs(comp string, obj any) ([]pair, error) {
	seq, l, err := structure.Seq2(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompArgType{Comp: comp, Want: "document", Actual: obj}, err)
	}
	res := make([]pair, 0, l)
	for k, v := range seq {
		res = append(res, pair{key: k, val: v})
	}
	slices.SortFunc(res, func(a, b pair) int { return cmp.Compare(a.key, b.key) })
	return res, nil
}

func isOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}

// compileAnd compiles a filter document. Top level operators and fields can
// be mixed.
func (m *Matcher) compileAnd(filter any) (LogicOp, error) {
	lo := LogicOp{Type: And}
	if filter == nil {
		return lo, nil
	}

	ps, err := m.pairs("filter", getConcrete(filter))
	if err != nil {
		return lo, err
	}

	for _, p := range ps {
		if !isOperator(p.key) {
			rule, err := m.compileRule(p.key, p.val)
			if err != nil {
				return lo, err
			}
			lo.Rules = append(lo.Rules, rule)
			continue
		}

		var sub LogicOp
		switch p.key {
		case "$and":
			sub, err = m.compileList(And, p.key, p.val)
		case "$or":
			sub, err = m.compileList(Or, p.key, p.val)
		case "$nor":
			sub, err = m.compileList(Nor, p.key, p.val)
		case "$not":
			var inner LogicOp
			inner, err = m.compileAnd(p.val)
			sub = LogicOp{Type: Not, Sub: []LogicOp{inner}}
		default:
			err = ErrUnknownOperator{Operator: p.key}
		}
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) compileList(typ uint8, name string, v any) (LogicOp, error) {
	lo := LogicOp{Type: typ}
	items, l, err := structure.Seq(v)
	if err != nil || l == 0 {
		return lo, ErrCompArgType{Comp: name, Want: "non-empty list", Actual: v}
	}
	lo.Sub = make([]LogicOp, 0, l)
	for item := range items {
		sub, err := m.compileAnd(item)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) compileRule(field string, v any) (FieldRule, error) {
	addr, err := m.fieldNavigator.GetAddress(field)
	if err != nil {
		return FieldRule{}, err
	}
	conds, err := m.compileConds(v)
	if err != nil {
		return FieldRule{}, err
	}
	return FieldRule{Addr: addr, Conds: conds}, nil
}

// compileConds compiles the condition of a single field. Values that are
// not operator documents mean equality.
func (m *Matcher) compileConds(v any) ([]Cond, error) {
	v = getConcrete(v)
	if r, ok := v.(*regexp.Regexp); ok {
		return []Cond{{Op: Regex, Rgx: r}}, nil
	}

	ps, ok := m.operatorPairs(v)
	if !ok {
		val, err := m.value(v)
		if err != nil {
			return nil, err
		}
		return []Cond{{Op: Eq, Val: val}}, nil
	}
	for _, p := range ps {
		if !isOperator(p.key) {
			return nil, ErrMixedOperators
		}
	}
	return m.compileOps(ps)
}

// operatorPairs returns the fields of v if v is an object with at least one
// operator key.
func (m *Matcher) operatorPairs(v any) ([]pair, bool) {
	switch v.(type) {
	case nil, time.Time, []any:
		return nil, false
	}
	ps, err := m.pairs("", v)
	if err != nil {
		return nil, false
	}
	for _, p := range ps {
		if isOperator(p.key) {
			return ps, true
		}
	}
	return nil, false
}

func (m *Matcher) compileOps(ps []pair) ([]Cond, error) {
	conds := make([]Cond, 0, len(ps))
	var regexOpts string
	var hasRegex bool
	for _, p := range ps {
		switch p.key {
		case "$options":
			s, ok := p.val.(string)
			if !ok {
				return nil, ErrCompArgType{Comp: "$options", Want: "string", Actual: p.val}
			}
			regexOpts = s
		case "$regex":
			hasRegex = true
		}
	}
	if regexOpts != "" && !hasRegex {
		return nil, ErrCompArgType{Comp: "$options", Want: "$regex sibling", Actual: nil}
	}

	for _, p := range ps {
		var cond Cond
		var err error
		switch p.key {
		case "$options":
			continue
		case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
			cond, err = m.compileComparison(p.key, p.val)
		case "$in", "$nin":
			cond, err = m.compileIn(p.key, p.val)
		case "$exists":
			cond = Cond{Op: Exists, Val: truthy(getConcrete(p.val))}
		case "$regex":
			cond, err = m.compileRegex(p.val, regexOpts)
		case "$size":
			n, ok := structure.AsInteger(getConcrete(p.val))
			if !ok || n < 0 {
				err = ErrCompArgType{Comp: "$size", Want: "non-negative integer", Actual: p.val}
			}
			cond = Cond{Op: Size, Val: n}
		case "$elemMatch":
			cond, err = m.compileElemMatch(p.val)
		case "$not":
			cond, err = m.compileNot(p.val)
		default:
			err = ErrUnknownOperator{Operator: p.key}
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

var comparisons = map[string]uint8{
	"$eq":  Eq,
	"$ne":  Ne,
	"$gt":  Gt,
	"$gte": Gte,
	"$lt":  Lt,
	"$lte": Lte,
}

func (m *Matcher) compileComparison(op string, v any) (Cond, error) {
	val, err := m.value(v)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: comparisons[op], Val: val}, nil
}

func (m *Matcher) compileIn(op string, v any) (Cond, error) {
	items, l, err := structure.Seq(getConcrete(v))
	if err != nil {
		return Cond{}, ErrCompArgType{Comp: op, Want: "list", Actual: v}
	}
	list := make([]any, 0, l)
	for item := range items {
		val, err := m.value(item)
		if err != nil {
			return Cond{}, err
		}
		list = append(list, val)
	}
	typ := In
	if op == "$nin" {
		typ = Nin
	}
	return Cond{Op: typ, List: list}, nil
}

func (m *Matcher) compileRegex(v any, opts string) (Cond, error) {
	switch t := getConcrete(v).(type) {
	case *regexp.Regexp:
		if opts != "" {
			return m.compileRegex(t.String(), opts)
		}
		return Cond{Op: Regex, Rgx: t}, nil
	case string:
		if opts != "" {
			t = "(?" + opts + ")" + t
		}
		r, err := regexp.Compile(t)
		if err != nil {
			return Cond{}, fmt.Errorf("%w: %w", ErrCompArgType{Comp: "$regex", Want: "valid pattern", Actual: v}, err)
		}
		return Cond{Op: Regex, Rgx: r}, nil
	default:
		return Cond{}, ErrCompArgType{Comp: "$regex", Want: "string or regexp", Actual: v}
	}
}

// compileElemMatch applies field operators to array items directly when the
// argument holds only field operators, and a full filter otherwise.
func (m *Matcher) compileElemMatch(v any) (Cond, error) {
	v = getConcrete(v)
	ps, err := m.pairs("$elemMatch", v)
	if err != nil {
		return Cond{}, err
	}

	onValue := len(ps) > 0
	for _, p := range ps {
		switch p.key {
		case "$and", "$or", "$nor":
			onValue = false
		default:
			onValue = onValue && isOperator(p.key)
		}
	}

	var lo LogicOp
	if onValue {
		conds, err := m.compileOps(ps)
		if err != nil {
			return Cond{}, err
		}
		lo = LogicOp{Type: And, Rules: []FieldRule{{Conds: conds}}}
	} else if lo, err = m.compileAnd(v); err != nil {
		return Cond{}, err
	}
	return Cond{Op: ElemMatch, Sub: &Query{Lo: lo}}, nil
}

func (m *Matcher) compileNot(v any) (Cond, error) {
	v = getConcrete(v)
	if r, ok := v.(*regexp.Regexp); ok {
		return Cond{Op: NotCond, Not: []Cond{{Op: Regex, Rgx: r}}}, nil
	}
	ps, ok := m.operatorPairs(v)
	if !ok {
		return Cond{}, ErrCompArgType{Comp: "$not", Want: "operator document or regexp", Actual: v}
	}
	for _, p := range ps {
		if !isOperator(p.key) {
			return Cond{}, ErrMixedOperators
		}
	}
	conds, err := m.compileOps(ps)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: NotCond, Not: conds}, nil
}

// value normalizes an operand so it can be compared with stored values:
// typed slices become []any and maps or structs become documents.
func (m *Matcher) value(v any) (any, error) {
	v = getConcrete(v)
	if _, ok := structure.AsFloat(v); ok {
		return v, nil
	}
	switch t := v.(type) {
	case nil, bool, string, time.Time, *regexp.Regexp, domain.Document:
		return v, nil
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			val, err := m.value(item)
			if err != nil {
				return nil, err
			}
			res[n] = val
		}
		return res, nil
	}
	if items, l, err := structure.Seq(v); err == nil {
		res := make([]any, 0, l)
		for item := range items {
			val, err := m.value(item)
			if err != nil {
				return nil, err
			}
			res = append(res, val)
		}
		return res, nil
	}
	if _, _, err := structure.Seq2(v); err == nil {
		return m.documentFactory(v)
	}
	return v, nil
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := structure.AsFloat(v); ok {
		return f != 0
	}
	return true
}

func getConcrete(v any) any {
	for {
		g, ok := v.(domain.Getter)
		if !ok {
			return v
		}
		if v, ok = g.Get(); !ok {
			return nil
		}
	}
}
