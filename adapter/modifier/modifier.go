// Package modifier contains a [domain.Modifier] implementation that applies
// MongoDB-like update documents.
//
// An update is either a replacement document (no operator keys) or a set of
// operators: $set, $unset, $inc, $mul, $min, $max, $push, $addToSet, $pop and
// $pull. The _id of a document can never change.
package modifier

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// ErrMixedOperators is returned when an update mixes operators and normal
// fields.
var ErrMixedOperators = fmt.Errorf("%w: cannot mix modifiers and normal fields", domain.ErrInvalidSpec)

// ErrModFieldType is returned when a modifier runs on a document field of a
// type that is not accepted.
type ErrModFieldType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModFieldType) Error() string {
	return fmt.Sprintf("%s expects %s field, got %T", e.Mod, e.Want, e.Actual)
}

// Unwrap allows matching with [domain.ErrInvalidSpec].
func (e ErrModFieldType) Unwrap() error { return domain.ErrInvalidSpec }

// ErrModArgType is returned when a modifier is called with an argument of a
// type that is not accepted.
type ErrModArgType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModArgType) Error() string {
	return fmt.Sprintf("%s expects %s arg, got %T", e.Mod, e.Want, e.Actual)
}

// Unwrap allows matching with [domain.ErrInvalidSpec].
func (e ErrModArgType) Unwrap() error { return domain.ErrInvalidSpec }

// ErrUnknownModifier is returned for an unknown update operator.
type ErrUnknownModifier struct {
	Name string
}

// Error implements [error].
func (e ErrUnknownModifier) Error() string {
	return fmt.Sprintf("unknown modifier %q", e.Name)
}

// Unwrap allows matching with [domain.ErrInvalidSpec].
func (e ErrUnknownModifier) Unwrap() error { return domain.ErrInvalidSpec }

type modFunc func(domain.Document, []string, any) error

// Modifier implements [domain.Modifier].
type Modifier struct {
	comparer       domain.Comparer
	docFac         domain.DocumentFactory
	fieldNavigator domain.FieldNavigator
	matcherFactory domain.MatcherFactory
	mods           map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{
		comparer:       comparer.NewComparer(),
		docFac:         data.NewDocument,
		fieldNavigator: fieldnavigator.NewFieldNavigator(data.NewDocument),
		matcherFactory: func() domain.Matcher { return matcher.NewMatcher() },
	}
	for _, option := range options {
		option(m)
	}

	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$mul":      m.mul,
		"$min":      m.min,
		"$max":      m.max,
		"$push":     m.push,
		"$addToSet": m.addToSet,
		"$pop":      m.pop,
		"$pull":     m.pull,
	}
	return m
}

// Modify implements [domain.Modifier]. obj is never changed.
func (m *Modifier) Modify(obj domain.Document, mod domain.Document) (domain.Document, error) {
	keys := slices.Sorted(mod.Keys())
	operators := 0
	for _, k := range keys {
		if strings.HasPrefix(k, "$") {
			operators++
		}
	}
	if operators > 0 && operators != len(keys) {
		return nil, ErrMixedOperators
	}

	var res domain.Document
	var err error
	if operators == 0 {
		res, err = m.replace(obj, mod)
	} else {
		res, err = m.apply(obj, mod, keys)
	}
	if err != nil {
		return nil, err
	}

	if c, err := m.comparer.Compare(obj.ID(), res.ID()); err != nil || c != 0 {
		return nil, domain.ErrCannotModifyID
	}
	return res, nil
}

func (m *Modifier) replace(obj domain.Document, mod domain.Document) (domain.Document, error) {
	res, err := m.copyDoc(mod)
	if err != nil {
		return nil, err
	}
	if !res.Has("_id") {
		res.Set("_id", obj.ID())
	}
	return res, nil
}

func (m *Modifier) apply(obj domain.Document, mod domain.Document, ops []string) (domain.Document, error) {
	res, err := m.copyDoc(obj)
	if err != nil {
		return nil, err
	}

	for _, op := range ops {
		fn, ok := m.mods[op]
		if !ok {
			return nil, ErrUnknownModifier{Name: op}
		}
		arg, ok := mod.Get(op).(domain.Document)
		if !ok {
			return nil, ErrModArgType{Mod: op, Want: "document", Actual: mod.Get(op)}
		}
		for _, field := range slices.Sorted(arg.Keys()) {
			addr, err := m.fieldNavigator.GetAddress(field)
			if err != nil {
				return nil, err
			}
			value, err := m.copyAny(arg.Get(field))
			if err != nil {
				return nil, err
			}
			if err := fn(res, addr, value); err != nil {
				return nil, fmt.Errorf("modifying field %q: %w", field, err)
			}
		}
	}
	return res, nil
}

func (m *Modifier) copyDoc(doc domain.Document) (domain.Document, error) {
	res, err := m.docFac(nil)
	if err != nil {
		return nil, err
	}
	for k, v := range doc.Iter() {
		copied, err := m.copyAny(v)
		if err != nil {
			return nil, err
		}
		res.Set(k, copied)
	}
	return res, nil
}

func (m *Modifier) copyAny(v any) (any, error) {
	switch t := v.(type) {
	case domain.Document:
		return m.copyDoc(t)
	case []any:
		list := make([]any, len(t))
		for n, item := range t {
			copied, err := m.copyAny(item)
			if err != nil {
				return nil, err
			}
			list[n] = copied
		}
		return list, nil
	default:
		return v, nil
	}
}

// ensure returns the fields under addr, creating missing documents. A path
// crossing a non document value fails.
func (m *Modifier) ensure(mod string, obj domain.Document, addr []string) ([]domain.GetSetter, error) {
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if _, defined := f.Get(); !defined {
			return nil, ErrModFieldType{Mod: mod, Want: "document parent", Actual: nil}
		}
	}
	return fields, nil
}

func (m *Modifier) set(obj domain.Document, addr []string, arg any) error {
	fields, err := m.ensure("$set", obj, addr)
	if err != nil {
		return err
	}
	for _, field := range fields {
		field.Set(arg)
	}
	return nil
}

func (m *Modifier) unset(obj domain.Document, addr []string, _ any) error {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		field.Unset()
	}
	return nil
}

func (m *Modifier) arith(mod string, obj domain.Document, addr []string, arg any, missing any, op func(a, b any) any) error {
	if _, ok := structure.AsFloat(arg); !ok {
		return ErrModArgType{Mod: mod, Want: "number", Actual: arg}
	}
	fields, err := m.ensure(mod, obj, addr)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, _ := field.Get()
		if value == nil {
			field.Set(op(missing, arg))
			continue
		}
		if _, ok := structure.AsFloat(value); !ok {
			return ErrModFieldType{Mod: mod, Want: "number", Actual: value}
		}
		field.Set(op(value, arg))
	}
	return nil
}

func (m *Modifier) inc(obj domain.Document, addr []string, arg any) error {
	return m.arith("$inc", obj, addr, arg, int64(0), func(a, b any) any {
		x, xok := structure.AsInt64(a)
		y, yok := structure.AsInt64(b)
		if xok && yok {
			return x + y
		}
		fa, _ := structure.AsFloat(a)
		fb, _ := structure.AsFloat(b)
		return fa + fb
	})
}

func (m *Modifier) mul(obj domain.Document, addr []string, arg any) error {
	return m.arith("$mul", obj, addr, arg, int64(0), func(a, b any) any {
		x, xok := structure.AsInt64(a)
		y, yok := structure.AsInt64(b)
		if xok && yok {
			return x * y
		}
		fa, _ := structure.AsFloat(a)
		fb, _ := structure.AsFloat(b)
		return fa * fb
	})
}

func (m *Modifier) extreme(mod string, obj domain.Document, addr []string, arg any, keep func(int) bool) error {
	fields, err := m.ensure(mod, obj, addr)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, _ := field.Get()
		if value == nil {
			field.Set(arg)
			continue
		}
		c, err := m.comparer.Compare(value, arg)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidSpec, err)
		}
		if !keep(c) {
			field.Set(arg)
		}
	}
	return nil
}

func (m *Modifier) min(obj domain.Document, addr []string, arg any) error {
	return m.extreme("$min", obj, addr, arg, func(c int) bool { return c <= 0 })
}

func (m *Modifier) max(obj domain.Document, addr []string, arg any) error {
	return m.extreme("$max", obj, addr, arg, func(c int) bool { return c >= 0 })
}

// arrays returns the array fields under addr. Missing fields become empty
// arrays.
func (m *Modifier) arrays(mod string, obj domain.Document, addr []string) ([]domain.GetSetter, [][]any, error) {
	fields, err := m.ensure(mod, obj, addr)
	if err != nil {
		return nil, nil, err
	}
	lists := make([][]any, len(fields))
	for n, field := range fields {
		value, _ := field.Get()
		if value == nil {
			continue
		}
		arr, ok := value.([]any)
		if !ok {
			return nil, nil, ErrModFieldType{Mod: mod, Want: "array", Actual: value}
		}
		lists[n] = arr
	}
	return fields, lists, nil
}

// each reads the items of a {$each: [...], $slice: n} argument.
func (m *Modifier) each(mod string, arg any, allowSlice bool) ([]any, *int, error) {
	d, ok := arg.(domain.Document)
	if !ok || !d.Has("$each") {
		return []any{arg}, nil, nil
	}

	items, ok := d.Get("$each").([]any)
	if !ok {
		return nil, nil, ErrModArgType{Mod: mod, Want: "$each array", Actual: d.Get("$each")}
	}
	used := 1
	var slice *int
	if allowSlice && d.Has("$slice") {
		n, ok := structure.AsInteger(d.Get("$slice"))
		if !ok {
			return nil, nil, ErrModArgType{Mod: mod, Want: "integer $slice", Actual: d.Get("$slice")}
		}
		slice = &n
		used++
	}
	if d.Len() > used {
		return nil, nil, ErrModArgType{Mod: mod, Want: "only $each and $slice", Actual: arg}
	}
	return items, slice, nil
}

func (m *Modifier) push(obj domain.Document, addr []string, arg any) error {
	items, slice, err := m.each("$push", arg, true)
	if err != nil {
		return err
	}
	fields, lists, err := m.arrays("$push", obj, addr)
	if err != nil {
		return err
	}
	for n, field := range fields {
		res := append(slices.Clone(lists[n]), items...)
		if slice != nil {
			if *slice >= 0 {
				res = res[:min(*slice, len(res))]
			} else {
				res = res[len(res)-min(-*slice, len(res)):]
			}
		}
		field.Set(res)
	}
	return nil
}

func (m *Modifier) addToSet(obj domain.Document, addr []string, arg any) error {
	items, _, err := m.each("$addToSet", arg, false)
	if err != nil {
		return err
	}
	fields, lists, err := m.arrays("$addToSet", obj, addr)
	if err != nil {
		return err
	}
	eq := func(a, b any) (bool, error) {
		c, err := m.comparer.Compare(a, b)
		return c == 0, err
	}
	for n, field := range fields {
		res := slices.Clone(lists[n])
		for _, item := range items {
			found, err := structure.Contains(res, item, eq)
			if err != nil {
				return err
			}
			if !found {
				res = append(res, item)
			}
		}
		if res == nil {
			res = []any{}
		}
		field.Set(res)
	}
	return nil
}

func (m *Modifier) pop(obj domain.Document, addr []string, arg any) error {
	n, ok := structure.AsInteger(arg)
	if !ok || (n != 1 && n != -1) {
		return ErrModArgType{Mod: "$pop", Want: "1 or -1", Actual: arg}
	}
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, defined := field.Get()
		if !defined {
			continue
		}
		l, ok := value.([]any)
		if !ok {
			return ErrModFieldType{Mod: "$pop", Want: "array", Actual: value}
		}
		if len(l) == 0 {
			continue
		}
		if n > 0 {
			field.Set(slices.Clone(l[:len(l)-1]))
		} else {
			field.Set(slices.Clone(l[1:]))
		}
	}
	return nil
}

// pull removes the array items equal to arg or, when arg is a filter
// document, the items matching it.
func (m *Modifier) pull(obj domain.Document, addr []string, arg any) error {
	match, err := m.pullMatcher(arg)
	if err != nil {
		return err
	}
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, defined := field.Get()
		if !defined {
			continue
		}
		l, ok := value.([]any)
		if !ok {
			return ErrModFieldType{Mod: "$pull", Want: "array", Actual: value}
		}
		res := make([]any, 0, len(l))
		for _, item := range l {
			remove, err := match(item)
			if err != nil {
				return err
			}
			if !remove {
				res = append(res, item)
			}
		}
		field.Set(res)
	}
	return nil
}

func (m *Modifier) pullMatcher(arg any) (func(any) (bool, error), error) {
	d, ok := arg.(domain.Document)
	if !ok {
		return func(item any) (bool, error) {
			c, err := m.comparer.Compare(item, arg)
			return err == nil && c == 0, nil
		}, nil
	}

	mtch := m.matcherFactory()
	if !isOperatorDoc(d) {
		if err := mtch.SetQuery(d); err != nil {
			return nil, err
		}
		return mtch.Match, nil
	}

	// operator documents apply to the item itself
	if err := mtch.SetQuery(map[string]any{"v": d}); err != nil {
		return nil, err
	}
	return func(item any) (bool, error) {
		doc, err := m.docFac(nil)
		if err != nil {
			return false, err
		}
		doc.Set("v", item)
		return mtch.Match(doc)
	}, nil
}

func isOperatorDoc(d domain.Document) bool {
	for k := range d.Keys() {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}
