// Package structure contains type-related helpers: iterating over object and
// list values of unknown type and converting numbers.
package structure

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// TagName is the struct tag read by [Seq2].
const TagName = "docq"

// ErrNilObj is returned by [Seq] and [Seq2] when a nil value is passed as
// argument.
var ErrNilObj = errors.New("nil object")

var (
	docReflectType  = reflect.TypeOf((*domain.Document)(nil)).Elem()
	timeReflectType = reflect.TypeOf(time.Time{})
)

// ErrNonObject is returned by [Seq2] when a value that is neither a struct,
// a string keyed map nor a [domain.Document] is passed as argument.
type ErrNonObject struct {
	Type reflect.Type
}

func (e ErrNonObject) Error() string {
	return fmt.Sprintf("expected an object, got %s", e.Type)
}

// ErrNonList is returned by [Seq] when a value that is neither a slice nor an
// array is passed as argument.
type ErrNonList struct {
	Type reflect.Type
}

func (e ErrNonList) Error() string {
	return fmt.Sprintf("expected a list, got %s", e.Type)
}

// Seq2 returns an iterator over the fields of obj and their count. It works
// for documents, string keyed maps and structs, dereferencing pointers.
func Seq2(obj any) (iter.Seq2[string, any], int, error) {
	switch t := obj.(type) {
	case nil:
		return nil, 0, ErrNilObj
	case domain.Document:
		return t.Iter(), t.Len(), nil
	case map[string]any:
		return iterMap(t), len(t), nil
	}

	v, err := deref(obj)
	if err != nil {
		return nil, 0, err
	}

	if v.Type().Implements(docReflectType) {
		doc := v.Interface().(domain.Document)
		return doc.Iter(), doc.Len(), nil
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, 0, ErrNonObject{Type: v.Type()}
		}
		return func(yield func(string, any) bool) {
			for _, k := range v.MapKeys() {
				if !yield(k.String(), v.MapIndex(k).Interface()) {
					return
				}
			}
		}, v.Len(), nil
	case reflect.Struct:
		if v.Type() == timeReflectType {
			return nil, 0, ErrNonObject{Type: v.Type()}
		}
		fields := structFields(v)
		return func(yield func(string, any) bool) {
			for _, f := range fields {
				if !yield(f.key, f.value) {
					return
				}
			}
		}, len(fields), nil
	default:
		return nil, 0, ErrNonObject{Type: v.Type()}
	}
}

// Seq returns an iterator over the items of a slice or array and their count,
// dereferencing pointers. Byte slices are values, not lists.
func Seq(obj any) (iter.Seq[any], int, error) {
	switch t := obj.(type) {
	case nil:
		return nil, 0, ErrNilObj
	case []any:
		return iterSlice(t), len(t), nil
	}

	v, err := deref(obj)
	if err != nil {
		return nil, 0, err
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, 0, ErrNonList{Type: v.Type()}
		}
	case reflect.Array:
	default:
		return nil, 0, ErrNonList{Type: v.Type()}
	}

	return func(yield func(any) bool) {
		for i := range v.Len() {
			if !yield(v.Index(i).Interface()) {
				return
			}
		}
	}, v.Len(), nil
}

func deref(obj any) (reflect.Value, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, ErrNilObj
		}
		v = v.Elem()
	}
	return v, nil
}

type field struct {
	key   string
	value any
}

func structFields(v reflect.Value) []field {
	typ := v.Type()
	fields := make([]field, 0, typ.NumField())
	for n := range typ.NumField() {
		sf := typ.Field(n)
		if sf.PkgPath != "" {
			continue
		}

		name := sf.Name
		var omitEmpty, omitZero bool
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" && len(parts) == 1 {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				switch opt {
				case "omitempty":
					omitEmpty = true
				case "omitzero":
					omitZero = true
				}
			}
		}

		fv := v.Field(n)
		if omitZero && fv.IsZero() {
			continue
		}
		if omitEmpty && isEmpty(fv) {
			continue
		}
		fields = append(fields, field{key: name, value: fv.Interface()})
	}
	return fields
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

func iterMap[T any](m map[string]T) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for k, v := range m {
			if !yield(k, v) {
				return
			}
		}
	}
}

func iterSlice[T any](s []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// AsInteger converts any built-in number to int and reports whether the
// argument holds an integer value.
func AsInteger(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || math.Trunc(f) != f {
		return 0, false
	}
	return int(f), true
}

// AsFloat converts any built-in number to float64 and reports whether the
// argument is a number.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true
	}
	return 0, false
}

// AsInt64 converts any built-in integer type to int64. Floats are rejected
// even when they hold an integer value.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

// Contains checks if the given value is present in the slice.
func Contains[T any, S ~[]T](s S, t T, fn func(a T, b T) (bool, error)) (bool, error) {
	for _, i := range s {
		if ok, err := fn(i, t); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
