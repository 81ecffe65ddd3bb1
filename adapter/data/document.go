// Package data contains [M], the default [domain.Document] implementation, and
// the factory that builds documents out of maps and structs.
package data

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// TagName is the struct tag read when converting structs to documents.
const TagName = "docq"

var (
	timeTyp = goreflect.TypeOf(*new(time.Time))
	docTyp  = goreflect.TypeOf((*domain.Document)(nil)).Elem()
)

// ErrMapKeyType is returned when a map with non-string keys is converted.
var ErrMapKeyType = errors.New("document maps must have string keys")

// M implements domain.Document by using a hashed map. Duplicates replace old
// values.
type M map[string]any

// NewDocument returns a new instance of [domain.Document]. Nested maps and
// structs are converted to documents as well, and slices become []any.
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return M{}, nil
	}
	if doc, ok, err := parseSimple(in); ok {
		return doc, err
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == goreflect.Ptr {
		if r.IsNil() {
			return M{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if (k != goreflect.Struct && k != goreflect.Map) || r.Type() == timeTyp {
		return nil, fmt.Errorf("%w: expected map or struct, got %s", domain.ErrInvalidSpec, r.Type().String())
	}
	doc, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	return doc.(domain.Document), nil
}

func parseSimple(v any) (domain.Document, bool, error) {
	var doc domain.Document
	var err error
	switch t := v.(type) {
	case domain.Document:
		doc, err = parseDocument(t)
	case map[string]any:
		doc, err = parseMap(t)
	case map[string]string:
		doc, err = parseMap(t)
	case map[string]bool:
		doc, err = parseMap(t)
	case map[string]int:
		doc, err = parseMap(t)
	case map[string]int64:
		doc, err = parseMap(t)
	case map[string]float64:
		doc, err = parseMap(t)
	case map[string]time.Time:
		doc, err = parseMap(t)
	default:
		return nil, false, nil
	}
	return doc, true, err
}

func parseDocument(d domain.Document) (domain.Document, error) {
	res := make(M, d.Len())
	var err error
	for k, v := range d.Iter() {
		if res[k], err = parseValue(v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseMap[T any](v map[string]T) (domain.Document, error) {
	res := make(M, len(v))
	var err error
	for k, v := range v {
		if res[k], err = parseValue(v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// parseValue avoids reflection for the values that json and literal maps
// usually carry.
func parseValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8,
		uint16, uint32, uint64, float32, float64, time.Time, time.Duration,
		*regexp.Regexp:
		return t, nil
	case domain.Document:
		return parseDocument(t)
	case map[string]any:
		return parseMap(t)
	case []any:
		res := make([]any, len(t))
		var err error
		for n, item := range t {
			if res[n], err = parseValue(item); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	return parseReflect(goreflect.ValueNoEscapeOf(v))
}

func parseReflect(r goreflect.Value) (any, error) {
	for r.Kind() == goreflect.Ptr || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		if rgx, ok := r.Interface().(*regexp.Regexp); ok {
			return rgx, nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		if r.Type().Elem().Kind() == goreflect.Uint8 {
			return r.Interface(), nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		if r.Type().Implements(docTyp) {
			return parseDocument(r.Interface().(domain.Document))
		}
		return parseMapReflect(r)
	case goreflect.Chan, goreflect.Func:
		if r.IsNil() {
			return nil, nil
		}
		return r.Interface(), nil
	default:
		return r.Interface(), nil
	}
}

func parseStruct(r goreflect.Value) (domain.Document, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(M, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		fieldInfo, err := parseField(r.Field(n), field)
		if err != nil {
			return nil, err
		}
		if fieldInfo == nil {
			continue
		}
		res[fieldInfo.name] = fieldInfo.value
	}
	return res, nil
}

func parseMapReflect(v goreflect.Value) (domain.Document, error) {
	if v.Type().Key().Kind() != goreflect.String {
		return nil, fmt.Errorf("%w: got %s", ErrMapKeyType, v.Type().Key().String())
	}
	res := make(M, v.Len())
	for _, k := range v.MapKeys() {
		var err error
		if res[k.String()], err = parseReflect(v.MapIndex(k)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type field struct {
	name  string
	value any
}

func parseField(r goreflect.Value, typ goreflect.StructField) (*field, error) {
	name := typ.Name
	var tagSegments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return nil, nil
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return nil, nil
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return nil, nil
	}

	value, err := parseReflect(r)
	if err != nil {
		return nil, err
	}

	return &field{name: name, value: value}, nil
}

func parseList(r goreflect.Value) (any, error) {
	length := r.Len()
	res := make([]any, length)
	var err error
	for i := range length {
		if res[i], err = parseValue(r.Index(i).Interface()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface ||
		k == reflect.Func ||
		k == reflect.Chan
}

// ID implements domain.Document
func (d M) ID() any {
	return d["_id"]
}

// Get implements domain.Document
func (d M) Get(key string) any {
	return d[key]
}

// Set implements domain.Document
func (d M) Set(key string, value any) {
	d[key] = value
}

// Unset implements domain.Document
func (d M) Unset(key string) {
	delete(d, key)
}

// D implements domain.Document
func (d M) D(key string) domain.Document {
	if doc, ok := d[key].(domain.Document); ok {
		return doc
	}
	return nil
}

// Iter implements domain.Document.
func (d M) Iter() iter.Seq2[string, any] {
	return maps.All(d)
}

// Keys implements domain.Document.
func (d M) Keys() iter.Seq[string] {
	return maps.Keys(d)
}

// Len implements domain.Document.
func (d M) Len() int {
	return len(d)
}

// Values implements domain.Document.
func (d M) Values() iter.Seq[any] {
	return maps.Values(d)
}

// Has implements domain.Document.
func (d M) Has(key string) bool {
	_, has := d[key]
	return has
}
