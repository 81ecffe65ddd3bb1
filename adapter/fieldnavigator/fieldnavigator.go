// Package fieldnavigator resolves dotted field paths inside documents.
//
// A path part that is not a number, applied to an array, is applied to every
// element of that array instead. Arrays nested directly inside other arrays
// are not expanded.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct {
	docFac domain.DocumentFactory
}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator(docFac domain.DocumentFactory) domain.FieldNavigator {
	return &FieldNavigator{docFac: docFac}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	parts := strings.Split(field, ".")
	for _, p := range parts {
		if p == "" {
			return nil, domain.ErrFieldName{Field: field, Reason: "empty path segment"}
		}
	}
	return parts, nil
}

// GetField implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetField(obj any, parts ...string) ([]domain.GetSetter, bool, error) {
	w := walker{fn: fn}
	if err := w.start(obj, parts); err != nil {
		return nil, false, err
	}
	return w.res, w.expanded, nil
}

// EnsureField implements [domain.FieldNavigator].
func (fn *FieldNavigator) EnsureField(obj any, parts ...string) ([]domain.GetSetter, error) {
	w := walker{fn: fn, ensure: true}
	if err := w.start(obj, parts); err != nil {
		return nil, err
	}
	return w.res, nil
}

type walker struct {
	fn       *FieldNavigator
	ensure   bool
	expanded bool
	res      []domain.GetSetter
}

func (w *walker) start(obj any, parts []string) error {
	if obj == nil || len(parts) == 0 {
		w.res = append(w.res, NewUndefined())
		return nil
	}
	return w.walk(obj, nil, parts, false)
}

// walk follows parts starting at v, which is reachable through gs. inList
// tells v is an element reached by expanding an array.
func (w *walker) walk(v any, gs domain.GetSetter, parts []string, inList bool) error {
	if len(parts) == 0 {
		w.res = append(w.res, gs)
		return nil
	}
	part, rest := parts[0], parts[1:]

	switch t := v.(type) {
	case domain.Document:
		if !t.Has(part) {
			if !w.ensure {
				w.res = append(w.res, NewUndefined())
				return nil
			}
			var zero any
			if len(rest) > 0 {
				d, err := w.fn.docFac(nil)
				if err != nil {
					return err
				}
				zero = d
			}
			t.Set(part, zero)
		}
		return w.walk(t.Get(part), NewFieldGetSetter(t, part), rest, false)
	case []any:
		if i, err := strconv.Atoi(part); err == nil && i >= 0 {
			if i >= len(t) {
				if !w.ensure || gs == nil {
					w.res = append(w.res, NewUndefined())
					return nil
				}
				grown := make([]any, i+1)
				copy(grown, t)
				gs.Set(grown)
				t = grown
			}
			return w.walk(t[i], NewElemGetSetter(t, i), rest, false)
		}
		if inList {
			w.res = append(w.res, NewUndefined())
			return nil
		}
		w.expanded = true
		for i, elem := range t {
			if err := w.walk(elem, NewElemGetSetter(t, i), parts, true); err != nil {
				return err
			}
		}
		return nil
	default:
		w.res = append(w.res, NewUndefined())
		return nil
	}
}
