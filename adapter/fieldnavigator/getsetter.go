package fieldnavigator

import "github.com/vinicius-lino-figueiredo/docq/domain"

// ElemGetSetter reads and writes one position of a slice.
type ElemGetSetter struct {
	List  []any
	Index int
}

// NewElemGetSetter returns a [domain.GetSetter] bound to list[index].
func NewElemGetSetter(list []any, index int) domain.GetSetter {
	return &ElemGetSetter{List: list, Index: index}
}

func (e *ElemGetSetter) inRange() bool {
	return e.Index >= 0 && e.Index < len(e.List)
}

// Get implements [domain.GetSetter].
func (e *ElemGetSetter) Get() (any, bool) {
	if !e.inRange() {
		return nil, false
	}
	return e.List[e.Index], true
}

// Set implements [domain.GetSetter].
func (e *ElemGetSetter) Set(value any) {
	if e.inRange() {
		e.List[e.Index] = value
	}
}

// Unset implements [domain.GetSetter]. Slices keep their length, so the
// position becomes nil.
func (e *ElemGetSetter) Unset() {
	e.Set(nil)
}

// FieldGetSetter reads and writes one key of a [domain.Document].
type FieldGetSetter struct {
	Doc domain.Document
	Key string
}

// NewFieldGetSetter returns a [domain.GetSetter] bound to doc[key].
func NewFieldGetSetter(doc domain.Document, key string) domain.GetSetter {
	return &FieldGetSetter{Doc: doc, Key: key}
}

// Get implements [domain.GetSetter].
func (f *FieldGetSetter) Get() (any, bool) {
	return f.Doc.Get(f.Key), f.Doc.Has(f.Key)
}

// Set implements [domain.GetSetter].
func (f *FieldGetSetter) Set(value any) { f.Doc.Set(f.Key, value) }

// Unset implements [domain.GetSetter].
func (f *FieldGetSetter) Unset() { f.Doc.Unset(f.Key) }

// ValueGetSetter wraps a defined value that cannot be written.
type ValueGetSetter struct {
	V any
}

// NewValueGetSetter returns a read-only [domain.GetSetter].
func NewValueGetSetter(v any) domain.GetSetter {
	return &ValueGetSetter{V: v}
}

// Get implements [domain.GetSetter].
func (v *ValueGetSetter) Get() (any, bool) { return v.V, true }

// Set implements [domain.GetSetter].
func (v *ValueGetSetter) Set(any) {}

// Unset implements [domain.GetSetter].
func (v *ValueGetSetter) Unset() {}

// Undefined represents a missing value.
type Undefined struct{}

// NewUndefined returns a [domain.GetSetter] of an undefined value.
func NewUndefined() domain.GetSetter {
	return Undefined{}
}

// Get implements [domain.GetSetter].
func (Undefined) Get() (any, bool) { return nil, false }

// Set implements [domain.GetSetter].
func (Undefined) Set(any) {}

// Unset implements [domain.GetSetter].
func (Undefined) Unset() {}
