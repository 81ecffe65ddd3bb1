package index

import (
	"github.com/vinicius-lino-figueiredo/bst"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// prefixBound is a search key placed right before (or, when high is set,
// right after) every key tuple starting with prefix. It is never stored.
type prefixBound struct {
	prefix []any
	high   bool
}

type bstComparer struct {
	comparer   domain.Comparer
	directions []int
}

// NewBSTComparer returns a [bst.Comparer] that orders key tuples field by
// field, reversing the fields with a negative direction.
func NewBSTComparer(comparer domain.Comparer, directions []int) bst.Comparer[any, string] {
	return &bstComparer{
		comparer:   comparer,
		directions: directions,
	}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	switch ta := a.(type) {
	case prefixBound:
		if tb, ok := b.(prefixBound); ok {
			return bc.compareBounds(ta, tb)
		}
		if tb, ok := b.([]any); ok {
			return bc.compareBound(ta, tb)
		}
	case []any:
		switch tb := b.(type) {
		case prefixBound:
			c, err := bc.compareBound(tb, ta)
			return -c, err
		case []any:
			return bc.compareTuples(ta, tb)
		}
	}
	return bc.comparer.Compare(a, b)
}

func (bc *bstComparer) compareTuples(a, b []any) (int, error) {
	for n := range min(len(a), len(b)) {
		c, err := bc.comparer.Compare(a[n], b[n])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c * bc.direction(n), nil
		}
	}
	return len(a) - len(b), nil
}

func (bc *bstComparer) compareBound(b prefixBound, tuple []any) (int, error) {
	for n := range min(len(b.prefix), len(tuple)) {
		c, err := bc.comparer.Compare(b.prefix[n], tuple[n])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c * bc.direction(n), nil
		}
	}
	return side(b.high), nil
}

func (bc *bstComparer) compareBounds(a, b prefixBound) (int, error) {
	for n := range min(len(a.prefix), len(b.prefix)) {
		c, err := bc.comparer.Compare(a.prefix[n], b.prefix[n])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c * bc.direction(n), nil
		}
	}
	switch {
	case len(a.prefix) < len(b.prefix):
		return side(a.high), nil
	case len(a.prefix) > len(b.prefix):
		return -side(b.high), nil
	case a.high == b.high:
		return 0, nil
	default:
		return side(a.high), nil
	}
}

func side(high bool) int {
	if high {
		return 1
	}
	return -1
}

func (bc *bstComparer) direction(n int) int {
	if n < len(bc.directions) && bc.directions[n] < 0 {
		return -1
	}
	return 1
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a string, b string) (bool, error) {
	return a == b, nil
}
