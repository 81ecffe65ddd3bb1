// Package comparer contains the default [domain.Comparer] implementation. It
// defines a total order across every value a document can hold:
//
//	undefined < nil < numbers < strings < booleans < dates < arrays < documents
//
// Numbers of any Go numeric type are compared by value.
package comparer

import (
	"cmp"
	"math/big"
	"slices"
	"time"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type rank uint8

const (
	rankUndefined rank = iota
	rankNil
	rankNumber
	rankString
	rankBool
	rankTime
	rankArray
	rankDocument
	rankUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Only numbers, strings and dates can
// be ordered by range operators, and only against values of the same kind.
func (c *Comparer) Comparable(a, b any) bool {
	ra, _ := c.rankOf(a)
	rb, _ := c.rankOf(b)
	if ra != rb {
		return false
	}
	switch ra {
	case rankNumber, rankString, rankTime:
		return true
	default:
		return false
	}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a, b any) (int, error) {
	ra, va := c.rankOf(a)
	rb, vb := c.rankOf(b)
	if ra == rankUnknown || rb == rankUnknown {
		return 0, domain.ErrCannotCompare{A: va, B: vb}
	}
	if ra != rb {
		return cmp.Compare(ra, rb), nil
	}

	switch ra {
	case rankNumber:
		x, _ := c.asNumber(va)
		y, _ := c.asNumber(vb)
		return x.Cmp(y), nil
	case rankString:
		return cmp.Compare(va.(string), vb.(string)), nil
	case rankBool:
		return c.compareBool(va.(bool), vb.(bool)), nil
	case rankTime:
		return va.(time.Time).Compare(vb.(time.Time)), nil
	case rankArray:
		return c.compareArray(va.([]any), vb.([]any))
	case rankDocument:
		return c.compareDoc(va.(domain.Document), vb.(domain.Document))
	default:
		return 0, nil
	}
}

// rankOf unwraps getters and returns the position of v in the type order
// with its concrete value.
func (c *Comparer) rankOf(v any) (rank, any) {
	for {
		g, ok := v.(domain.Getter)
		if !ok {
			break
		}
		value, defined := g.Get()
		if !defined {
			return rankUndefined, nil
		}
		v = value
	}

	if v == nil {
		return rankNil, nil
	}
	if _, ok := c.asNumber(v); ok {
		return rankNumber, v
	}
	switch v.(type) {
	case string:
		return rankString, v
	case bool:
		return rankBool, v
	case time.Time:
		return rankTime, v
	case []any:
		return rankArray, v
	case domain.Document:
		return rankDocument, v
	default:
		return rankUnknown, v
	}
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil || comp != 0 {
			return comp, err
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// compareDoc compares values under the sorted union of keys, then the number
// of keys, then the keys themselves.
func (c *Comparer) compareDoc(a, b domain.Document) (int, error) {
	aKeys := slices.Sorted(a.Keys())
	bKeys := slices.Sorted(b.Keys())

	for i := range min(len(aKeys), len(bKeys)) {
		comp, err := c.Compare(a.Get(aKeys[i]), b.Get(bKeys[i]))
		if err != nil || comp != 0 {
			return comp, err
		}
	}

	if comp := cmp.Compare(len(aKeys), len(bKeys)); comp != 0 {
		return comp, nil
	}

	return slices.Compare(aKeys, bKeys), nil
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}
