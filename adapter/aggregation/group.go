package aggregation

import (
	"context"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
	"github.com/vinicius-lino-figueiredo/docq/pkg/uncomparable"
)

// Accumulator combines the values of one expression over a group.
type Accumulator struct {
	Op   string
	Expr Expr
}

// Sum adds the numeric values of e. Other values are ignored.
func Sum(e Expr) Accumulator { return Accumulator{Op: "$sum", Expr: e} }

// Avg averages the numeric values of e as a float64.
func Avg(e Expr) Accumulator { return Accumulator{Op: "$avg", Expr: e} }

// Count counts the records of the group.
func Count() Accumulator { return Accumulator{Op: "$count"} }

// Min keeps the lowest non nil value of e.
func Min(e Expr) Accumulator { return Accumulator{Op: "$min", Expr: e} }

// Max keeps the highest non nil value of e.
func Max(e Expr) Accumulator { return Accumulator{Op: "$max", Expr: e} }

// First keeps the value of e for the first record of the group.
func First(e Expr) Accumulator { return Accumulator{Op: "$first", Expr: e} }

// Last keeps the value of e for the last record of the group.
func Last(e Expr) Accumulator { return Accumulator{Op: "$last", Expr: e} }

var accumulators = []string{"$sum", "$avg", "$count", "$min", "$max", "$first", "$last"}

type accState struct {
	isum   int64
	fsum   float64
	floats bool
	n      int64
	value  any
	set    bool
}

type groupState struct {
	key  any
	accs []accState
}

type namedAcc struct {
	name string
	acc  Accumulator
}

// GroupStage merges the records sharing the value of an expression into one
// record per value. Groups are output in order of first appearance.
type GroupStage struct {
	id   Expr
	accs []namedAcc
}

// Group builds a group stage. A nil id puts every record in a single group.
func Group(id Expr, fields map[string]Accumulator) (*GroupStage, error) {
	g := &GroupStage{id: id}
	for _, name := range slices.Sorted(func(yield func(string) bool) {
		for k := range fields {
			if !yield(k) {
				return
			}
		}
	}) {
		acc := fields[name]
		if name == "_id" {
			return nil, fmt.Errorf("%w: $group cannot accumulate into _id", domain.ErrInvalidSpec)
		}
		if !slices.Contains(accumulators, acc.Op) {
			return nil, fmt.Errorf("%w: unknown accumulator %q", domain.ErrInvalidSpec, acc.Op)
		}
		if acc.Expr == nil && acc.Op != "$count" {
			return nil, fmt.Errorf("%w: %s needs an expression", domain.ErrInvalidSpec, acc.Op)
		}
		g.accs = append(g.accs, namedAcc{name: name, acc: acc})
	}
	return g, nil
}

// Apply implements [Stage].
func (g *GroupStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return g.apply(ctx, newEnv(), docs)
}

func (g *GroupStage) apply(ctx context.Context, e *env, docs []domain.Document) ([]domain.Document, error) {
	groups := uncomparable.New[*groupState](e.hasher, e.comparer)

	err := each(ctx, docs, func(doc domain.Document) error {
		values, err := g.values(e, doc)
		if err != nil {
			return e.drop("$group", doc, err)
		}

		key := values[0]
		state, found, err := groups.Get(key)
		if err != nil {
			return err
		}
		if !found {
			state = &groupState{key: key, accs: make([]accState, len(g.accs))}
			if err := groups.Set(key, state); err != nil {
				return err
			}
		}
		for n, na := range g.accs {
			if err := accumulate(e, na.acc.Op, &state.accs[n], values[n+1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := make([]domain.Document, 0, groups.Len())
	for state := range groups.Values() {
		out, err := e.docFac(nil)
		if err != nil {
			return nil, err
		}
		out.Set("_id", state.key)
		for n, na := range g.accs {
			out.Set(na.name, result(na.acc.Op, &state.accs[n]))
		}
		res = append(res, out)
	}
	return res, nil
}

// values evaluates the group key followed by every accumulator expression.
// Undefined values are nil.
func (g *GroupStage) values(e *env, doc domain.Document) ([]any, error) {
	res := make([]any, len(g.accs)+1)
	if g.id != nil {
		v, _, err := g.id.eval(e, doc)
		if err != nil {
			return nil, fmt.Errorf("computing _id: %w", err)
		}
		res[0] = v
	}
	for n, na := range g.accs {
		if na.acc.Expr == nil {
			continue
		}
		v, _, err := na.acc.Expr.eval(e, doc)
		if err != nil {
			return nil, fmt.Errorf("computing %q: %w", na.name, err)
		}
		res[n+1] = v
	}
	return res, nil
}

func accumulate(e *env, op string, s *accState, v any) error {
	switch op {
	case "$sum":
		if i, ok := structure.AsInt64(v); ok {
			if sum, ok := addInt64(s.isum, i); ok {
				s.isum = sum
			} else {
				s.fsum += float64(i)
				s.floats = true
			}
		} else if f, ok := structure.AsFloat(v); ok {
			s.fsum += f
			s.floats = true
		}
	case "$avg":
		if f, ok := structure.AsFloat(v); ok {
			s.fsum += f
			s.n++
		}
	case "$count":
		s.n++
	case "$min", "$max":
		if v == nil {
			return nil
		}
		if !s.set {
			s.value, s.set = v, true
			return nil
		}
		c, err := e.comparer.Compare(v, s.value)
		if err != nil {
			return err
		}
		if (op == "$min" && c < 0) || (op == "$max" && c > 0) {
			s.value = v
		}
	case "$first":
		if !s.set {
			s.value, s.set = v, true
		}
	case "$last":
		s.value, s.set = v, true
	}
	return nil
}

func result(op string, s *accState) any {
	switch op {
	case "$sum":
		if s.floats {
			return s.fsum + float64(s.isum)
		}
		return s.isum
	case "$avg":
		if s.n == 0 {
			return nil
		}
		return s.fsum / float64(s.n)
	case "$count":
		return s.n
	default:
		return s.value
	}
}
