package indexmanager

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// predicate holds what a filter says about one field. Only one of eq, in and
// the bounds is used for an index, in that order of preference.
type predicate struct {
	hasEq bool
	eq    any
	in    []any
	hasIn bool
	lower *domain.Bound
	upper *domain.Bound
}

// plan is the use a filter can make of one index.
type plan struct {
	name     string
	fields   int
	equality int
	trailing bool
	bounds   domain.IndexBounds
}

func (p plan) score() int {
	s := 2 * p.equality
	if p.trailing {
		s++
	}
	return s
}

func (p plan) better(o plan) bool {
	switch {
	case p.score() != o.score():
		return p.score() > o.score()
	case p.fields != o.fields:
		return p.fields < o.fields
	default:
		return p.name < o.name
	}
}

// ChooseAccessPath implements [domain.IndexManager]. An index is used when
// its leading field is constrained by the top level conjunction of the
// filter. The best index has the most equality fields in its prefix.
func (m *IndexManager) ChooseAccessPath(filter any, hint string) (domain.AccessPath, error) {
	preds, err := m.extract(filter)
	if err != nil {
		return domain.AccessPath{}, err
	}

	if hint != "" {
		idx, ok := m.indexes[hint]
		if !ok {
			return domain.AccessPath{}, fmt.Errorf("%w: hint: %w: %s", domain.ErrInvalidSpec, domain.ErrIndexNotFound, hint)
		}
		p := m.planFor(idx, preds)
		if p.score() == 0 {
			p.bounds = domain.IndexBounds{{}}
		}
		return domain.AccessPath{Kind: domain.IndexScan, Index: hint, Bounds: p.bounds}, nil
	}

	var best *plan
	for _, name := range m.names {
		p := m.planFor(m.indexes[name], preds)
		if p.score() == 0 {
			continue
		}
		if best == nil || p.better(*best) {
			best = &p
		}
	}
	if best == nil {
		m.logger.Debug("access path chosen", zap.Stringer("kind", domain.FullScan))
		return domain.AccessPath{Kind: domain.FullScan}, nil
	}
	m.logger.Debug("access path chosen",
		zap.Stringer("kind", domain.IndexScan),
		zap.String("index", best.name),
		zap.Stringer("bounds", best.bounds),
	)
	return domain.AccessPath{Kind: domain.IndexScan, Index: best.name, Bounds: best.bounds}, nil
}

// planFor follows the left-prefix rule: equality fields extend the prefix and
// the first other constrained field may add a range or an $in list.
func (m *IndexManager) planFor(idx domain.Index, preds map[string]*predicate) plan {
	fields := idx.Fields()
	p := plan{name: idx.Name(), fields: len(fields)}
	var prefix []any
	for _, f := range fields {
		pred := preds[f.Field]
		if pred == nil {
			break
		}
		if pred.hasEq {
			prefix = append(prefix, pred.eq)
			p.equality++
			continue
		}
		if pred.hasIn {
			p.trailing = true
			p.bounds = make(domain.IndexBounds, len(pred.in))
			for n, v := range pred.in {
				p.bounds[n] = domain.KeyRange{Prefix: append(append([]any(nil), prefix...), v)}
			}
			return p
		}
		lower, upper := pred.lower, pred.upper
		// elements of one array may satisfy each bound separately
		if idx.Multikey() && lower != nil && upper != nil {
			upper = nil
		}
		p.trailing = true
		p.bounds = domain.IndexBounds{{Prefix: prefix, Lower: lower, Upper: upper}}
		return p
	}
	if p.equality > 0 {
		p.bounds = domain.IndexBounds{{Prefix: prefix}}
	}
	return p
}

// extract reads the indexable predicates of the top level conjunction of
// filter, including the members of a top level $and.
func (m *IndexManager) extract(filter any) (map[string]*predicate, error) {
	preds := make(map[string]*predicate)
	if filter == nil {
		return preds, nil
	}
	doc, err := m.docFac(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: reading filter: %w", domain.ErrInvalidSpec, err)
	}
	if err := m.extractDoc(doc, preds); err != nil {
		return nil, err
	}
	return preds, nil
}

func (m *IndexManager) extractDoc(doc domain.Document, preds map[string]*predicate) error {
	for key, value := range doc.Iter() {
		if key == "$and" {
			members, ok := value.([]any)
			if !ok {
				continue
			}
			for _, member := range members {
				d, ok := member.(domain.Document)
				if !ok {
					continue
				}
				if err := m.extractDoc(d, preds); err != nil {
					return err
				}
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			continue
		}
		m.extractField(key, value, preds)
	}
	return nil
}

func (m *IndexManager) extractField(field string, value any, preds map[string]*predicate) {
	get := func() *predicate {
		p, ok := preds[field]
		if !ok {
			p = new(predicate)
			preds[field] = p
		}
		return p
	}

	ops, ok := value.(domain.Document)
	if !ok {
		if scalar(value) {
			p := get()
			if !p.hasEq {
				p.hasEq, p.eq = true, value
			}
		}
		return
	}

	for op, arg := range ops.Iter() {
		switch op {
		case "$eq":
			if scalar(arg) {
				p := get()
				if !p.hasEq {
					p.hasEq, p.eq = true, arg
				}
			}
		case "$in":
			list, ok := arg.([]any)
			if !ok || !allScalars(list) {
				continue
			}
			p := get()
			if !p.hasIn {
				p.hasIn, p.in = true, list
			}
		case "$gt", "$gte":
			if scalar(arg) {
				p := get()
				p.lower = m.tighter(p.lower, &domain.Bound{Value: arg, Inclusive: op == "$gte"}, 1)
			}
		case "$lt", "$lte":
			if scalar(arg) {
				p := get()
				p.upper = m.tighter(p.upper, &domain.Bound{Value: arg, Inclusive: op == "$lte"}, -1)
			}
		}
	}
}

// tighter returns the most restrictive bound. sign is 1 for lower bounds and
// -1 for upper bounds. Bounds that cannot be compared keep the current one.
func (m *IndexManager) tighter(cur, next *domain.Bound, sign int) *domain.Bound {
	if cur == nil {
		return next
	}
	if !m.comparer.Comparable(cur.Value, next.Value) {
		return cur
	}
	c, err := m.comparer.Compare(next.Value, cur.Value)
	if err != nil {
		return cur
	}
	switch {
	case c*sign > 0:
		return next
	case c == 0 && !next.Inclusive:
		return next
	}
	return cur
}

func scalar(v any) bool {
	switch v.(type) {
	case string, bool, time.Time:
		return true
	case nil, *regexp.Regexp:
		return false
	}
	_, isNumber := structure.AsFloat(v)
	return isNumber
}

func allScalars(l []any) bool {
	for _, v := range l {
		if !scalar(v) {
			return false
		}
	}
	return true
}
