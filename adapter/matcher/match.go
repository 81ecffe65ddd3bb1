package matcher

import (
	"regexp"

	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// Match implements [domain.Matcher].
func (m *Matcher) Match(value any) (bool, error) {
	return m.matchLogicOp(value, m.query.Lo)
}

func (m *Matcher) matchLogicOp(v any, lo LogicOp) (bool, error) {
	switch lo.Type {
	case And:
		for _, sub := range lo.Sub {
			if ok, err := m.matchLogicOp(v, sub); err != nil || !ok {
				return false, err
			}
		}
		for _, rule := range lo.Rules {
			if ok, err := m.matchRule(v, rule); err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or, Nor:
		matched := false
		for _, sub := range lo.Sub {
			ok, err := m.matchLogicOp(v, sub)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		return matched == (lo.Type == Or), nil
	case Not:
		ok, err := m.matchLogicOp(v, lo.Sub[0])
		return !ok && err == nil, err
	default:
		return false, nil
	}
}

func (m *Matcher) matchRule(v any, rule FieldRule) (bool, error) {
	values := []domain.GetSetter{fieldnavigator.NewValueGetSetter(v)}
	if len(rule.Addr) > 0 {
		var err error
		values, _, err = m.fieldNavigator.GetField(v, rule.Addr...)
		if err != nil {
			return false, err
		}
		if len(values) == 0 {
			values = []domain.GetSetter{fieldnavigator.NewUndefined()}
		}
	}

	for n := range rule.Conds {
		if ok, err := m.matchCond(values, &rule.Conds[n]); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchCond(values []domain.GetSetter, cond *Cond) (bool, error) {
	switch cond.Op {
	case Eq:
		return m.eq(values, cond.Val), nil
	case Ne:
		return !m.eq(values, cond.Val), nil
	case In:
		return m.in(values, cond.List), nil
	case Nin:
		return !m.in(values, cond.List), nil
	case Lt:
		return m.compare(values, cond.Val, func(c int) bool { return c < 0 }), nil
	case Lte:
		return m.compare(values, cond.Val, func(c int) bool { return c <= 0 }), nil
	case Gt:
		return m.compare(values, cond.Val, func(c int) bool { return c > 0 }), nil
	case Gte:
		return m.compare(values, cond.Val, func(c int) bool { return c >= 0 }), nil
	case Exists:
		return m.exists(values) == cond.Val.(bool), nil
	case Regex:
		return m.regex(values, cond.Rgx), nil
	case Size:
		return m.size(values, cond.Val.(int)), nil
	case ElemMatch:
		return m.elemMatch(values, cond.Sub)
	case NotCond:
		for n := range cond.Not {
			ok, err := m.matchCond(values, &cond.Not[n])
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// candidates yields every defined value and, for arrays, each of their
// items.
func candidates(values []domain.GetSetter, yield func(any) bool) {
	for _, gs := range values {
		v, defined := gs.Get()
		if !defined {
			continue
		}
		if !yield(v) {
			return
		}
		if arr, ok := v.([]any); ok {
			for _, item := range arr {
				if !yield(item) {
					return
				}
			}
		}
	}
}

// eq reports whether any candidate equals x. Undefined values equal nil and
// values without a defined order never equal anything.
func (m *Matcher) eq(values []domain.GetSetter, x any) bool {
	if x == nil && !m.exists(values) {
		return true
	}
	var found bool
	candidates(values, func(v any) bool {
		c, err := m.comparer.Compare(v, x)
		found = err == nil && c == 0
		return !found
	})
	return found
}

func (m *Matcher) in(values []domain.GetSetter, list []any) bool {
	for _, item := range list {
		if r, ok := item.(*regexp.Regexp); ok {
			if m.regex(values, r) {
				return true
			}
		} else if m.eq(values, item) {
			return true
		}
	}
	return false
}

// compare reports whether any comparable candidate satisfies fn. Pairs that
// cannot be ordered never match.
func (m *Matcher) compare(values []domain.GetSetter, x any, fn func(int) bool) bool {
	var found bool
	candidates(values, func(v any) bool {
		if !m.comparer.Comparable(v, x) {
			return true
		}
		c, err := m.comparer.Compare(v, x)
		found = err == nil && fn(c)
		return !found
	})
	return found
}

func (m *Matcher) exists(values []domain.GetSetter) bool {
	for _, gs := range values {
		if _, defined := gs.Get(); defined {
			return true
		}
	}
	return false
}

func (m *Matcher) regex(values []domain.GetSetter, r *regexp.Regexp) bool {
	var found bool
	candidates(values, func(v any) bool {
		if s, ok := v.(string); ok {
			found = r.MatchString(s)
		}
		return !found
	})
	return found
}

func (m *Matcher) size(values []domain.GetSetter, n int) bool {
	for _, gs := range values {
		v, _ := gs.Get()
		if arr, ok := v.([]any); ok && len(arr) == n {
			return true
		}
	}
	return false
}

func (m *Matcher) elemMatch(values []domain.GetSetter, q *Query) (bool, error) {
	for _, gs := range values {
		v, _ := gs.Get()
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range arr {
			ok, err := m.matchLogicOp(item, q.Lo)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}
