package aggregation

import (
	"fmt"
	"strings"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// ParsePipeline reads a list of stages. Each item is either a [Stage] or a
// stage document such as {"$limit": 1}.
func ParsePipeline(stages ...any) ([]Stage, error) {
	res := make([]Stage, len(stages))
	for n, s := range stages {
		stage, err := ParseStage(s)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", n, err)
		}
		res[n] = stage
	}
	return res, nil
}

// ParseStage reads a stage document holding a single operator: $project,
// $group, $sort, $limit, $skip or $match.
func ParseStage(v any) (Stage, error) {
	if s, ok := v.(Stage); ok {
		return s, nil
	}
	fields, count, err := structure.Seq2(v)
	if err != nil {
		return nil, fmt.Errorf("%w: stage: %w", domain.ErrInvalidSpec, err)
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: a stage takes exactly one operator, got %d", domain.ErrInvalidSpec, count)
	}

	for op, arg := range fields {
		switch op {
		case "$project":
			return Project(arg)
		case "$group":
			return parseGroup(arg)
		case "$sort":
			sort, err := parseSort(arg)
			if err != nil {
				return nil, err
			}
			return SortBy(sort...), nil
		case "$limit":
			n, err := parseCount(op, arg)
			if err != nil {
				return nil, err
			}
			return Limit(n), nil
		case "$skip":
			n, err := parseCount(op, arg)
			if err != nil {
				return nil, err
			}
			return Skip(n), nil
		case "$match":
			return Match(arg), nil
		default:
			return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidSpec, op)
		}
	}
	return nil, nil
}

func parseCount(op string, v any) (int64, error) {
	n, ok := structure.AsInteger(v)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s expects a non-negative integer, got %v", domain.ErrInvalidSpec, op, v)
	}
	return int64(n), nil
}

func parseGroup(v any) (*GroupStage, error) {
	spec, err := data.NewDocument(v)
	if err != nil {
		return nil, fmt.Errorf("%w: $group: %w", domain.ErrInvalidSpec, err)
	}
	if !spec.Has("_id") {
		return nil, fmt.Errorf("%w: $group needs an _id", domain.ErrInvalidSpec)
	}

	var id Expr
	if raw := spec.Get("_id"); raw != nil {
		var err error
		if id, err = ParseExpr(raw); err != nil {
			return nil, err
		}
	}

	fields := make(map[string]Accumulator, spec.Len()-1)
	for name, raw := range spec.Iter() {
		if name == "_id" {
			continue
		}
		acc, ok := raw.(domain.Document)
		if !ok || acc.Len() != 1 {
			return nil, fmt.Errorf("%w: accumulator %q must hold one operator", domain.ErrInvalidSpec, name)
		}
		for op, arg := range acc.Iter() {
			if op == "$count" {
				fields[name] = Count()
				continue
			}
			expr, err := ParseExpr(arg)
			if err != nil {
				return nil, err
			}
			fields[name] = Accumulator{Op: op, Expr: expr}
		}
	}
	return Group(id, fields)
}

// parseSort reads a sort given as a [domain.Sort], a single key document or a
// list of single key documents. Documents with several keys are rejected
// because their key order is not kept.
func parseSort(v any) (domain.Sort, error) {
	switch t := v.(type) {
	case domain.Sort:
		return t, nil
	case []any:
		var res domain.Sort
		for _, item := range t {
			part, err := parseSort(item)
			if err != nil {
				return nil, err
			}
			res = append(res, part...)
		}
		return res, nil
	case map[string]any:
		d, err := data.NewDocument(t)
		if err != nil {
			return nil, err
		}
		return parseSort(d)
	case domain.Document:
		if t.Len() != 1 {
			return nil, fmt.Errorf("%w: $sort documents take one key, use a list for more", domain.ErrInvalidSpec)
		}
		for k, order := range t.Iter() {
			n, ok := structure.AsInteger(order)
			if !ok || (n != 1 && n != -1) || strings.HasPrefix(k, "$") {
				return nil, fmt.Errorf("%w: invalid $sort on %q", domain.ErrInvalidSpec, k)
			}
			return domain.Sort{{Key: k, Order: int64(n)}}, nil
		}
	}
	return nil, fmt.Errorf("%w: $sort expects a document, got %T", domain.ErrInvalidSpec, v)
}
