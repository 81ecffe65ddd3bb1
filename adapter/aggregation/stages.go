package aggregation

import (
	"context"
	"fmt"

	"github.com/vinicius-lino-figueiredo/docq/adapter/querier"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// SortStage sorts records, keeping the input order of ties.
type SortStage struct {
	sort domain.Sort
}

// SortBy builds a sort stage.
func SortBy(sort ...domain.SortName) *SortStage {
	return &SortStage{sort: sort}
}

// Apply implements [Stage].
func (s *SortStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return s.apply(ctx, newEnv(), docs)
}

func (s *SortStage) apply(ctx context.Context, e *env, docs []domain.Document) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.sorter.Sort(docs, s.sort)
}

// LimitStage keeps the first records.
type LimitStage struct {
	n int64
}

// Limit builds a limit stage keeping n records.
func Limit(n int64) *LimitStage {
	return &LimitStage{n: n}
}

// Apply implements [Stage].
func (l *LimitStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return l.apply(ctx, newEnv(), docs)
}

func (l *LimitStage) apply(ctx context.Context, _ *env, docs []domain.Document) ([]domain.Document, error) {
	if l.n < 0 {
		return nil, fmt.Errorf("%w: negative $limit %d", domain.ErrInvalidSpec, l.n)
	}
	if l.n == 0 {
		return []domain.Document{}, ctx.Err()
	}
	return querier.SkipAndLimit(docs, 0, l.n), ctx.Err()
}

// SkipStage drops the first records.
type SkipStage struct {
	n int64
}

// Skip builds a skip stage dropping n records.
func Skip(n int64) *SkipStage {
	return &SkipStage{n: n}
}

// Apply implements [Stage].
func (s *SkipStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return s.apply(ctx, newEnv(), docs)
}

func (s *SkipStage) apply(ctx context.Context, _ *env, docs []domain.Document) ([]domain.Document, error) {
	if s.n < 0 {
		return nil, fmt.Errorf("%w: negative $skip %d", domain.ErrInvalidSpec, s.n)
	}
	return querier.SkipAndLimit(docs, s.n, 0), ctx.Err()
}

// MatchStage keeps the records matching a filter.
type MatchStage struct {
	filter any
}

// Match builds a match stage.
func Match(filter any) *MatchStage {
	return &MatchStage{filter: filter}
}

// Apply implements [Stage].
func (m *MatchStage) Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	return m.apply(ctx, newEnv(), docs)
}

func (m *MatchStage) apply(ctx context.Context, e *env, docs []domain.Document) ([]domain.Document, error) {
	mtchr := e.matcherFactory()
	if err := mtchr.SetQuery(m.filter); err != nil {
		return nil, fmt.Errorf("%w: $match: %w", domain.ErrInvalidSpec, err)
	}
	res := make([]domain.Document, 0, len(docs))
	err := each(ctx, docs, func(doc domain.Document) error {
		ok, err := mtchr.Match(doc)
		if ok {
			res = append(res, doc)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
