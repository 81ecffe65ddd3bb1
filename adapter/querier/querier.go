// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/projector"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// Querier implements [domain.Querier].
type Querier struct {
	mtchrFac domain.MatcherFactory
	cmpr     domain.Comparer
	fn       domain.FieldNavigator
	proj     domain.Projector
	docFac   domain.DocumentFactory
}

// NewQuerier returns a new implementation of [domain.Querier].
func NewQuerier(opts ...Option) domain.Querier {
	q := Querier{
		docFac: data.NewDocument,
		cmpr:   comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.fn == nil {
		q.fn = fieldnavigator.NewFieldNavigator(q.docFac)
	}
	if q.proj == nil {
		q.proj = projector.NewProjector(
			projector.WithDocumentFactory(q.docFac),
			projector.WithFieldNavigator(q.fn),
		)
	}
	if q.mtchrFac == nil {
		q.mtchrFac = func() domain.Matcher {
			return matcher.NewMatcher(
				matcher.WithComparer(q.cmpr),
				matcher.WithDocumentFactory(q.docFac),
				matcher.WithFieldNavigator(q.fn),
			)
		}
	}
	return &q
}

// Query implements [domain.Querier]. Documents are filtered, sorted, skipped,
// limited and projected, in this order.
func (q *Querier) Query(ctx context.Context, data iter.Seq2[domain.Document, error], opts ...domain.QueryOption) ([]domain.Document, error) {
	if data == nil {
		return make([]domain.Document, 0), nil
	}

	options := domain.QueryOptions{Cap: 256}
	for _, opt := range opts {
		opt(&options)
	}

	sorter, err := q.sorter(options.Sort)
	if err != nil {
		return nil, err
	}

	res, err := q.filter(ctx, data, options)
	if err != nil {
		return nil, err
	}

	if sorter != nil {
		if res, err = q.sort(res, sorter); err != nil {
			return nil, err
		}
		res = SkipAndLimit(res, options.Skip, options.Limit)
	}

	res, err = q.proj.Project(res, options.Projection)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", invalid(err))
	}
	return res, nil
}

// filter returns the matching documents. Without a sort, skip and limit are
// applied while reading.
func (q *Querier) filter(ctx context.Context, data iter.Seq2[domain.Document, error], opts domain.QueryOptions) ([]domain.Document, error) {
	var skipped int64
	res := make([]domain.Document, 0, max(opts.Cap, 0))

	var mtchr domain.Matcher
	if opts.Query != nil {
		mtchr = q.mtchrFac()
		if err := mtchr.SetQuery(opts.Query); err != nil {
			return nil, fmt.Errorf("compiling query: %w", invalid(err))
		}
	}

	for doc, err := range data {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if mtchr != nil {
			matches, err := mtchr.Match(doc)
			if err != nil {
				return nil, fmt.Errorf("matching document: %w", err)
			}
			if !matches {
				continue
			}
		}
		if opts.Sort == nil {
			if skipped < opts.Skip {
				skipped++
				continue
			}
			if opts.Limit > 0 && int64(len(res)) == opts.Limit {
				break
			}
		}
		res = append(res, doc)
	}
	return res, nil
}

type criterion struct {
	addr  []string
	order int
}

func (q *Querier) sorter(sort domain.Sort) ([]criterion, error) {
	if len(sort) == 0 {
		return nil, nil
	}
	res := make([]criterion, len(sort))
	for n, s := range sort {
		if s.Order == 0 {
			return nil, fmt.Errorf("%w: sort order of %q must be 1 or -1", domain.ErrInvalidSpec, s.Key)
		}
		addr, err := q.fn.GetAddress(s.Key)
		if err != nil {
			return nil, fmt.Errorf("sorting: %w", invalid(err))
		}
		res[n] = criterion{addr: addr, order: 1}
		if s.Order < 0 {
			res[n].order = -1
		}
	}
	return res, nil
}

// Sort sorts documents by the given criteria, keeping the original order of
// ties.
func (q *Querier) Sort(docs []domain.Document, sort domain.Sort) ([]domain.Document, error) {
	sorter, err := q.sorter(sort)
	if err != nil {
		return nil, err
	}
	if sorter == nil {
		return docs, nil
	}
	return q.sort(docs, sorter)
}

func (q *Querier) sort(data []domain.Document, sort []criterion) ([]domain.Document, error) {
	res := make([]sortable, len(data))
	for n, doc := range data {
		k, err := q.sortKeys(doc, sort)
		if err != nil {
			return nil, err
		}
		res[n] = sortable{doc: doc, keys: k}
	}

	var err error
	slices.SortStableFunc(res, func(a, b sortable) int {
		if err != nil {
			return 0
		}
		for n, crit := range sort {
			comp, cErr := q.cmpr.Compare(a.keys[n], b.keys[n])
			if cErr != nil {
				err = cErr
				return 0
			}
			if comp != 0 {
				return comp * crit.order
			}
		}
		return 0
	})
	if err != nil {
		return nil, fmt.Errorf("sorting: %w", invalid(err))
	}

	docs := make([]domain.Document, len(res))
	for n, s := range res {
		docs[n] = s.doc
	}
	return docs, nil
}

type sortable struct {
	doc  domain.Document
	keys []any
}

// sortKeys reads the sort values of doc. Each key is a list of getters so
// missing fields sort first.
func (q *Querier) sortKeys(doc domain.Document, sort []criterion) ([]any, error) {
	res := make([]any, len(sort))
	for n, crit := range sort {
		fields, _, err := q.fn.GetField(doc, crit.addr...)
		if err != nil {
			return nil, fmt.Errorf("getting field: %w", err)
		}
		list := make([]any, len(fields))
		for i, f := range fields {
			list[i] = f
		}
		res[n] = list
	}
	return res, nil
}

// SkipAndLimit drops the first skip documents and keeps at most limit of the
// remaining. A limit that is not positive means no limit.
func SkipAndLimit(data []domain.Document, skip, limit int64) []domain.Document {
	length := int64(len(data))

	skip = min(max(skip, 0), length)
	end := length
	if limit > 0 {
		end = min(skip+limit, length)
	}
	return data[skip:end]
}

func invalid(err error) error {
	if errors.Is(err, domain.ErrInvalidSpec) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidSpec, err)
}
