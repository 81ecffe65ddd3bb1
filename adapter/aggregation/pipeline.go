// Package aggregation contains the aggregation pipeline: an ordered list of
// stages, each one turning a list of records into another.
package aggregation

import (
	"context"
	"errors"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/projector"
	"github.com/vinicius-lino-figueiredo/docq/adapter/querier"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// DropHandler is called with every record dropped because one of its
// expressions could not be evaluated.
type DropHandler func(stage string, doc domain.Document, err error)

// env holds the collaborators shared by the stages of a pipeline.
type env struct {
	docFac         domain.DocumentFactory
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	hasher         domain.Hasher
	matcherFactory domain.MatcherFactory
	projector      domain.Projector
	sorter         *querier.Querier
	onDrop         DropHandler
}

func newEnv(opts ...Option) *env {
	e := &env{
		docFac:   data.NewDocument,
		comparer: comparer.NewComparer(),
		hasher:   hasher.NewHasher(),
		onDrop:   func(string, domain.Document, error) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fieldNavigator == nil {
		e.fieldNavigator = fieldnavigator.NewFieldNavigator(e.docFac)
	}
	if e.matcherFactory == nil {
		e.matcherFactory = func() domain.Matcher {
			return matcher.NewMatcher(
				matcher.WithComparer(e.comparer),
				matcher.WithDocumentFactory(e.docFac),
				matcher.WithFieldNavigator(e.fieldNavigator),
			)
		}
	}
	if e.projector == nil {
		e.projector = projector.NewProjector(
			projector.WithDocumentFactory(e.docFac),
			projector.WithFieldNavigator(e.fieldNavigator),
		)
	}
	e.sorter = querier.NewQuerier(
		querier.WithComparer(e.comparer),
		querier.WithDocumentFactory(e.docFac),
		querier.WithFieldNavigator(e.fieldNavigator),
	).(*querier.Querier)
	return e
}

// drop reports a record-scoped failure. Other errors abort the pipeline.
func (e *env) drop(stage string, doc domain.Document, err error) error {
	if !errors.Is(err, domain.ErrTypeMismatch) {
		return err
	}
	e.onDrop(stage, doc, err)
	return nil
}

// Stage is one step of a [Pipeline]. The set of stages is closed.
type Stage interface {
	// Apply runs the stage alone, with default collaborators.
	Apply(ctx context.Context, docs []domain.Document) ([]domain.Document, error)
	apply(ctx context.Context, e *env, docs []domain.Document) ([]domain.Document, error)
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
	env    *env
}

// NewPipeline returns a pipeline running stages in the given order.
func NewPipeline(stages []Stage, opts ...Option) *Pipeline {
	return &Pipeline{
		stages: append([]Stage(nil), stages...),
		env:    newEnv(opts...),
	}
}

// Run feeds docs to the first stage and the output of each stage to the next.
func (p *Pipeline) Run(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	var err error
	for _, s := range p.stages {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if docs, err = s.apply(ctx, p.env, docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// each calls fn for every document, checking ctx in between.
func each(ctx context.Context, docs []domain.Document, fn func(domain.Document) error) error {
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
