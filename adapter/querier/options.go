package querier

import "github.com/vinicius-lino-figueiredo/docq/domain"

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(q *Querier) {
		q.docFac = df
	}
}

// WithMatcherFactory sets the factory of the matchers used to filter
// documents. Each call to [Querier.Query] compiles its own matcher.
func WithMatcherFactory(m domain.MatcherFactory) Option {
	return func(q *Querier) {
		q.mtchrFac = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.cmpr = c
	}
}

// WithFieldNavigator sets the field getter for accessing document
// fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) {
		q.fn = f
	}
}

// WithProjector sets the implementation what will be used to project
// the resultant documents.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) {
		q.proj = p
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
