package aggregation

import "github.com/vinicius-lino-figueiredo/docq/domain"

// Option configures a [Pipeline].
type Option func(*env)

// WithDocumentFactory sets the factory used to build output records.
func WithDocumentFactory(f domain.DocumentFactory) Option {
	return func(e *env) {
		e.docFac = f
	}
}

// WithComparer sets the comparer used by sorting, grouping and $min/$max.
func WithComparer(c domain.Comparer) Option {
	return func(e *env) {
		e.comparer = c
	}
}

// WithFieldNavigator sets the field navigator used to read field references.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(e *env) {
		e.fieldNavigator = f
	}
}

// WithHasher sets the hasher used to group records.
func WithHasher(h domain.Hasher) Option {
	return func(e *env) {
		e.hasher = h
	}
}

// WithMatcherFactory sets the factory of the matchers used by match stages.
func WithMatcherFactory(f domain.MatcherFactory) Option {
	return func(e *env) {
		e.matcherFactory = f
	}
}

// WithProjector sets the projector used by project stages.
func WithProjector(p domain.Projector) Option {
	return func(e *env) {
		e.projector = p
	}
}

// WithDropHandler sets the function notified of dropped records.
func WithDropHandler(h DropHandler) Option {
	return func(e *env) {
		e.onDrop = h
	}
}
