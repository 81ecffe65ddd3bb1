package modifier

import "github.com/vinicius-lino-figueiredo/docq/domain"

// Option configures a [Modifier].
type Option func(*Modifier)

// WithComparer sets the comparer used by $min, $max, $addToSet and $pull.
func WithComparer(c domain.Comparer) Option {
	return func(m *Modifier) {
		m.comparer = c
	}
}

// WithDocumentFactory sets the factory used to copy documents.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(m *Modifier) {
		m.docFac = d
	}
}

// WithFieldNavigator sets the field navigator used to resolve dotted fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Modifier) {
		m.fieldNavigator = f
	}
}

// WithMatcherFactory sets the factory of matchers used by $pull conditions.
func WithMatcherFactory(f domain.MatcherFactory) Option {
	return func(m *Modifier) {
		m.matcherFactory = f
	}
}
