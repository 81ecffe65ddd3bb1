package indexmanager

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// WithIndexFactory sets the factory used to build new indexes.
func WithIndexFactory(f domain.IndexFactory) Option {
	return func(m *IndexManager) {
		m.indexFactory = f
	}
}

// WithDocumentFactory sets the factory used to read filters.
func WithDocumentFactory(f domain.DocumentFactory) Option {
	return func(m *IndexManager) {
		m.docFac = f
	}
}

// WithComparer sets the comparer given to new indexes and used to tighten
// range bounds.
func WithComparer(c domain.Comparer) Option {
	return func(m *IndexManager) {
		m.comparer = c
	}
}

// WithFieldNavigator sets the field navigator given to new indexes.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *IndexManager) {
		m.fieldNavigator = f
	}
}

// WithHasher sets the hasher given to new indexes.
func WithHasher(h domain.Hasher) Option {
	return func(m *IndexManager) {
		m.hasher = h
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *IndexManager) {
		m.logger = l
	}
}

// Option configures an [IndexManager].
type Option func(*IndexManager)
