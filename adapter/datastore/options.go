package datastore

import (
	"io"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// WithTimestamps enables automatic timestamping of documents with createdAt and
// updatedAt fields.
func WithTimestamps(t bool) Option {
	return func(dso *Datastore) {
		dso.timestampData = t
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(dso *Datastore) {
		dso.logger = l
	}
}

// WithMetrics sets the collectors updated by every operation. By default they
// are created without being registered anywhere.
func WithMetrics(m *metrics.Metrics) Option {
	return func(dso *Datastore) {
		dso.metrics = m
	}
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c domain.Comparer) Option {
	return func(dso *Datastore) {
		dso.comparer = c
	}
}

// WithStore sets the table holding the documents.
func WithStore(s domain.Store) Option {
	return func(dso *Datastore) {
		dso.store = s
	}
}

// WithIndexManager sets the index manager.
func WithIndexManager(m domain.IndexManager) Option {
	return func(dso *Datastore) {
		dso.indexManager = m
	}
}

// WithIndexFactory sets the factory function for creating index instances.
// It is ignored when [WithIndexManager] is used.
func WithIndexFactory(i domain.IndexFactory) Option {
	return func(dso *Datastore) {
		dso.indexFactory = i
	}
}

// WithDocumentFactory sets the factory function for creating document instances.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(dso *Datastore) {
		dso.documentFactory = d
	}
}

// WithDecoder sets the decoder for data format conversions.
func WithDecoder(d domain.Decoder) Option {
	return func(dso *Datastore) {
		dso.decoder = d
	}
}

// WithMatcherFactory sets the factory creating one matcher per request.
func WithMatcherFactory(m domain.MatcherFactory) Option {
	return func(dso *Datastore) {
		dso.matcherFactory = m
	}
}

// WithCursorFactory sets the factory function for creating cursor instances.
func WithCursorFactory(c domain.CursorFactory) Option {
	return func(dso *Datastore) {
		dso.cursorFactory = c
	}
}

// WithModifier sets the modifier implementation for document updates.
func WithModifier(m domain.Modifier) Option {
	return func(dso *Datastore) {
		dso.modifier = m
	}
}

// WithQuerier sets the querier running filter, sort, skip, limit and
// projection.
func WithQuerier(q domain.Querier) Option {
	return func(dso *Datastore) {
		dso.querier = q
	}
}

// WithProjector sets the projector used by queries and aggregations.
func WithProjector(p domain.Projector) Option {
	return func(dso *Datastore) {
		dso.projector = p
	}
}

// WithTimeGetter sets the time getter for timestamping operations.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(dso *Datastore) {
		dso.timeGetter = t
	}
}

// WithHasher sets the hasher for generating hash values.
func WithHasher(h domain.Hasher) Option {
	return func(dso *Datastore) {
		dso.hasher = h
	}
}

// WithFieldNavigator sets the field getter for accessing document fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(dso *Datastore) {
		dso.fieldNavigator = f
	}
}

// WithIDGenerator sets the idgenerator to create new document ids.
func WithIDGenerator(ig domain.IDGenerator) Option {
	return func(dso *Datastore) {
		dso.idGenerator = ig
	}
}

// WithRandomReader sets the reader to be used by the default IDGenerator.
func WithRandomReader(r io.Reader) Option {
	return func(dso *Datastore) {
		dso.randomReader = r
	}
}

// Option configures datastore behavior through the functional options
// pattern.
type Option func(*Datastore)
