// Package docq provides an embedded, in-memory document database for golang
// with MongoDB-like filters, update operators, secondary indexes and an
// aggregation pipeline.
//
// The basic usage starts with creating a new [DB] instance, which can be done
// by calling [NewDB]. Every operation is safe for concurrent use.
package docq

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/datastore"
	"github.com/vinicius-lino-figueiredo/docq/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/docq/adapter/snapshot"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

var (
	// ErrDuplicateKey is returned when an insert or update would violate a
	// uniqueness constraint, either on _id or on a unique index.
	ErrDuplicateKey = domain.ErrDuplicateKey
	// ErrIndexAlreadyExists is returned by [DB.EnsureIndex] when an index
	// with the same name but different options exists.
	ErrIndexAlreadyExists = domain.ErrIndexAlreadyExists
	// ErrIndexNotFound is returned when an unknown index name is used.
	ErrIndexNotFound = domain.ErrIndexNotFound
	// ErrTypeMismatch is returned when an aggregation expression gets
	// operands of the wrong type.
	ErrTypeMismatch = domain.ErrTypeMismatch
	// ErrInvalidSpec is returned when a filter, projection, sort, mutation,
	// index or stage is malformed.
	ErrInvalidSpec = domain.ErrInvalidSpec
	// ErrCannotModifyID is returned when a mutation would change _id.
	ErrCannotModifyID = domain.ErrCannotModifyID
	// ErrNotFound is returned by [DB.FindOne] when nothing matches.
	ErrNotFound = domain.ErrNotFound
	// ErrCursorClosed is returned when using a closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a nil decode target is given.
	ErrTargetNil = domain.ErrTargetNil
)

// ErrFieldName is returned when a document holds a field name that cannot be
// stored: empty, starting with '$' or containing '.'.
type ErrFieldName = domain.ErrFieldName

// ErrCannotCompare is returned when two values have no defined order.
type ErrCannotCompare = domain.ErrCannotCompare

// ErrCorruptSnapshot is returned by [Import] when too many lines of a
// snapshot cannot be read.
type ErrCorruptSnapshot = domain.ErrCorruptSnapshot

// ErrDecode wraps third party decoding errors.
type ErrDecode = domain.ErrDecode

// NewDB creates a new in-memory [DB]. Options replace the defaults of every
// collaborator; most callers only need [WithLogger], [WithMetrics] and
// [WithTimestamps].
func NewDB(options ...Option) (DB, error) {
	return datastore.NewDatastore(options...)
}

// DB is an embedded document store. See [domain.DB].
type DB = domain.DB

// M is the default document type.
type M = data.M

// Document represents a stored record.
type Document = domain.Document

// Cursor iterates over query results.
type Cursor = domain.Cursor

// Sort represents an ordered list of sort keys.
type Sort = domain.Sort

// SortName is one sort key. A positive Order means ascending.
type SortName = domain.SortName

// IndexField is one component of an index key. Direction is 1 or -1.
type IndexField = domain.IndexField

// IndexSpec describes an index to be created by [DB.EnsureIndex].
type IndexSpec = domain.IndexSpec

// IndexInfo describes an active index.
type IndexInfo = domain.IndexInfo

// Explanation is returned by [DB.Explain].
type Explanation = domain.Explanation

// UpdateResult is returned by [DB.UpdateOne] and [DB.UpdateMany].
type UpdateResult = domain.UpdateResult

// DeleteResult is returned by [DB.DeleteOne] and [DB.DeleteMany].
type DeleteResult = domain.DeleteResult

// FindOption configures [DB.Find], [DB.FindOne] and [DB.Explain].
type FindOption = domain.FindOption

// WithProjection keeps (1) or removes (0) fields from the results.
func WithProjection(p any) FindOption {
	return domain.WithProjection(p)
}

// WithSkip skips the first s results.
func WithSkip(s int64) FindOption {
	return domain.WithSkip(s)
}

// WithLimit returns at most l results. Zero means no limit.
func WithLimit(l int64) FindOption {
	return domain.WithLimit(l)
}

// WithSort sorts the results.
func WithSort(s Sort) FindOption {
	return domain.WithSort(s)
}

// WithHint forces the use of the named index.
func WithHint(name string) FindOption {
	return domain.WithHint(name)
}

// Option configures [NewDB].
type Option = datastore.Option

// WithTimestamps adds createdAt and updatedAt to stored documents.
func WithTimestamps(t bool) Option {
	return datastore.WithTimestamps(t)
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return datastore.WithLogger(l)
}

// WithMetrics registers the datastore collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return datastore.WithMetrics(metrics.New(reg))
}

// WithComparer sets the comparer used by filters, sorts and indexes.
func WithComparer(c domain.Comparer) Option {
	return datastore.WithComparer(c)
}

// WithDocumentFactory sets the function that builds documents.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return datastore.WithDocumentFactory(d)
}

// WithDecoder sets the decoder used by cursors.
func WithDecoder(d domain.Decoder) Option {
	return datastore.WithDecoder(d)
}

// WithTimeGetter sets the clock used for timestamps.
func WithTimeGetter(t domain.TimeGetter) Option {
	return datastore.WithTimeGetter(t)
}

// WithIDGenerator sets the generator of missing _id values.
func WithIDGenerator(g domain.IDGenerator) Option {
	return datastore.WithIDGenerator(g)
}

// WithRandomReader sets the random source of the default id generator.
func WithRandomReader(r io.Reader) Option {
	return datastore.WithRandomReader(r)
}

// Export writes every index and document of db to w as JSON lines.
func Export(ctx context.Context, db DB, w io.Writer) error {
	return snapshot.Export(ctx, db, w)
}

// Import loads a snapshot written by [Export] into db.
func Import(ctx context.Context, db DB, r io.Reader) error {
	return snapshot.Import(ctx, db, r)
}
