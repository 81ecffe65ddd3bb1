// Package domain contains domain-specific interfaces and option types for
// docq.
//
// This package defines the core interfaces that must be implemented by
// adapters, as well as functional options for configuring queries, indexes,
// cursors and the access path selection.
package domain

import (
	"context"
	"iter"
	"time"
)

// Serializer converts documents to bytes for snapshots.
type Serializer interface {
	// Serialize converts a document to bytes.
	Serialize(context.Context, any) ([]byte, error)
}

// Deserializer converts bytes back to documents.
type Deserializer interface {
	// Deserialize converts bytes back to a document.
	Deserialize(context.Context, []byte, any) error
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Comparer provides ordering and comparison operations for different data
// types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be ordered against each
	// other by range operators.
	Comparable(any, any) bool
}

// TimeGetter provides current time for timestamping operations.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// Getter represents a value that can be treated as undefined.
type Getter interface {
	// Get returns the value for the given address and a bool that indicates
	// whether the value counts as defined or not. If an address points to
	// an unset key in a document, an out of bounds index in an array or any
	// address within a primitive value, it counts as undefined. An
	// explicit nil is defined.
	Get() (value any, defined bool)
}

// GetSetter represents a value in a [Document]. It is returned by
// [FieldNavigator] so unset values can be told apart from nil ones and nested
// values can be replaced. GetSetter is not concurrency safe.
type GetSetter interface {
	// GetSetter implements [Getter]. Undefined values can neither be set
	// nor unset.
	Getter
	// Set will set a new value for the address.
	Set(any)
	// Unset removes the given value from the parent item.
	Unset()
}

// FieldNavigator provides field access operations with dot notation support.
type FieldNavigator interface {
	// GetField extracts values from nested documents, following path parts.
	// The returned bool reports whether an array was expanded on the way.
	GetField(any, ...string) ([]GetSetter, bool, error)
	// EnsureField works like GetField, but creates missing documents along
	// the path.
	EnsureField(any, ...string) ([]GetSetter, error)
	// GetAddress splits a dotted field name into path parts.
	GetAddress(field string) ([]string, error)
}

// Hasher generates hash values for grouping and deduplication.
type Hasher interface {
	// Hash generates a hash value for the given data.
	Hash(any) (uint64, error)
}

// Document represents a record held by the store. Documents returned to
// callers are always copies.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value under the given key.
	Set(string, any)
	// Unset unsets the value under the given key.
	Unset(string)
	// Iter returns an unordered sequence of key-value pairs in the
	// document.
	Iter() iter.Seq2[string, any]
	// Keys returns an unordered sequence of keys in the document.
	Keys() iter.Seq[string]
	// Values returns an unordered sequence of values in the document.
	Values() iter.Seq[any]
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Len returns the number of set fields in the document.
	Len() int
}

// Matcher evaluates whether values match a compiled query. A Matcher holds
// the compiled query, so one instance should not be shared by concurrent
// requests.
type Matcher interface {
	// SetQuery compiles the query that will be used by Match.
	SetQuery(any) error
	// Match returns true if the value matches the query.
	Match(any) (bool, error)
}

// Modifier applies update mutations to documents.
type Modifier interface {
	// Modify applies a mutation to a copy of the document and returns the
	// result.
	Modify(Document, Document) (Document, error)
}

// Projector keeps or omits document fields.
type Projector interface {
	// Project returns projected copies of the given documents.
	Project([]Document, map[string]uint8) ([]Document, error)
}

// Querier filters, sorts, paginates and projects a sequence of documents.
type Querier interface {
	// Query runs the fixed filter, sort, skip, limit and project sequence.
	Query(context.Context, iter.Seq2[Document, error], ...QueryOption) ([]Document, error)
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Scan decodes the current document into the target.
	Scan(ctx context.Context, target any) error
	// Next advances the cursor to the next document, returning true if
	// available.
	Next() bool
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close() error
}

// IDGenerator creates record identifiers.
type IDGenerator interface {
	// GenerateID returns a new unique identifier.
	GenerateID() (string, error)
}

// Store is an insertion-ordered table of records keyed by identifier. Store is
// not concurrency safe; callers serialize access.
type Store interface {
	// Insert appends a record. It fails with [ErrDuplicateKey] if the id is
	// already in use.
	Insert(id string, doc Document) error
	// Get returns the record stored under id.
	Get(id string) (Document, bool)
	// Replace swaps the record stored under id, keeping its position.
	Replace(id string, doc Document) error
	// Delete removes a record, reporting whether it existed.
	Delete(id string) bool
	// All iterates every record in insertion order.
	All() iter.Seq2[string, Document]
	// Ordered resolves ids to records in insertion order, skipping
	// unknown ids.
	Ordered(ids []string) iter.Seq2[string, Document]
	// Len returns the number of records.
	Len() int
}

// Index maps key tuples to record identifiers.
type Index interface {
	// Name returns the index name.
	Name() string
	// Fields returns the indexed fields in key order.
	Fields() []IndexField
	// Unique reports whether duplicated keys are rejected.
	Unique() bool
	// Sparse reports whether records without any indexed field are left
	// out.
	Sparse() bool
	// Multikey reports whether any record produced more than one key.
	Multikey() bool
	// Insert adds the keys of doc for the given record.
	Insert(ctx context.Context, id string, doc Document) error
	// Remove removes the keys of doc for the given record.
	Remove(ctx context.Context, id string, doc Document) error
	// Update replaces the keys of oldDoc with the keys of newDoc. It
	// reports whether any key changed.
	Update(ctx context.Context, id string, oldDoc, newDoc Document) (bool, error)
	// Reset clears the index and inserts every given record.
	Reset(ctx context.Context, records iter.Seq2[string, Document]) error
	// Scan returns the ids whose keys fall within the bounds.
	Scan(ctx context.Context, bounds IndexBounds) iter.Seq2[string, error]
	// GetAll returns every indexed id in key order.
	GetAll() iter.Seq[string]
	// GetNumberOfKeys returns the number of distinct keys.
	GetNumberOfKeys() int
}

// IndexManager owns the set of active indexes, keeps them consistent with
// the store and chooses access paths for filters.
type IndexManager interface {
	// CreateIndex builds a new index from the given records and returns its
	// name.
	CreateIndex(ctx context.Context, spec IndexSpec, records iter.Seq2[string, Document]) (string, error)
	// DropIndex removes an index by name.
	DropIndex(ctx context.Context, name string) error
	// Indexes describes the active indexes.
	Indexes() []IndexInfo
	// ChooseAccessPath decides between an index scan and a full scan.
	ChooseAccessPath(filter any, hint string) (AccessPath, error)
	// Candidates enumerates the ids selected by an index scan access path.
	Candidates(ctx context.Context, path AccessPath) ([]string, error)
	// Insert adds a record to every index.
	Insert(ctx context.Context, id string, doc Document) error
	// Update moves a record between keys in every affected index.
	Update(ctx context.Context, id string, oldDoc, newDoc Document) error
	// Remove removes a record from every index.
	Remove(ctx context.Context, id string, doc Document) error
}

// DB is an embedded document store with secondary indexes and an aggregation
// pipeline. Every method is safe for concurrent use.
type DB interface {
	// Insert adds documents, all or none. Documents without _id get one.
	Insert(ctx context.Context, docs ...any) (Cursor, error)
	// InsertOne adds a document and returns its _id.
	InsertOne(ctx context.Context, doc any) (string, error)
	// UpdateOne applies mutation to the first matching document.
	UpdateOne(ctx context.Context, filter any, mutation any) (UpdateResult, error)
	// UpdateMany applies mutation to every matching document, all or none.
	UpdateMany(ctx context.Context, filter any, mutation any) (UpdateResult, error)
	// DeleteOne removes the first matching document.
	DeleteOne(ctx context.Context, filter any) (DeleteResult, error)
	// DeleteMany removes every matching document.
	DeleteMany(ctx context.Context, filter any) (DeleteResult, error)
	// Find returns the matching documents.
	Find(ctx context.Context, filter any, opts ...FindOption) (Cursor, error)
	// FindOne decodes the first matching document into target. It fails
	// with [ErrNotFound] when nothing matches.
	FindOne(ctx context.Context, filter any, target any, opts ...FindOption) error
	// Count returns the number of matching documents.
	Count(ctx context.Context, filter any) (int64, error)
	// CreateIndex creates a non unique, non sparse index over fields.
	CreateIndex(ctx context.Context, fields ...IndexField) (string, error)
	// EnsureIndex creates an index, or returns the name of an identical
	// one.
	EnsureIndex(ctx context.Context, spec IndexSpec) (string, error)
	// DropIndex removes an index by name.
	DropIndex(ctx context.Context, name string) error
	// Indexes describes the active indexes.
	Indexes(ctx context.Context) ([]IndexInfo, error)
	// Aggregate runs a pipeline over every document.
	Aggregate(ctx context.Context, stages ...any) (Cursor, error)
	// Explain reports how a filter would be executed.
	Explain(ctx context.Context, filter any, opts ...FindOption) (Explanation, error)
}
