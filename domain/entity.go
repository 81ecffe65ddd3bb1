package domain

import (
	"context"
	"fmt"
	"strings"
)

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// IndexField is one component of an index key.
type IndexField struct {
	Field     string
	Direction int
}

// IndexSpec describes an index to be created.
type IndexSpec struct {
	Fields []IndexField
	Unique bool
	Sparse bool
}

// Name returns the deterministic index name, made of field_direction pairs
// joined by underscores.
func (s IndexSpec) Name() string {
	parts := make([]string, 0, len(s.Fields)*2)
	for _, f := range s.Fields {
		parts = append(parts, f.Field, fmt.Sprint(f.Direction))
	}
	return strings.Join(parts, "_")
}

// IndexInfo describes an active index.
type IndexInfo struct {
	Name   string
	Fields []IndexField
	Unique bool
	Sparse bool
	Keys   int
}

// Bound limits one side of a key range.
type Bound struct {
	Value     any
	Inclusive bool
}

// KeyRange selects index keys starting with Prefix. When set, Lower and Upper
// bound the key component right after the prefix.
type KeyRange struct {
	Prefix []any
	Lower  *Bound
	Upper  *Bound
}

// String implements [fmt.Stringer].
func (r KeyRange) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for n, p := range r.Prefix {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", p)
	}
	if r.Lower != nil || r.Upper != nil {
		if len(r.Prefix) > 0 {
			b.WriteString(", ")
		}
		switch {
		case r.Lower == nil:
			b.WriteString("(-inf")
		case r.Lower.Inclusive:
			fmt.Fprintf(&b, "[%v", r.Lower.Value)
		default:
			fmt.Fprintf(&b, "(%v", r.Lower.Value)
		}
		b.WriteString(", ")
		switch {
		case r.Upper == nil:
			b.WriteString("+inf)")
		case r.Upper.Inclusive:
			fmt.Fprintf(&b, "%v]", r.Upper.Value)
		default:
			fmt.Fprintf(&b, "%v)", r.Upper.Value)
		}
	}
	b.WriteByte(']')
	return b.String()
}

// IndexBounds is a union of key ranges.
type IndexBounds []KeyRange

// String implements [fmt.Stringer].
func (b IndexBounds) String() string {
	parts := make([]string, len(b))
	for n, r := range b {
		parts[n] = r.String()
	}
	return strings.Join(parts, " U ")
}

// AccessKind tells how candidates are enumerated.
type AccessKind uint8

// Supported access kinds.
const (
	FullScan AccessKind = iota
	IndexScan
)

// String implements [fmt.Stringer].
func (k AccessKind) String() string {
	if k == IndexScan {
		return "IXSCAN"
	}
	return "COLLSCAN"
}

// AccessPath is the result of access path selection.
type AccessPath struct {
	Kind   AccessKind
	Index  string
	Bounds IndexBounds
}

// Explanation reports how a filter would be executed. It is advisory.
type Explanation struct {
	ExecutionPath         string   `json:"executionPath" docq:"executionPath"`
	IndexName             string   `json:"indexName,omitempty" docq:"indexName"`
	IndexBounds           string   `json:"indexBounds,omitempty" docq:"indexBounds"`
	EstimatedDocsExamined int64    `json:"estimatedDocsExamined" docq:"estimatedDocsExamined"`
	KeysExamined          int64    `json:"keysExamined" docq:"keysExamined"`
	TotalDocuments        int64    `json:"totalDocuments" docq:"totalDocuments"`
	AvailableIndexes      []string `json:"availableIndexes" docq:"availableIndexes"`
}

// UpdateResult reports the outcome of an update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount" docq:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount" docq:"modifiedCount"`
}

// DeleteResult reports the outcome of a delete.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount" docq:"deletedCount"`
}

// DocumentFactory represents a function that constructs [Document] instances
// from structured data types. If nil is provided, returns an empty document.
type DocumentFactory = func(any) (Document, error)

// CursorFactory represents a function that constructs [Cursor] instances from a
// set of documents with configurable options.
type CursorFactory = func(context.Context, []Document, ...CursorOption) (Cursor, error)

// IndexFactory represents a function that constructs [Index] instances with
// configurable options.
type IndexFactory = func(...IndexOption) (Index, error)

// MatcherFactory represents a function that constructs a fresh [Matcher].
type MatcherFactory = func() Matcher
