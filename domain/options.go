package domain

// WithProjection specifies which fields to include or exclude from query
// results.
func WithProjection(p any) FindOption {
	return func(fo *FindOptions) {
		fo.Projection = p
	}
}

// WithSkip sets the number of documents to skip in query results.
func WithSkip(s int64) FindOption {
	return func(fo *FindOptions) {
		fo.Skip = s
	}
}

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) FindOption {
	return func(fo *FindOptions) {
		fo.Limit = l
	}
}

// WithSort specifies the sort order for query results.
func WithSort(s Sort) FindOption {
	return func(fo *FindOptions) {
		fo.Sort = s
	}
}

// WithHint forces the use of the named index.
func WithHint(name string) FindOption {
	return func(fo *FindOptions) {
		fo.Hint = name
	}
}

// FindOption configures query behavior through the functional options pattern.
type FindOption func(*FindOptions)

// FindOptions contains parameters for customizing query execution.
type FindOptions struct {
	// Projection specifies which fields to include or exclude from results.
	Projection any
	// Skip specifies the number of documents to skip.
	Skip int64
	// Limit specifies the maximum number of documents to return.
	Limit int64
	// Sort specifies the sort order for results.
	Sort Sort
	// Hint names the index that must be used.
	Hint string
}

// WithQuery sets the query criteria for a [Querier.Query] call.
func WithQuery(q any) QueryOption {
	return func(qo *QueryOptions) {
		qo.Query = q
	}
}

// WithQueryLimit sets the maximum number of documents the query should return.
func WithQueryLimit(l int64) QueryOption {
	return func(qo *QueryOptions) {
		qo.Limit = l
	}
}

// WithQuerySkip sets the number of documents the query should skip.
func WithQuerySkip(s int64) QueryOption {
	return func(qo *QueryOptions) {
		qo.Skip = s
	}
}

// WithQuerySort sets the sort order for query results.
func WithQuerySort(s Sort) QueryOption {
	return func(qo *QueryOptions) {
		qo.Sort = s
	}
}

// WithQueryProjection specifies which fields to include or exclude in query
// results.
func WithQueryProjection(p map[string]uint8) QueryOption {
	return func(qo *QueryOptions) {
		qo.Projection = p
	}
}

// WithQueryCap sets the expected number of results.
func WithQueryCap(c int) QueryOption {
	return func(qo *QueryOptions) {
		qo.Cap = c
	}
}

// QueryOption configures query behavior through the functional options pattern.
type QueryOption func(*QueryOptions)

// QueryOptions contains parameters for customizing query behavior.
type QueryOptions struct {
	// Query specifies the criteria for filtering documents.
	Query any
	// Limit specifies the maximum number of documents to return.
	Limit int64
	// Skip specifies the number of documents to skip.
	Skip int64
	// Sort specifies the sort order for results.
	Sort Sort
	// Projection specifies which fields to include or exclude.
	Projection map[string]uint8
	// Cap preallocates the result slice.
	Cap int
}

// WithCursorDecoder sets the decoder for converting cursor results.
func WithCursorDecoder(d Decoder) CursorOption {
	return func(co *CursorOptions) {
		co.Decoder = d
	}
}

// CursorOption configures cursor behavior through the functional options
// pattern.
type CursorOption func(*CursorOptions)

// CursorOptions contains parameters for customizing cursor behavior.
type CursorOptions struct {
	// Decoder converts between data representations.
	Decoder Decoder
}

// WithIndexSpec sets the fields and constraints of the index.
func WithIndexSpec(s IndexSpec) IndexOption {
	return func(io *IndexOptions) {
		io.Spec = s
	}
}

// WithIndexComparer sets the comparer used to order keys.
func WithIndexComparer(c Comparer) IndexOption {
	return func(io *IndexOptions) {
		io.Comparer = c
	}
}

// WithIndexFieldNavigator sets the field navigator used to read keys.
func WithIndexFieldNavigator(f FieldNavigator) IndexOption {
	return func(io *IndexOptions) {
		io.FieldNavigator = f
	}
}

// WithIndexHasher sets the hasher used to deduplicate keys.
func WithIndexHasher(h Hasher) IndexOption {
	return func(io *IndexOptions) {
		io.Hasher = h
	}
}

// IndexOption configures index creation through the functional options
// pattern.
type IndexOption func(*IndexOptions)

// IndexOptions contains parameters for customizing index creation.
type IndexOptions struct {
	Spec           IndexSpec
	Comparer       Comparer
	FieldNavigator FieldNavigator
	Hasher         Hasher
}
