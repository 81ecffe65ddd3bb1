// Package datastore contains the default [domain.DB] implementation. Writes
// are serialized by a single critical section covering the document table and
// every index, while reads share it.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/adapter/aggregation"
	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/index"
	"github.com/vinicius-lino-figueiredo/docq/adapter/indexmanager"
	"github.com/vinicius-lino-figueiredo/docq/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/docq/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/docq/adapter/projector"
	"github.com/vinicius-lino-figueiredo/docq/adapter/querier"
	"github.com/vinicius-lino-figueiredo/docq/adapter/store"
	"github.com/vinicius-lino-figueiredo/docq/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/ctxsync"
	"github.com/vinicius-lino-figueiredo/docq/pkg/structure"
)

// Datastore implements domain.DB.
type Datastore struct {
	timestampData   bool
	logger          *zap.Logger
	metrics         *metrics.Metrics
	executor        *ctxsync.RWMutex
	store           domain.Store
	indexManager    domain.IndexManager
	indexFactory    domain.IndexFactory
	documentFactory domain.DocumentFactory
	cursorFactory   domain.CursorFactory
	matcherFactory  domain.MatcherFactory
	comparer        domain.Comparer
	decoder         domain.Decoder
	modifier        domain.Modifier
	querier         domain.Querier
	projector       domain.Projector
	timeGetter      domain.TimeGetter
	hasher          domain.Hasher
	fieldNavigator  domain.FieldNavigator
	idGenerator     domain.IDGenerator
	randomReader    io.Reader
}

// NewDatastore returns a new implementation of domain.DB.
func NewDatastore(options ...Option) (domain.DB, error) {
	d := &Datastore{
		logger:          zap.NewNop(),
		executor:        ctxsync.NewRWMutex(),
		store:           store.NewStore(),
		indexFactory:    index.NewIndex,
		documentFactory: data.NewDocument,
		cursorFactory:   cursor.NewCursor,
		comparer:        comparer.NewComparer(),
		decoder:         decoder.NewDecoder(),
		timeGetter:      timegetter.NewTimeGetter(),
		hasher:          hasher.NewHasher(),
	}
	for _, option := range options {
		option(d)
	}

	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.metrics == nil {
		d.metrics = metrics.New(nil)
	}
	if d.fieldNavigator == nil {
		d.fieldNavigator = fieldnavigator.NewFieldNavigator(d.documentFactory)
	}
	if d.idGenerator == nil {
		var opts []idgenerator.Option
		if d.randomReader != nil {
			opts = append(opts, idgenerator.WithReader(d.randomReader))
		}
		d.idGenerator = idgenerator.NewIDGenerator(opts...)
	}
	if d.matcherFactory == nil {
		d.matcherFactory = func() domain.Matcher {
			return matcher.NewMatcher(
				matcher.WithComparer(d.comparer),
				matcher.WithDocumentFactory(d.documentFactory),
				matcher.WithFieldNavigator(d.fieldNavigator),
			)
		}
	}
	if d.projector == nil {
		d.projector = projector.NewProjector(
			projector.WithDocumentFactory(d.documentFactory),
			projector.WithFieldNavigator(d.fieldNavigator),
		)
	}
	if d.modifier == nil {
		d.modifier = modifier.NewModifier(
			modifier.WithComparer(d.comparer),
			modifier.WithDocumentFactory(d.documentFactory),
			modifier.WithFieldNavigator(d.fieldNavigator),
			modifier.WithMatcherFactory(d.matcherFactory),
		)
	}
	if d.querier == nil {
		d.querier = querier.NewQuerier(
			querier.WithComparer(d.comparer),
			querier.WithDocumentFactory(d.documentFactory),
			querier.WithFieldNavigator(d.fieldNavigator),
			querier.WithMatcherFactory(d.matcherFactory),
			querier.WithProjector(d.projector),
		)
	}
	if d.indexManager == nil {
		d.indexManager = indexmanager.NewIndexManager(
			indexmanager.WithIndexFactory(d.indexFactory),
			indexmanager.WithDocumentFactory(d.documentFactory),
			indexmanager.WithComparer(d.comparer),
			indexmanager.WithFieldNavigator(d.fieldNavigator),
			indexmanager.WithHasher(d.hasher),
			indexmanager.WithLogger(d.logger),
		)
	}
	return d, nil
}

func (d *Datastore) observe(operation string, start time.Time, err *error) {
	d.metrics.Observe(operation, start, *err)
}

// lock takes the write side of the critical section. The returned context
// cannot be cancelled, so a mutation is never left half applied.
func (d *Datastore) lock(ctx context.Context) (context.Context, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	return context.WithoutCancel(ctx), nil
}

func (d *Datastore) cloneDocs(docs ...domain.Document) ([]domain.Document, error) {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		newDoc, err := d.clone(doc)
		if err != nil {
			return nil, err
		}
		res[n] = newDoc.(domain.Document)
	}
	return res, nil
}

func (d *Datastore) clone(v any) (any, error) {
	switch t := v.(type) {
	case domain.Document:
		res, err := d.documentFactory(nil)
		if err != nil {
			return nil, err
		}
		for k, v := range t.Iter() {
			val, err := d.clone(v)
			if err != nil {
				return nil, err
			}
			res.Set(k, val)
		}
		return res, nil
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			val, err := d.clone(v)
			if err != nil {
				return nil, err
			}
			res[n] = val
		}
		return res, nil
	default:
		return t, nil
	}
}

func (d *Datastore) newCursor(ctx context.Context, docs []domain.Document) (domain.Cursor, error) {
	return d.cursorFactory(ctx, docs, domain.WithCursorDecoder(d.decoder))
}

// idOf returns the _id of a stored document.
func idOf(doc domain.Document) string {
	id, _ := doc.ID().(string)
	return id
}

func (d *Datastore) prepareDocumentsForInsertion(newDocs []any) ([]domain.Document, error) {
	preparedDocs := make([]domain.Document, len(newDocs))
	for n, newDoc := range newDocs {
		doc, err := d.documentFactory(newDoc)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", domain.ErrInvalidSpec, n, err)
		}
		// the factory may keep references to nested caller values
		cp, err := d.clone(doc)
		if err != nil {
			return nil, err
		}
		preparedDoc := cp.(domain.Document)

		if !preparedDoc.Has("_id") {
			id, err := d.idGenerator.GenerateID()
			if err != nil {
				return nil, err
			}
			preparedDoc.Set("_id", id)
		}
		if id, ok := preparedDoc.ID().(string); !ok || id == "" {
			return nil, fmt.Errorf("%w: _id must be a non empty string, got %v", domain.ErrInvalidSpec, preparedDoc.ID())
		}
		if d.timestampData {
			now := d.timeGetter.GetTime()
			if !preparedDoc.Has("createdAt") {
				preparedDoc.Set("createdAt", now)
			}
			if !preparedDoc.Has("updatedAt") {
				preparedDoc.Set("updatedAt", now)
			}
		}
		if err := data.CheckFieldNames(preparedDoc); err != nil {
			return nil, err
		}
		preparedDocs[n] = preparedDoc
	}
	return preparedDocs, nil
}

// Insert implements domain.DB.
func (d *Datastore) Insert(ctx context.Context, newDocs ...any) (cur domain.Cursor, err error) {
	defer d.observe("insert", time.Now(), &err)

	preparedDocs, err := d.prepareDocumentsForInsertion(newDocs)
	if err != nil {
		return nil, err
	}

	lockCtx, err := d.lock(ctx)
	if err != nil {
		return nil, err
	}
	err = d.insert(lockCtx, preparedDocs)
	d.metrics.SetDocuments(d.store.Len())
	d.executor.Unlock()
	if err != nil {
		return nil, err
	}

	res, err := d.cloneDocs(preparedDocs...)
	if err != nil {
		return nil, err
	}
	return d.newCursor(context.WithoutCancel(ctx), res)
}

// InsertOne implements domain.DB.
func (d *Datastore) InsertOne(ctx context.Context, newDoc any) (string, error) {
	cur, err := d.Insert(ctx, newDoc)
	if err != nil {
		return "", err
	}
	defer cur.Close()

	var doc data.M
	if !cur.Next() {
		return "", cur.Err()
	}
	if err := cur.Scan(ctx, &doc); err != nil {
		return "", err
	}
	return idOf(doc), nil
}

// insert adds every document to the store and the indexes, removing the ones
// already added when one fails.
func (d *Datastore) insert(ctx context.Context, docs []domain.Document) error {
	var err error
	var failingIndex int
	for i, doc := range docs {
		id := idOf(doc)
		if err = d.store.Insert(id, doc); err != nil {
			err = fmt.Errorf("document %d: %w", i, err)
			failingIndex = i
			break
		}
		if err = d.indexManager.Insert(ctx, id, doc); err != nil {
			d.store.Delete(id)
			err = fmt.Errorf("document %d: %w", i, err)
			failingIndex = i
			break
		}
	}
	if err == nil {
		return nil
	}

	d.logger.Warn("rolling back insert", zap.Int("inserted", failingIndex), zap.Error(err))
	for i := failingIndex - 1; i >= 0; i-- {
		id := idOf(docs[i])
		if removeErr := d.indexManager.Remove(ctx, id, docs[i]); removeErr != nil {
			err = errors.Join(err, removeErr)
		}
		d.store.Delete(id)
	}
	return err
}

// candidates enumerates the documents that may match filter, in insertion
// order. The caller holds the lock.
func (d *Datastore) candidates(ctx context.Context, filter any, hint string) (iter.Seq2[domain.Document, error], error) {
	path, err := d.indexManager.ChooseAccessPath(filter, hint)
	if err != nil {
		return nil, err
	}
	d.metrics.AccessPath(path.Kind.String(), path.Index)

	records := d.store.All()
	if path.Kind == domain.IndexScan {
		ids, err := d.indexManager.Candidates(ctx, path)
		if err != nil {
			return nil, err
		}
		records = d.store.Ordered(ids)
	}

	return func(yield func(domain.Document, error) bool) {
		for _, doc := range records {
			if !yield(doc, nil) {
				return
			}
		}
	}, nil
}

// matching returns the stored documents matching filter. The caller holds
// the lock and must not change them.
func (d *Datastore) matching(ctx context.Context, filter any, hint string, opts ...domain.QueryOption) ([]domain.Document, error) {
	seq, err := d.candidates(ctx, filter, hint)
	if err != nil {
		return nil, err
	}
	return d.querier.Query(ctx, seq, append([]domain.QueryOption{domain.WithQuery(filter)}, opts...)...)
}

func findOptions(options []domain.FindOption) domain.FindOptions {
	var opts domain.FindOptions
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// projection reads a projection given as a map or struct of flags. 1, true
// or any non zero number keeps a field and 0 or false removes it.
func projection(p any) (map[string]uint8, error) {
	switch t := p.(type) {
	case nil:
		return nil, nil
	case map[string]uint8:
		return t, nil
	}
	seq, l, err := structure.Seq2(p)
	if err != nil {
		return nil, fmt.Errorf("%w: projection: %w", domain.ErrInvalidSpec, err)
	}
	res := make(map[string]uint8, l)
	for k, v := range seq {
		if b, ok := v.(bool); ok {
			res[k] = 0
			if b {
				res[k] = 1
			}
			continue
		}
		f, ok := structure.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: projection of %q must be a number or a boolean, got %T", domain.ErrInvalidSpec, k, v)
		}
		res[k] = 0
		if f != 0 {
			res[k] = 1
		}
	}
	return res, nil
}

// Find implements domain.DB.
func (d *Datastore) Find(ctx context.Context, filter any, options ...domain.FindOption) (cur domain.Cursor, err error) {
	defer d.observe("find", time.Now(), &err)

	opts := findOptions(options)
	proj, err := projection(opts.Projection)
	if err != nil {
		return nil, err
	}

	if err := d.executor.RLockWithContext(ctx); err != nil {
		return nil, err
	}
	res, err := d.matching(ctx, filter, opts.Hint,
		domain.WithQuerySort(opts.Sort),
		domain.WithQuerySkip(opts.Skip),
		domain.WithQueryLimit(opts.Limit),
		domain.WithQueryProjection(proj),
	)
	if err == nil {
		res, err = d.cloneDocs(res...)
	}
	d.executor.RUnlock()
	if err != nil {
		return nil, err
	}

	return d.newCursor(ctx, res)
}

// FindOne implements domain.DB.
func (d *Datastore) FindOne(ctx context.Context, filter any, target any, options ...domain.FindOption) error {
	cur, err := d.Find(ctx, filter, append(options, domain.WithLimit(1))...)
	if err != nil {
		return err
	}
	defer cur.Close()

	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return err
		}
		return domain.ErrNotFound
	}
	return cur.Scan(ctx, target)
}

// Count implements domain.DB.
func (d *Datastore) Count(ctx context.Context, filter any) (n int64, err error) {
	defer d.observe("count", time.Now(), &err)

	if err := d.executor.RLockWithContext(ctx); err != nil {
		return 0, err
	}
	defer d.executor.RUnlock()

	res, err := d.matching(ctx, filter, "", domain.WithQueryCap(0))
	if err != nil {
		return 0, err
	}
	return int64(len(res)), nil
}

// UpdateOne implements domain.DB.
func (d *Datastore) UpdateOne(ctx context.Context, filter any, mutation any) (res domain.UpdateResult, err error) {
	defer d.observe("updateOne", time.Now(), &err)
	return d.update(ctx, filter, mutation, 1)
}

// UpdateMany implements domain.DB.
func (d *Datastore) UpdateMany(ctx context.Context, filter any, mutation any) (res domain.UpdateResult, err error) {
	defer d.observe("updateMany", time.Now(), &err)
	return d.update(ctx, filter, mutation, 0)
}

type modification struct {
	id     string
	oldDoc domain.Document
	newDoc domain.Document
}

func (d *Datastore) update(ctx context.Context, filter any, mutation any, limit int64) (domain.UpdateResult, error) {
	if mutation == nil {
		return domain.UpdateResult{}, fmt.Errorf("%w: mutation cannot be nil", domain.ErrInvalidSpec)
	}
	mod, err := d.documentFactory(mutation)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("%w: mutation: %w", domain.ErrInvalidSpec, err)
	}

	ctx, err = d.lock(ctx)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	defer d.executor.Unlock()

	matches, err := d.matching(ctx, filter, "", domain.WithQueryLimit(limit))
	if err != nil {
		return domain.UpdateResult{}, err
	}

	res := domain.UpdateResult{MatchedCount: int64(len(matches))}
	mods := make([]modification, 0, len(matches))
	for _, oldDoc := range matches {
		newDoc, err := d.modifier.Modify(oldDoc, mod)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		c, err := d.comparer.Compare(oldDoc, newDoc)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		if c == 0 {
			continue
		}
		if d.timestampData {
			if oldDoc.Has("createdAt") {
				newDoc.Set("createdAt", oldDoc.Get("createdAt"))
			}
			newDoc.Set("updatedAt", d.timeGetter.GetTime())
		}
		if err := data.CheckFieldNames(newDoc); err != nil {
			return domain.UpdateResult{}, err
		}
		mods = append(mods, modification{id: idOf(oldDoc), oldDoc: oldDoc, newDoc: newDoc})
	}

	if err := d.applyModifications(ctx, mods); err != nil {
		return domain.UpdateResult{}, err
	}
	res.ModifiedCount = int64(len(mods))
	return res, nil
}

// applyModifications replaces every document and moves its index keys,
// restoring the old versions when one fails.
func (d *Datastore) applyModifications(ctx context.Context, mods []modification) error {
	var err error
	var failingIndex int
	for i, m := range mods {
		if err = d.indexManager.Update(ctx, m.id, m.oldDoc, m.newDoc); err != nil {
			failingIndex = i
			break
		}
		if err = d.store.Replace(m.id, m.newDoc); err != nil {
			if revertErr := d.indexManager.Update(ctx, m.id, m.newDoc, m.oldDoc); revertErr != nil {
				err = errors.Join(err, revertErr)
			}
			failingIndex = i
			break
		}
	}
	if err == nil {
		return nil
	}

	d.logger.Warn("rolling back update", zap.Int("updated", failingIndex), zap.Error(err))
	for i := failingIndex - 1; i >= 0; i-- {
		m := mods[i]
		if revertErr := d.indexManager.Update(ctx, m.id, m.newDoc, m.oldDoc); revertErr != nil {
			err = errors.Join(err, revertErr)
		}
		if revertErr := d.store.Replace(m.id, m.oldDoc); revertErr != nil {
			err = errors.Join(err, revertErr)
		}
	}
	return err
}

// DeleteOne implements domain.DB.
func (d *Datastore) DeleteOne(ctx context.Context, filter any) (res domain.DeleteResult, err error) {
	defer d.observe("deleteOne", time.Now(), &err)
	return d.remove(ctx, filter, 1)
}

// DeleteMany implements domain.DB.
func (d *Datastore) DeleteMany(ctx context.Context, filter any) (res domain.DeleteResult, err error) {
	defer d.observe("deleteMany", time.Now(), &err)
	return d.remove(ctx, filter, 0)
}

func (d *Datastore) remove(ctx context.Context, filter any, limit int64) (domain.DeleteResult, error) {
	ctx, err := d.lock(ctx)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	defer d.executor.Unlock()

	matches, err := d.matching(ctx, filter, "", domain.WithQueryLimit(limit))
	if err != nil {
		return domain.DeleteResult{}, err
	}

	// indexes go first so the store keeps every document if one fails
	var failingIndex int
	for i, doc := range matches {
		if err = d.indexManager.Remove(ctx, idOf(doc), doc); err != nil {
			failingIndex = i
			break
		}
	}
	if err != nil {
		d.logger.Warn("rolling back delete", zap.Int("removed", failingIndex), zap.Error(err))
		for i := failingIndex - 1; i >= 0; i-- {
			if insertErr := d.indexManager.Insert(ctx, idOf(matches[i]), matches[i]); insertErr != nil {
				err = errors.Join(err, insertErr)
			}
		}
		return domain.DeleteResult{}, err
	}

	for _, doc := range matches {
		d.store.Delete(idOf(doc))
	}
	d.metrics.SetDocuments(d.store.Len())
	return domain.DeleteResult{DeletedCount: int64(len(matches))}, nil
}

// CreateIndex implements domain.DB.
func (d *Datastore) CreateIndex(ctx context.Context, fields ...domain.IndexField) (string, error) {
	return d.EnsureIndex(ctx, domain.IndexSpec{Fields: fields})
}

// EnsureIndex implements domain.DB.
func (d *Datastore) EnsureIndex(ctx context.Context, spec domain.IndexSpec) (name string, err error) {
	defer d.observe("ensureIndex", time.Now(), &err)

	ctx, err = d.lock(ctx)
	if err != nil {
		return "", err
	}
	defer d.executor.Unlock()

	return d.indexManager.CreateIndex(ctx, spec, d.store.All())
}

// DropIndex implements domain.DB.
func (d *Datastore) DropIndex(ctx context.Context, name string) (err error) {
	defer d.observe("dropIndex", time.Now(), &err)

	ctx, err = d.lock(ctx)
	if err != nil {
		return err
	}
	defer d.executor.Unlock()

	return d.indexManager.DropIndex(ctx, name)
}

// Indexes implements domain.DB.
func (d *Datastore) Indexes(ctx context.Context) ([]domain.IndexInfo, error) {
	if err := d.executor.RLockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.RUnlock()
	return d.indexManager.Indexes(), nil
}

// Aggregate implements domain.DB. Stages are [aggregation.Stage] values or
// stage documents. The pipeline runs over a copy of every document, taken in
// insertion order, after the lock is released.
func (d *Datastore) Aggregate(ctx context.Context, stages ...any) (cur domain.Cursor, err error) {
	defer d.observe("aggregate", time.Now(), &err)

	parsed, err := aggregation.ParsePipeline(stages...)
	if err != nil {
		return nil, err
	}

	if err := d.executor.RLockWithContext(ctx); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, d.store.Len())
	for _, doc := range d.store.All() {
		docs = append(docs, doc)
	}
	docs, err = d.cloneDocs(docs...)
	d.executor.RUnlock()
	if err != nil {
		return nil, err
	}

	pipeline := aggregation.NewPipeline(parsed,
		aggregation.WithDocumentFactory(d.documentFactory),
		aggregation.WithComparer(d.comparer),
		aggregation.WithFieldNavigator(d.fieldNavigator),
		aggregation.WithHasher(d.hasher),
		aggregation.WithMatcherFactory(d.matcherFactory),
		aggregation.WithProjector(d.projector),
		aggregation.WithDropHandler(d.dropped),
	)
	res, err := pipeline.Run(ctx, docs)
	if err != nil {
		return nil, err
	}
	return d.newCursor(ctx, res)
}

func (d *Datastore) dropped(stage string, doc domain.Document, err error) {
	d.metrics.Dropped(stage)
	d.logger.Debug("aggregation dropped a document",
		zap.String("stage", stage),
		zap.Any("_id", doc.ID()),
		zap.Error(err),
	)
}

// Explain implements domain.DB. Only [domain.WithHint] is read from options.
func (d *Datastore) Explain(ctx context.Context, filter any, options ...domain.FindOption) (exp domain.Explanation, err error) {
	defer d.observe("explain", time.Now(), &err)

	opts := findOptions(options)
	if err := d.matcherFactory().SetQuery(filter); err != nil {
		return domain.Explanation{}, fmt.Errorf("%w: %w", domain.ErrInvalidSpec, err)
	}

	if err := d.executor.RLockWithContext(ctx); err != nil {
		return domain.Explanation{}, err
	}
	defer d.executor.RUnlock()

	path, err := d.indexManager.ChooseAccessPath(filter, opts.Hint)
	if err != nil {
		return domain.Explanation{}, err
	}

	total := int64(d.store.Len())
	exp = domain.Explanation{
		ExecutionPath:         path.Kind.String(),
		EstimatedDocsExamined: total,
		TotalDocuments:        total,
		AvailableIndexes:      make([]string, 0),
	}
	for _, info := range d.indexManager.Indexes() {
		exp.AvailableIndexes = append(exp.AvailableIndexes, info.Name)
	}
	if path.Kind == domain.IndexScan {
		ids, err := d.indexManager.Candidates(ctx, path)
		if err != nil {
			return domain.Explanation{}, err
		}
		exp.IndexName = path.Index
		exp.IndexBounds = path.Bounds.String()
		exp.EstimatedDocsExamined = int64(len(ids))
		exp.KeysExamined = int64(len(ids))
	}
	return exp, nil
}
