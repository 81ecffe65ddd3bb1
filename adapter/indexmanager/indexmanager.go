// Package indexmanager contains the default [domain.IndexManager]
// implementation. It keeps every index in sync with the record store and
// picks the index used by each read.
package indexmanager

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/index"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// IndexManager implements [domain.IndexManager]. It is not concurrency safe;
// callers serialize mutations.
type IndexManager struct {
	indexes        map[string]domain.Index
	names          []string
	indexFactory   domain.IndexFactory
	docFac         domain.DocumentFactory
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	hasher         domain.Hasher
	logger         *zap.Logger
}

// NewIndexManager returns a new implementation of [domain.IndexManager].
func NewIndexManager(options ...Option) domain.IndexManager {
	m := &IndexManager{
		indexes:      make(map[string]domain.Index),
		indexFactory: index.NewIndex,
		docFac:       data.NewDocument,
		comparer:     comparer.NewComparer(),
		hasher:       hasher.NewHasher(),
		logger:       zap.NewNop(),
	}
	for _, option := range options {
		option(m)
	}
	if m.fieldNavigator == nil {
		m.fieldNavigator = fieldnavigator.NewFieldNavigator(m.docFac)
	}
	return m
}

// CreateIndex implements [domain.IndexManager]. Creating an index that
// already exists with the same signature returns its name.
func (m *IndexManager) CreateIndex(ctx context.Context, spec domain.IndexSpec, records iter.Seq2[string, domain.Document]) (string, error) {
	idx, err := m.indexFactory(
		domain.WithIndexSpec(spec),
		domain.WithIndexComparer(m.comparer),
		domain.WithIndexFieldNavigator(m.fieldNavigator),
		domain.WithIndexHasher(m.hasher),
	)
	if err != nil {
		return "", err
	}

	name := idx.Name()
	if existing, ok := m.indexes[name]; ok {
		if sameSignature(existing, idx) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", domain.ErrIndexAlreadyExists, name)
	}

	if err := idx.Reset(ctx, records); err != nil {
		return "", fmt.Errorf("building index %s: %w", name, err)
	}

	m.indexes[name] = idx
	m.names = append(m.names, name)
	slices.Sort(m.names)
	m.logger.Debug("index created",
		zap.String("index", name),
		zap.Bool("unique", idx.Unique()),
		zap.Bool("sparse", idx.Sparse()),
		zap.Int("keys", idx.GetNumberOfKeys()),
	)
	return name, nil
}

func sameSignature(a, b domain.Index) bool {
	return slices.Equal(a.Fields(), b.Fields()) &&
		a.Unique() == b.Unique() &&
		a.Sparse() == b.Sparse()
}

// DropIndex implements [domain.IndexManager].
func (m *IndexManager) DropIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := m.indexes[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	delete(m.indexes, name)
	m.names = slices.DeleteFunc(m.names, func(n string) bool { return n == name })
	m.logger.Debug("index dropped", zap.String("index", name))
	return nil
}

// Indexes implements [domain.IndexManager]. Indexes are sorted by name.
func (m *IndexManager) Indexes() []domain.IndexInfo {
	res := make([]domain.IndexInfo, len(m.names))
	for n, name := range m.names {
		idx := m.indexes[name]
		res[n] = domain.IndexInfo{
			Name:   name,
			Fields: idx.Fields(),
			Unique: idx.Unique(),
			Sparse: idx.Sparse(),
			Keys:   idx.GetNumberOfKeys(),
		}
	}
	return res
}

// Candidates implements [domain.IndexManager].
func (m *IndexManager) Candidates(ctx context.Context, path domain.AccessPath) ([]string, error) {
	if path.Kind != domain.IndexScan {
		return nil, fmt.Errorf("%w: %s is not an index scan", domain.ErrInvalidSpec, path.Kind)
	}
	idx, ok := m.indexes[path.Index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path.Index)
	}
	var res []string
	if unbounded(path.Bounds) {
		for id := range idx.GetAll() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res = append(res, id)
		}
		return res, nil
	}
	for id, err := range idx.Scan(ctx, path.Bounds) {
		if err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, nil
}

// unbounded reports whether b selects every key of the index.
func unbounded(b domain.IndexBounds) bool {
	if len(b) == 0 {
		return true
	}
	for _, r := range b {
		if len(r.Prefix) == 0 && r.Lower == nil && r.Upper == nil {
			return true
		}
	}
	return false
}

// Insert implements [domain.IndexManager]. Either every index gets the record
// or none does.
func (m *IndexManager) Insert(ctx context.Context, id string, doc domain.Document) error {
	for n, name := range m.names {
		err := m.indexes[name].Insert(ctx, id, doc)
		if err == nil {
			continue
		}
		errs := []error{err}
		for _, done := range m.names[:n] {
			if rErr := m.indexes[done].Remove(ctx, id, doc); rErr != nil {
				errs = append(errs, rErr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// Update implements [domain.IndexManager]. Indexes whose keys do not change
// are left untouched.
func (m *IndexManager) Update(ctx context.Context, id string, oldDoc, newDoc domain.Document) error {
	changed := make([]domain.Index, 0, len(m.names))
	for _, name := range m.names {
		idx := m.indexes[name]
		ok, err := idx.Update(ctx, id, oldDoc, newDoc)
		if err == nil {
			if ok {
				changed = append(changed, idx)
			}
			continue
		}
		errs := []error{err}
		for _, done := range changed {
			if _, rErr := done.Update(ctx, id, newDoc, oldDoc); rErr != nil {
				errs = append(errs, rErr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// Remove implements [domain.IndexManager].
func (m *IndexManager) Remove(ctx context.Context, id string, doc domain.Document) error {
	for n, name := range m.names {
		err := m.indexes[name].Remove(ctx, id, doc)
		if err == nil {
			continue
		}
		errs := []error{err}
		for _, done := range m.names[:n] {
			if rErr := m.indexes[done].Insert(ctx, id, doc); rErr != nil {
				errs = append(errs, rErr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}
