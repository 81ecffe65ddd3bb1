// Package index contains the default [domain.Index] implementation, an AVL
// tree mapping key tuples to record ids.
package index

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/uncomparable"
)

// Index implements [domain.Index].
type Index struct {
	name   string
	fields []domain.IndexField
	addrs  [][]string
	unique bool
	sparse bool
	// multikey is sticky: it is not cleared when the records holding arrays
	// are removed.
	multikey bool
	// Exported to allow testing. Should not be a problem because Index is
	// used as interface.
	Tree           bst.BST[any, string]
	comparer       domain.Comparer
	bstComparer    bst.Comparer[any, string]
	hasher         domain.Hasher
	fieldNavigator domain.FieldNavigator
}

// NewIndex returns a new implementation of [domain.Index]. The
// [domain.IndexSpec] must name at least one field, without repetitions, each
// with direction 1 or -1.
func NewIndex(options ...domain.IndexOption) (domain.Index, error) {
	opts := domain.IndexOptions{
		Comparer: comparer.NewComparer(),
		Hasher:   hasher.NewHasher(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.FieldNavigator == nil {
		opts.FieldNavigator = fieldnavigator.NewFieldNavigator(data.NewDocument)
	}

	spec := opts.Spec
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("%w: index needs at least one field", domain.ErrInvalidSpec)
	}

	seen := make(map[string]struct{}, len(spec.Fields))
	addrs := make([][]string, len(spec.Fields))
	directions := make([]int, len(spec.Fields))
	for n, f := range spec.Fields {
		if f.Direction != 1 && f.Direction != -1 {
			return nil, fmt.Errorf("%w: direction of %q must be 1 or -1, got %d", domain.ErrInvalidSpec, f.Field, f.Direction)
		}
		if _, dup := seen[f.Field]; dup {
			return nil, fmt.Errorf("%w: field %q indexed twice", domain.ErrInvalidSpec, f.Field)
		}
		seen[f.Field] = struct{}{}
		addr, err := opts.FieldNavigator.GetAddress(f.Field)
		if err != nil {
			return nil, err
		}
		addrs[n] = addr
		directions[n] = f.Direction
	}

	bstComparer := NewBSTComparer(opts.Comparer, directions)

	return &Index{
		name:           spec.Name(),
		fields:         append([]domain.IndexField(nil), spec.Fields...),
		addrs:          addrs,
		unique:         spec.Unique,
		sparse:         spec.Sparse,
		Tree:           avl.NewBST(spec.Unique, 8, bstComparer),
		comparer:       opts.Comparer,
		bstComparer:    bstComparer,
		hasher:         opts.Hasher,
		fieldNavigator: opts.FieldNavigator,
	}, nil
}

// Name implements [domain.Index].
func (i *Index) Name() string { return i.name }

// Fields implements [domain.Index].
func (i *Index) Fields() []domain.IndexField {
	return append([]domain.IndexField(nil), i.fields...)
}

// Unique implements [domain.Index].
func (i *Index) Unique() bool { return i.unique }

// Sparse implements [domain.Index].
func (i *Index) Sparse() bool { return i.sparse }

// Multikey implements [domain.Index].
func (i *Index) Multikey() bool { return i.multikey }

// keys returns the distinct key tuples of doc. Array values yield one key per
// element and compound keys combine every element of every field. Missing
// fields are indexed as nil.
func (i *Index) keys(doc domain.Document) ([][]any, error) {
	components := make([][]any, len(i.addrs))
	defined := false
	for n, addr := range i.addrs {
		fields, _, err := i.fieldNavigator.GetField(doc, addr...)
		if err != nil {
			return nil, err
		}
		var values []any
		for _, f := range fields {
			value, isSet := f.Get()
			if !isSet {
				continue
			}
			defined = true
			if l, ok := value.([]any); ok && len(l) > 0 {
				values = append(values, l...)
				continue
			}
			values = append(values, value)
		}
		if len(values) == 0 {
			values = []any{nil}
		}
		components[n] = values
	}
	if i.sparse && !defined {
		return nil, nil
	}

	uniq := uncomparable.New[struct{}](i.hasher, i.comparer)
	var err error
	product(components, nil, func(tuple []any) bool {
		err = uniq.Set(tuple, struct{}{})
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	res := make([][]any, 0, uniq.Len())
	for k := range uniq.Keys() {
		res = append(res, k.([]any))
	}
	return res, nil
}

// product calls yield with every combination of components.
func product(components [][]any, prefix []any, yield func([]any) bool) bool {
	if len(components) == 0 {
		return yield(append([]any(nil), prefix...))
	}
	for _, v := range components[0] {
		if !product(components[1:], append(prefix, v), yield) {
			return false
		}
	}
	return true
}

// Insert implements [domain.Index].
func (i *Index) Insert(ctx context.Context, id string, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := i.keys(doc)
	if err != nil {
		return err
	}
	return i.insertKeys(id, keys)
}

func (i *Index) markMultikey(keys [][]any) {
	if len(keys) > 1 {
		i.multikey = true
	}
}

func (i *Index) insertKeys(id string, keys [][]any) error {
	defer i.markMultikey(keys)
	for n, k := range keys {
		err := i.Tree.Insert(k, id)
		if err == nil {
			continue
		}
		if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
			err = fmt.Errorf("%w: index %s: %w", domain.ErrDuplicateKey, i.name, err)
		}
		errs := []error{err}
		for _, inserted := range keys[:n] {
			if dErr := i.Tree.Delete(inserted, &id); dErr != nil {
				errs = append(errs, dErr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// Remove implements [domain.Index].
func (i *Index) Remove(ctx context.Context, id string, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := i.keys(doc)
	if err != nil {
		return err
	}
	return i.removeKeys(id, keys)
}

func (i *Index) removeKeys(id string, keys [][]any) error {
	var errs []error
	for _, k := range keys {
		if err := i.Tree.Delete(k, &id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Update implements [domain.Index]. Nothing changes when both documents
// produce the same keys.
func (i *Index) Update(ctx context.Context, id string, oldDoc, newDoc domain.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	oldKeys, err := i.keys(oldDoc)
	if err != nil {
		return false, err
	}
	newKeys, err := i.keys(newDoc)
	if err != nil {
		return false, err
	}
	same, err := i.sameKeys(oldKeys, newKeys)
	if err != nil || same {
		return false, err
	}

	if err := i.removeKeys(id, oldKeys); err != nil {
		return false, err
	}
	if err := i.insertKeys(id, newKeys); err != nil {
		if rErr := i.insertKeys(id, oldKeys); rErr != nil {
			return false, errors.Join(err, rErr)
		}
		return false, err
	}
	return true, nil
}

func (i *Index) sameKeys(a, b [][]any) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	set := uncomparable.New[struct{}](i.hasher, i.comparer)
	for _, k := range a {
		if err := set.Set(k, struct{}{}); err != nil {
			return false, err
		}
	}
	for _, k := range b {
		if _, ok, err := set.Get(k); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Reset implements [domain.Index]. The previous content is kept if any
// record fails.
func (i *Index) Reset(ctx context.Context, records iter.Seq2[string, domain.Document]) error {
	old := i.Tree
	i.Tree = avl.NewBST(i.unique, 8, i.bstComparer)
	for id, doc := range records {
		if err := i.Insert(ctx, id, doc); err != nil {
			i.Tree = old
			return err
		}
	}
	return nil
}

// Scan implements [domain.Index]. Ids are yielded once, in key order of the
// first range that holds them.
func (i *Index) Scan(ctx context.Context, bounds domain.IndexBounds) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		seen := make(map[string]struct{})
		for _, r := range bounds {
			for id, err := range i.Tree.Query(i.query(r)) {
				if err == nil {
					err = ctx.Err()
				}
				if err != nil {
					yield("", err)
					return
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				if !yield(id, nil) {
					return
				}
			}
		}
	}
}

// query translates a key range into tree bounds. Bounds on a descending field
// swap sides because the tree stores it in reverse order.
func (i *Index) query(r domain.KeyRange) bst.Query[any] {
	lower, upper := r.Lower, r.Upper
	descending := len(r.Prefix) < len(i.fields) && i.fields[len(r.Prefix)].Direction < 0
	if descending {
		lower, upper = upper, lower
	}

	with := func(v any) []any {
		return append(append(make([]any, 0, len(r.Prefix)+1), r.Prefix...), v)
	}

	low := prefixBound{prefix: r.Prefix}
	if lower != nil {
		// an exclusive bound skips every key holding the value
		low = prefixBound{prefix: with(lower.Value), high: !lower.Inclusive}
	}
	high := prefixBound{prefix: r.Prefix, high: true}
	if upper != nil {
		high = prefixBound{prefix: with(upper.Value), high: upper.Inclusive}
	}

	return bst.Query[any]{
		GreaterThan: &bst.Bound[any]{Value: low, IncludeEqual: true},
		LowerThan:   &bst.Bound[any]{Value: high, IncludeEqual: true},
	}
}

// GetAll implements [domain.Index].
func (i *Index) GetAll() iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]struct{})
		for id := range i.Tree.GetAll() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if !yield(id) {
				return
			}
		}
	}
}

// GetNumberOfKeys implements [domain.Index].
func (i *Index) GetNumberOfKeys() int {
	return i.Tree.GetNumberOfKeys()
}
