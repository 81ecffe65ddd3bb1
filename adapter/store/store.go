// Package store contains the default [domain.Store] implementation, a B-tree
// of records ordered by insertion sequence with an id lookup table.
package store

import (
	"fmt"
	"iter"
	"slices"

	"github.com/tidwall/btree"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type entry struct {
	seq uint64
	id  string
	doc domain.Document
}

// Store implements [domain.Store].
type Store struct {
	tree *btree.BTreeG[*entry]
	ids  map[string]*entry
	seq  uint64
}

// NewStore returns a new implementation of [domain.Store].
func NewStore() domain.Store {
	return &Store{
		tree: btree.NewBTreeG(func(a, b *entry) bool { return a.seq < b.seq }),
		ids:  make(map[string]*entry),
	}
}

// Insert implements [domain.Store].
func (s *Store) Insert(id string, doc domain.Document) error {
	if _, ok := s.ids[id]; ok {
		return fmt.Errorf("%w: _id %q", domain.ErrDuplicateKey, id)
	}
	s.seq++
	e := &entry{seq: s.seq, id: id, doc: doc}
	s.tree.Set(e)
	s.ids[id] = e
	return nil
}

// Get implements [domain.Store].
func (s *Store) Get(id string) (domain.Document, bool) {
	e, ok := s.ids[id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Replace implements [domain.Store].
func (s *Store) Replace(id string, doc domain.Document) error {
	e, ok := s.ids[id]
	if !ok {
		return fmt.Errorf("%w: _id %q", domain.ErrNotFound, id)
	}
	e.doc = doc
	return nil
}

// Delete implements [domain.Store].
func (s *Store) Delete(id string) bool {
	e, ok := s.ids[id]
	if !ok {
		return false
	}
	s.tree.Delete(e)
	delete(s.ids, id)
	return true
}

// All implements [domain.Store].
func (s *Store) All() iter.Seq2[string, domain.Document] {
	return func(yield func(string, domain.Document) bool) {
		s.tree.Scan(func(e *entry) bool {
			return yield(e.id, e.doc)
		})
	}
}

// Ordered implements [domain.Store].
func (s *Store) Ordered(ids []string) iter.Seq2[string, domain.Document] {
	entries := make([]*entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.ids[id]; ok {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	entries = slices.Compact(entries)
	return func(yield func(string, domain.Document) bool) {
		for _, e := range entries {
			if !yield(e.id, e.doc) {
				return
			}
		}
	}
}

// Len implements [domain.Store].
func (s *Store) Len() int {
	return s.tree.Len()
}
