// Package uncomparable contains a map whose keys can be any value, including
// slices and documents. Keys are bucketed by a [domain.Hasher] and told apart
// by a [domain.Comparer], whose errors are returned instead of panicking.
// Iteration follows insertion order.
package uncomparable

import (
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// Map represents a map[K]T, where K does not need to be [comparable].
type Map[T any] struct {
	buckets  map[uint64][]int
	entries  []entry[T]
	hasher   domain.Hasher
	comparer domain.Comparer
	length   int
}

type entry[T any] struct {
	key     any
	value   T
	deleted bool
}

// New returns a new instance of [Map] with the given [domain.Hasher] and
// [domain.Comparer].
func New[T any](hasher domain.Hasher, comparer domain.Comparer) *Map[T] {
	return &Map[T]{
		buckets:  make(map[uint64][]int),
		hasher:   hasher,
		comparer: comparer,
	}
}

// find returns the hash of key and the position of its entry, or -1.
func (m *Map[T]) find(key any) (uint64, int, error) {
	h, err := m.hasher.Hash(key)
	if err != nil {
		return 0, -1, err
	}
	for _, pos := range m.buckets[h] {
		c, err := m.comparer.Compare(key, m.entries[pos].key)
		if err != nil {
			return h, -1, err
		}
		if c == 0 {
			return h, pos, nil
		}
	}
	return h, -1, nil
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not. If hash or comparison fails, returns an error.
func (m *Map[T]) Get(key any) (T, bool, error) {
	_, pos, err := m.find(key)
	if err != nil || pos < 0 {
		return *new(T), false, err
	}
	return m.entries[pos].value, true, nil
}

// Set adds or replaces the given key in the map, returning error on hash or
// comparison failure. Replacing keeps the original position.
func (m *Map[T]) Set(key any, value T) error {
	h, pos, err := m.find(key)
	if err != nil {
		return err
	}
	if pos >= 0 {
		m.entries[pos].value = value
		return nil
	}
	m.buckets[h] = append(m.buckets[h], len(m.entries))
	m.entries = append(m.entries, entry[T]{key: key, value: value})
	m.length++
	return nil
}

// Delete removes a given key from the map, if it exists. If the given key could
// not be hashed or some comparison failed, it returns the error.
func (m *Map[T]) Delete(key any) error {
	h, pos, err := m.find(key)
	if err != nil || pos < 0 {
		return err
	}
	bucket := m.buckets[h]
	if i := slices.Index(bucket, pos); i >= 0 {
		m.buckets[h] = slices.Delete(bucket, i, i+1)
	}
	m.entries[pos] = entry[T]{deleted: true}
	m.length--
	return nil
}

// Len returns the amount of stored values.
func (m *Map[T]) Len() int {
	return m.length
}

// Iter returns an [iter.Seq2] containing all the key+value pairs in insertion
// order.
func (m *Map[T]) Iter() iter.Seq2[any, T] {
	return func(yield func(any, T) bool) {
		for _, e := range m.entries {
			if e.deleted {
				continue
			}
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Keys returns an [iter.Seq] containing all the stored keys in insertion order.
func (m *Map[T]) Keys() iter.Seq[any] {
	return func(yield func(any) bool) {
		for k := range m.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an [iter.Seq] containing all the stored values in insertion
// order.
func (m *Map[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range m.Iter() {
			if !yield(v) {
				return
			}
		}
	}
}
