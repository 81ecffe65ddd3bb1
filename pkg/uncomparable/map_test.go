package uncomparable

import (
	"fmt"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
)

type hasherMock struct{ mock.Mock }

// Hash implements domain.Hasher.
func (h *hasherMock) Hash(v any) (uint64, error) {
	call := h.Called(v)
	return uint64(call.Int(0)), call.Error(1)
}

type comparerMock struct{ mock.Mock }

// Comparable implements domain.Comparer.
func (c *comparerMock) Comparable(a any, b any) bool {
	return c.Called(a, b).Bool(0)
}

// Compare implements domain.Comparer.
func (c *comparerMock) Compare(a any, b any) (int, error) {
	call := c.Called(a, b)
	return call.Int(0), call.Error(1)
}

type MapTestSuite struct {
	suite.Suite
	m *Map[any]
}

func (s *MapTestSuite) SetupTest() {
	s.m = New[any](hasher.NewHasher(), comparer.NewComparer())
}

func (s *MapTestSuite) TestSetAndGet() {
	s.NoError(s.m.Set("key", "value"))
	v, ok, err := s.m.Get("key")
	s.NoError(err)
	s.True(ok)
	s.Equal("value", v)
	s.Equal(1, s.m.Len())

	s.NoError(s.m.Set("key", "another"))
	v, ok, err = s.m.Get("key")
	s.NoError(err)
	s.True(ok)
	s.Equal("another", v)
	s.Equal(1, s.m.Len())

	_, ok, err = s.m.Get("missing")
	s.NoError(err)
	s.False(ok)
}

// Keys that compare as equal address the same entry.
func (s *MapTestSuite) TestUncomparableKeys() {
	s.NoError(s.m.Set(data.M{"author": "Austen", "year": 1813}, 1))
	s.NoError(s.m.Set([]any{1, "a"}, 2))
	s.NoError(s.m.Set(nil, 3))

	v, ok, err := s.m.Get(data.M{"year": 1813.0, "author": "Austen"})
	s.NoError(err)
	s.True(ok)
	s.Equal(1, v)

	v, ok, err = s.m.Get([]any{int64(1), "a"})
	s.NoError(err)
	s.True(ok)
	s.Equal(2, v)

	v, ok, err = s.m.Get(nil)
	s.NoError(err)
	s.True(ok)
	s.Equal(3, v)
	s.Equal(3, s.m.Len())
}

// Colliding hashes are resolved by the comparer.
func (s *MapTestSuite) TestCollision() {
	h := new(hasherMock)
	s.m.hasher = h
	h.On("Hash", mock.Anything).Return(7, nil)

	s.NoError(s.m.Set("a", 1))
	s.NoError(s.m.Set("b", 2))
	s.Equal(2, s.m.Len())

	v, _, err := s.m.Get("b")
	s.NoError(err)
	s.Equal(2, v)

	s.NoError(s.m.Delete("a"))
	_, ok, err := s.m.Get("a")
	s.NoError(err)
	s.False(ok)
	v, _, _ = s.m.Get("b")
	s.Equal(2, v)
}

func (s *MapTestSuite) TestErrors() {
	errHash := fmt.Errorf("hash error")
	h := new(hasherMock)
	h.On("Hash", "bad").Return(0, errHash)
	h.On("Hash", mock.Anything).Return(1, nil)
	s.m.hasher = h

	s.ErrorIs(s.m.Set("bad", 1), errHash)
	_, _, err := s.m.Get("bad")
	s.ErrorIs(err, errHash)
	s.ErrorIs(s.m.Delete("bad"), errHash)

	errCmp := fmt.Errorf("comparison error")
	c := new(comparerMock)
	s.NoError(s.m.Set("key", 1))
	s.m.comparer = c
	c.On("Compare", "other", "key").Return(0, errCmp)
	s.ErrorIs(s.m.Set("other", 2), errCmp)
	_, _, err = s.m.Get("other")
	s.ErrorIs(err, errCmp)
	s.ErrorIs(s.m.Delete("other"), errCmp)
	s.Equal(1, s.m.Len())
}

func (s *MapTestSuite) TestInsertionOrder() {
	keys := []any{"c", 1, "a", []any{2}, "b"}
	for n, k := range keys {
		s.NoError(s.m.Set(k, n))
	}
	s.NoError(s.m.Delete("a"))
	s.NoError(s.m.Set("c", 10))
	s.NoError(s.m.Set("a", 11))

	s.Equal([]any{"c", 1, []any{2}, "b", "a"}, slices.Collect(s.m.Keys()))
	s.Equal([]any{10, 1, 3, 4, 11}, slices.Collect(s.m.Values()))
	s.Equal(map[any]any{"c": 10, 1: 1, "b": 4, "a": 11}, maps.Collect(func(yield func(any, any) bool) {
		for k, v := range s.m.Iter() {
			if _, ok := k.([]any); ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}))
	s.Equal(5, s.m.Len())
}

func (s *MapTestSuite) TestBreakIterations() {
	for n := range 5 {
		s.NoError(s.m.Set(n, n))
	}
	count := 0
	for range s.m.Iter() {
		count++
		break
	}
	s.Equal(1, count)

	count = 0
	for range s.m.Keys() {
		count++
		break
	}
	s.Equal(1, count)

	count = 0
	for range s.m.Values() {
		count++
		break
	}
	s.Equal(1, count)
}

func TestMapTestSuite(t *testing.T) {
	suite.Run(t, new(MapTestSuite))
}
