package store

import (
	"iter"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type M = data.M

type StoreTestSuite struct {
	suite.Suite
	s domain.Store
}

func (s *StoreTestSuite) SetupTest() {
	s.s = NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.Require().NoError(s.s.Insert(id, M{"_id": id}))
	}
}

func (s *StoreTestSuite) ids(seq iter.Seq2[string, domain.Document]) []string {
	return slices.Collect(maps.Keys(maps.Collect(seq)))
}

func (s *StoreTestSuite) order(seq iter.Seq2[string, domain.Document]) []string {
	var res []string
	for id := range seq {
		res = append(res, id)
	}
	return res
}

func (s *StoreTestSuite) TestInsertionOrder() {
	s.Equal([]string{"c", "a", "b"}, s.order(s.s.All()))
	s.Equal(3, s.s.Len())
}

func (s *StoreTestSuite) TestDuplicate() {
	s.ErrorIs(s.s.Insert("a", M{}), domain.ErrDuplicateKey)
	s.Equal(3, s.s.Len())
}

func (s *StoreTestSuite) TestGet() {
	doc, ok := s.s.Get("a")
	s.True(ok)
	s.Equal(M{"_id": "a"}, doc)

	_, ok = s.s.Get("z")
	s.False(ok)
}

func (s *StoreTestSuite) TestReplaceKeepsPosition() {
	s.NoError(s.s.Replace("c", M{"_id": "c", "v": 1}))
	s.Equal([]string{"c", "a", "b"}, s.order(s.s.All()))
	doc, _ := s.s.Get("c")
	s.Equal(M{"_id": "c", "v": 1}, doc)

	s.ErrorIs(s.s.Replace("z", M{}), domain.ErrNotFound)
}

func (s *StoreTestSuite) TestDelete() {
	s.True(s.s.Delete("a"))
	s.False(s.s.Delete("a"))
	s.Equal([]string{"c", "b"}, s.order(s.s.All()))

	s.NoError(s.s.Insert("a", M{"_id": "a"}))
	s.Equal([]string{"c", "b", "a"}, s.order(s.s.All()))
}

func (s *StoreTestSuite) TestOrdered() {
	s.Equal([]string{"c", "a", "b"}, s.order(s.s.Ordered([]string{"b", "z", "a", "c", "b"})))
	s.Empty(s.order(s.s.Ordered(nil)))
}

func (s *StoreTestSuite) TestBreak() {
	for range s.s.All() {
		break
	}
	for range s.s.Ordered([]string{"a", "b"}) {
		break
	}
	s.ElementsMatch([]string{"a", "b", "c"}, s.ids(s.s.All()))
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
