package modifier

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type M = data.M

type A = []any

type ModifierTestSuite struct {
	suite.Suite
	m   domain.Modifier
	doc M
}

func (s *ModifierTestSuite) SetupTest() {
	s.m = NewModifier()
	s.doc = M{
		"_id":    "1",
		"title":  "Emma",
		"price":  int64(10),
		"genres": A{"romance", "classic"},
		"stock":  M{"warehouse": int64(3)},
	}
}

func (s *ModifierTestSuite) modify(mod any) domain.Document {
	d, err := data.NewDocument(mod)
	s.Require().NoError(err)
	res, err := s.m.Modify(s.doc, d)
	s.Require().NoError(err)
	return res
}

func (s *ModifierTestSuite) modifyErr(mod any) error {
	d, err := data.NewDocument(mod)
	s.Require().NoError(err)
	_, err = s.m.Modify(s.doc, d)
	return err
}

func (s *ModifierTestSuite) TestReplace() {
	res := s.modify(M{"title": "Persuasion"})
	s.Equal(M{"_id": "1", "title": "Persuasion"}, res)

	res = s.modify(M{"_id": "1", "title": "Persuasion"})
	s.Equal(M{"_id": "1", "title": "Persuasion"}, res)

	s.ErrorIs(s.modifyErr(M{"_id": "2"}), domain.ErrCannotModifyID)
}

func (s *ModifierTestSuite) TestOriginalUntouched() {
	s.modify(M{"$set": M{"stock.warehouse": 7}, "$push": M{"genres": "satire"}})
	s.Equal(int64(3), s.doc["stock"].(M)["warehouse"])
	s.Equal(A{"romance", "classic"}, s.doc["genres"])
}

func (s *ModifierTestSuite) TestSet() {
	res := s.modify(M{"$set": M{"price": 12.5, "stock.store": 2, "meta.tags.main": "x"}})
	s.Equal(12.5, res.Get("price"))
	s.Equal(2, res.D("stock").Get("store"))
	s.Equal(int64(3), res.D("stock").Get("warehouse"))
	s.Equal("x", res.D("meta").D("tags").Get("main"))

	res = s.modify(M{"$set": M{"_id": "1"}})
	s.Equal("1", res.ID())

	s.ErrorIs(s.modifyErr(M{"$set": M{"_id": "2"}}), domain.ErrCannotModifyID)
	s.ErrorIs(s.modifyErr(M{"$set": M{"title.sub": 1}}), domain.ErrInvalidSpec)
}

func (s *ModifierTestSuite) TestUnset() {
	res := s.modify(M{"$unset": M{"price": "", "missing": "", "stock.warehouse": true}})
	s.False(res.Has("price"))
	s.False(res.Has("missing"))
	s.Equal(0, res.D("stock").Len())

	s.ErrorIs(s.modifyErr(M{"$unset": M{"_id": ""}}), domain.ErrCannotModifyID)
}

func (s *ModifierTestSuite) TestInc() {
	res := s.modify(M{"$inc": M{"price": 5, "stock.warehouse": -1, "sold": 2}})
	s.Equal(int64(15), res.Get("price"))
	s.Equal(int64(2), res.D("stock").Get("warehouse"))
	s.Equal(int64(2), res.Get("sold"))

	res = s.modify(M{"$inc": M{"price": 0.5}})
	s.Equal(10.5, res.Get("price"))

	var fieldErr ErrModFieldType
	s.ErrorAs(s.modifyErr(M{"$inc": M{"title": 1}}), &fieldErr)
	var argErr ErrModArgType
	s.ErrorAs(s.modifyErr(M{"$inc": M{"price": "1"}}), &argErr)
}

func (s *ModifierTestSuite) TestMul() {
	res := s.modify(M{"$mul": M{"price": 3, "missing": 4}})
	s.Equal(int64(30), res.Get("price"))
	s.Equal(int64(0), res.Get("missing"))

	res = s.modify(M{"$mul": M{"price": 0.5}})
	s.Equal(5.0, res.Get("price"))
}

func (s *ModifierTestSuite) TestMinMax() {
	res := s.modify(M{"$min": M{"price": 4, "floor": 1}})
	s.Equal(4, res.Get("price"))
	s.Equal(1, res.Get("floor"))

	res = s.modify(M{"$min": M{"price": 40}})
	s.Equal(int64(10), res.Get("price"))

	res = s.modify(M{"$max": M{"price": 40}})
	s.Equal(40, res.Get("price"))

	s.ErrorIs(s.modifyErr(M{"$max": M{"price": func() {}}}), domain.ErrInvalidSpec)
}

func (s *ModifierTestSuite) TestPush() {
	res := s.modify(M{"$push": M{"genres": "satire", "tags": "new"}})
	s.Equal(A{"romance", "classic", "satire"}, res.Get("genres"))
	s.Equal(A{"new"}, res.Get("tags"))

	res = s.modify(M{"$push": M{"genres": M{"$each": A{"a", "b"}, "$slice": -2}}})
	s.Equal(A{"a", "b"}, res.Get("genres"))

	res = s.modify(M{"$push": M{"genres": M{"$each": A{"a"}, "$slice": 1}}})
	s.Equal(A{"romance"}, res.Get("genres"))

	var fieldErr ErrModFieldType
	s.ErrorAs(s.modifyErr(M{"$push": M{"title": "x"}}), &fieldErr)
	s.ErrorIs(s.modifyErr(M{"$push": M{"genres": M{"$each": "x"}}}), domain.ErrInvalidSpec)
	s.ErrorIs(s.modifyErr(M{"$push": M{"genres": M{"$each": A{}, "$other": 1}}}), domain.ErrInvalidSpec)
}

func (s *ModifierTestSuite) TestAddToSet() {
	res := s.modify(M{"$addToSet": M{"genres": "classic"}})
	s.Equal(A{"romance", "classic"}, res.Get("genres"))

	res = s.modify(M{"$addToSet": M{"genres": M{"$each": A{"classic", "gothic", "gothic"}}}})
	s.Equal(A{"romance", "classic", "gothic"}, res.Get("genres"))

	res = s.modify(M{"$addToSet": M{"empty": M{"$each": A{}}}})
	s.Equal(A{}, res.Get("empty"))
}

func (s *ModifierTestSuite) TestPop() {
	res := s.modify(M{"$pop": M{"genres": 1}})
	s.Equal(A{"romance"}, res.Get("genres"))

	res = s.modify(M{"$pop": M{"genres": -1, "missing": 1}})
	s.Equal(A{"classic"}, res.Get("genres"))
	s.False(res.Has("missing"))

	s.ErrorIs(s.modifyErr(M{"$pop": M{"genres": 2}}), domain.ErrInvalidSpec)
}

func (s *ModifierTestSuite) TestPull() {
	res := s.modify(M{"$pull": M{"genres": "classic"}})
	s.Equal(A{"romance"}, res.Get("genres"))

	s.doc["scores"] = A{int64(1), int64(5), int64(9)}
	res = s.modify(M{"$pull": M{"scores": M{"$gte": 5}}})
	s.Equal(A{int64(1)}, res.Get("scores"))

	s.doc["reviews"] = A{M{"user": "ann", "score": 5}, M{"user": "bob", "score": 2}}
	res = s.modify(M{"$pull": M{"reviews": M{"score": M{"$lt": 3}}}})
	s.Equal(A{M{"user": "ann", "score": 5}}, res.Get("reviews"))

	s.ErrorIs(s.modifyErr(M{"$pull": M{"scores": M{"$bogus": 1}}}), domain.ErrInvalidSpec)
}

func (s *ModifierTestSuite) TestInvalidUpdates() {
	s.ErrorIs(s.modifyErr(M{"$set": M{"a": 1}, "b": 2}), ErrMixedOperators)
	s.ErrorIs(s.modifyErr(M{"$rename": M{"a": "b"}}), domain.ErrInvalidSpec)
	s.ErrorIs(s.modifyErr(M{"$set": 1}), domain.ErrInvalidSpec)
	s.ErrorIs(s.modifyErr(M{"$set": M{"a..b": 1}}), domain.ErrInvalidSpec)
}

func TestModifierTestSuite(t *testing.T) {
	suite.Run(t, new(ModifierTestSuite))
}
