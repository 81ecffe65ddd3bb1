package aggregation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type M = data.M

type A = []any

var ctx = context.Background()

type dropped struct {
	stage string
	id    any
	err   error
}

type AggregationTestSuite struct {
	suite.Suite
	books   []domain.Document
	dropped []dropped
}

func (s *AggregationTestSuite) SetupTest() {
	s.dropped = nil
	s.books = []domain.Document{
		M{"_id": "1", "title": "The Hobbit", "author": "J.R.R. Tolkien", "genre": "Fantasy", "published_year": 1937, "price": 14.99},
		M{"_id": "2", "title": "1984", "author": "George Orwell", "genre": "Dystopian", "published_year": 1949, "price": 10.99},
		M{"_id": "3", "title": "Animal Farm", "author": "George Orwell", "genre": "Political Satire", "published_year": 1945, "price": 8.5},
		M{"_id": "4", "title": "The Silmarillion", "author": "J.R.R. Tolkien", "genre": "Fantasy", "published_year": 1977.0, "price": 20},
		M{"_id": "5", "title": "Brave New World", "author": "Aldous Huxley", "genre": "Dystopian", "published_year": "unknown", "price": 12.01},
	}
}

func (s *AggregationTestSuite) run(stages ...any) []domain.Document {
	parsed, err := ParsePipeline(stages...)
	s.Require().NoError(err)
	p := NewPipeline(parsed, WithDropHandler(func(stage string, doc domain.Document, err error) {
		s.dropped = append(s.dropped, dropped{stage: stage, id: doc.ID(), err: err})
	}))
	res, err := p.Run(ctx, s.books)
	s.Require().NoError(err)
	return res
}

func (s *AggregationTestSuite) TestAveragePriceByGenre() {
	res := s.run(
		M{"$group": M{
			"_id":          "$genre",
			"averagePrice": M{"$avg": "$price"},
			"count":        M{"$sum": 1},
		}},
		M{"$sort": M{"averagePrice": -1}},
	)
	s.Require().Len(res, 3)
	s.Equal("Fantasy", res[0].Get("_id"))
	s.InDelta(17.495, res[0].Get("averagePrice"), 1e-9)
	s.Equal(int64(2), res[0].Get("count"))
	s.Equal("Dystopian", res[1].Get("_id"))
	s.InDelta(11.5, res[1].Get("averagePrice"), 1e-9)
	s.Equal(int64(2), res[1].Get("count"))
	s.Equal(M{"_id": "Political Satire", "averagePrice": 8.5, "count": int64(1)}, res[2])
}

func (s *AggregationTestSuite) TestMostProlificAuthor() {
	res := s.run(
		M{"$group": M{"_id": "$author", "bookCount": M{"$sum": 1}}},
		M{"$sort": M{"bookCount": -1}},
		M{"$limit": 1},
	)
	s.Equal([]domain.Document{M{"_id": "J.R.R. Tolkien", "bookCount": int64(2)}}, res)
}

func (s *AggregationTestSuite) TestDecades() {
	res := s.run(
		M{"$project": M{"decade": M{"$subtract": A{
			"$published_year",
			M{"$mod": A{"$published_year", 10}},
		}}}},
		M{"$group": M{"_id": "$decade", "count": M{"$sum": 1}}},
		M{"$sort": M{"_id": 1}},
	)
	s.Equal([]domain.Document{
		M{"_id": int64(1930), "count": int64(1)},
		M{"_id": int64(1940), "count": int64(2)},
		M{"_id": 1970.0, "count": int64(1)},
	}, res)

	s.Require().Len(s.dropped, 1)
	s.Equal("$project", s.dropped[0].stage)
	s.Equal("5", s.dropped[0].id)
	s.ErrorIs(s.dropped[0].err, domain.ErrTypeMismatch)
	var opErr ErrOperandType
	s.ErrorAs(s.dropped[0].err, &opErr)
	s.Equal("$subtract", opErr.Operator)
}

func (s *AggregationTestSuite) TestNumericGroupKeys() {
	s.books = []domain.Document{
		M{"_id": "1", "y": 1950},
		M{"_id": "2", "y": 1950.0},
		M{"_id": "3", "y": int64(1950)},
		M{"_id": "4"},
	}
	res := s.run(M{"$group": M{"_id": "$y", "n": M{"$count": M{}}, "ids": M{"$last": "$_id"}}})
	s.Equal([]domain.Document{
		M{"_id": 1950, "n": int64(3), "ids": "3"},
		M{"_id": nil, "n": int64(1), "ids": "4"},
	}, res)
}

func (s *AggregationTestSuite) TestAccumulators() {
	res := s.run(M{"$group": M{
		"_id":    nil,
		"sum":    M{"$sum": "$price"},
		"years":  M{"$sum": "$published_year"},
		"min":    M{"$min": "$published_year"},
		"max":    M{"$max": "$title"},
		"first":  M{"$first": "$title"},
		"last":   M{"$last": "$title"},
		"none":   M{"$avg": "$missing"},
		"counts": M{"$sum": "$missing"},
	}})
	s.Require().Len(res, 1)
	doc := res[0]
	s.Nil(doc.Get("_id"))
	s.InDelta(66.49, doc.Get("sum"), 1e-9)
	s.Equal(1937.0+1949+1945+1977, doc.Get("years"))
	s.Equal(1937, doc.Get("min"))
	s.Equal("The Silmarillion", doc.Get("max"))
	s.Equal("The Hobbit", doc.Get("first"))
	s.Equal("Brave New World", doc.Get("last"))
	s.Nil(doc.Get("none"))
	s.Equal(int64(0), doc.Get("counts"))
}

func (s *AggregationTestSuite) TestProject() {
	s.Run("Include", func() {
		res := s.run(M{"$project": M{"title": 1, "_id": 0}}, M{"$limit": 2})
		s.Equal([]domain.Document{M{"title": "The Hobbit"}, M{"title": "1984"}}, res)
	})

	s.Run("Exclude", func() {
		res := s.run(M{"$project": M{"title": 0, "author": false, "genre": 0, "price": 0}}, M{"$limit": 1})
		s.Equal([]domain.Document{M{"_id": "1", "published_year": 1937}}, res)
	})

	s.Run("OnlyID", func() {
		res := s.run(M{"$project": M{"_id": 1}}, M{"$limit": 1})
		s.Equal([]domain.Document{M{"_id": "1"}}, res)
	})

	s.Run("Expressions", func() {
		res := s.run(
			M{"$match": M{"_id": "4"}},
			M{"$project": M{
				"title":  true,
				"double": M{"$multiply": A{"$price", 2}},
				"half":   M{"$divide": A{"$published_year", 2}},
				"info":   M{"by": "$author", "lit": M{"$literal": "$x"}},
				"list":   A{"$genre", "$missing"},
				"gone":   "$missing",
				"plus":   M{"$add": A{1, 2, 3}},
			}},
		)
		s.Equal([]domain.Document{M{
			"_id":    "4",
			"title":  "The Silmarillion",
			"double": int64(40),
			"half":   988.5,
			"info":   M{"by": "J.R.R. Tolkien", "lit": "$x"},
			"list":   A{"Fantasy", nil},
			"plus":   int64(6),
		}}, res)
	})
}

func (s *AggregationTestSuite) TestArithmeticErrors() {
	doc := M{"a": 10, "z": 0, "s": "x"}
	e := newEnv()
	for name, expr := range map[string]Expr{
		"DivideByZero": Divide(Field("a"), Field("z")),
		"ModByZero":    Mod(Field("a"), Lit(0)),
		"String":       Add(Field("a"), Field("s")),
		"Missing":      Subtract(Field("a"), Field("missing")),
	} {
		s.Run(name, func() {
			_, _, err := expr.eval(e, doc)
			s.ErrorIs(err, domain.ErrTypeMismatch)
		})
	}

	v, _, err := Mod(Lit(-7), Lit(3)).eval(e, doc)
	s.NoError(err)
	s.Equal(int64(-1), v)

	v, _, err = Mod(Lit(7.5), Lit(2)).eval(e, doc)
	s.NoError(err)
	s.Equal(1.5, v)

	_, _, err = Arith{Op: "$subtract", Args: []Expr{Lit(1)}}.eval(e, doc)
	s.ErrorIs(err, domain.ErrInvalidSpec)
}

func (s *AggregationTestSuite) TestIntegerOverflow() {
	e := newEnv()
	doc := M{"big": int64(math.MaxInt64), "small": int64(math.MinInt64)}
	for name, tc := range map[string]struct {
		expr Expr
		want float64
	}{
		"Add":         {Add(Field("big"), Lit(1)), float64(math.MaxInt64) + 1},
		"Subtract":    {Subtract(Field("small"), Lit(1)), float64(math.MinInt64) - 1},
		"Multiply":    {Multiply(Field("big"), Lit(2)), float64(math.MaxInt64) * 2},
		"MultiplyNeg": {Multiply(Field("small"), Lit(-1)), -float64(math.MinInt64)},
	} {
		s.Run(name, func() {
			v, _, err := tc.expr.eval(e, doc)
			s.Require().NoError(err)
			s.IsType(float64(0), v)
			s.InDelta(tc.want, v, 1e4)
		})
	}

	v, _, err := Add(Field("big"), Lit(-1)).eval(e, doc)
	s.NoError(err)
	s.Equal(int64(math.MaxInt64-1), v)

	v, _, err = Multiply(Lit(-3), Lit(4)).eval(e, doc)
	s.NoError(err)
	s.Equal(int64(-12), v)

	s.Run("Sum", func() {
		s.books = []domain.Document{M{"n": int64(math.MaxInt64)}, M{"n": 1}, M{"n": 1}}
		res := s.run(M{"$group": M{"_id": nil, "total": M{"$sum": "$n"}}})
		s.Require().Len(res, 1)
		s.IsType(float64(0), res[0].Get("total"))
		s.InDelta(float64(math.MaxInt64)+2, res[0].Get("total"), 1e4)
	})
}

func (s *AggregationTestSuite) TestStagesAlone() {
	res, err := SortBy(domain.SortName{Key: "price", Order: 1}).Apply(ctx, s.books)
	s.NoError(err)
	s.Equal("3", res[0].ID())

	res, err = Skip(3).Apply(ctx, s.books)
	s.NoError(err)
	s.Len(res, 2)

	res, err = Limit(0).Apply(ctx, s.books)
	s.NoError(err)
	s.Empty(res)

	_, err = Limit(-1).Apply(ctx, s.books)
	s.ErrorIs(err, domain.ErrInvalidSpec)

	res, err = Match(M{"author": "George Orwell"}).Apply(ctx, s.books)
	s.NoError(err)
	s.Len(res, 2)

	g, err := Group(Field("genre"), map[string]Accumulator{"n": Count()})
	s.NoError(err)
	res, err = g.Apply(ctx, s.books)
	s.NoError(err)
	s.Len(res, 3)

	p, err := Project(M{"t": Field("title")})
	s.NoError(err)
	res, err = p.Apply(ctx, s.books[:1])
	s.NoError(err)
	s.Equal([]domain.Document{M{"_id": "1", "t": "The Hobbit"}}, res)
}

func (s *AggregationTestSuite) TestSortList() {
	res := s.run(M{"$sort": A{M{"author": 1}, M{"price": -1}}})
	ids := make([]any, len(res))
	for n, d := range res {
		ids[n] = d.ID()
	}
	s.Equal(A{"5", "2", "3", "4", "1"}, ids)

	res = s.run(M{"$sort": domain.Sort{{Key: "title", Order: 1}}}, M{"$skip": 4})
	s.Equal("4", res[0].ID())
}

func (s *AggregationTestSuite) TestInvalidStages() {
	for name, stage := range map[string]any{
		"NotAnObject":     42,
		"TwoOperators":    M{"$limit": 1, "$skip": 1},
		"UnknownStage":    M{"$lookup": M{}},
		"NegativeLimit":   M{"$limit": -1},
		"FloatSkip":       M{"$skip": 1.5},
		"GroupWithoutID":  M{"$group": M{"n": M{"$sum": 1}}},
		"UnknownAcc":      M{"$group": M{"_id": nil, "n": M{"$push": 1}}},
		"AccTwoOps":       M{"$group": M{"_id": nil, "n": M{"$sum": 1, "$avg": 1}}},
		"MixedProject":    M{"$project": M{"a": 1, "b": 0}},
		"ExprAndExclude":  M{"$project": M{"a": "$b", "c": 0}},
		"EmptyProject":    M{"$project": M{}},
		"UnknownExprOp":   M{"$project": M{"a": M{"$pow": A{1, 2}}}},
		"WrongArity":      M{"$project": M{"a": M{"$subtract": A{1}}}},
		"Variable":        M{"$project": M{"a": "$$ROOT"}},
		"MultiKeySort":    M{"$sort": M{"a": 1, "b": 1}},
		"BadSortOrder":    M{"$sort": M{"a": 2}},
		"SortNotDocument": M{"$sort": "a"},
	} {
		s.Run(name, func() {
			_, err := ParseStage(stage)
			s.ErrorIs(err, domain.ErrInvalidSpec)
		})
	}

	_, err := NewPipeline([]Stage{Match(M{"a": M{"$bad": 1}})}).Run(ctx, s.books)
	s.ErrorIs(err, domain.ErrInvalidSpec)
}

func (s *AggregationTestSuite) TestCanceled() {
	c, cancel := context.WithCancel(ctx)
	cancel()
	_, err := NewPipeline([]Stage{Limit(1)}).Run(c, s.books)
	s.ErrorIs(err, context.Canceled)

	_, err = Match(nil).Apply(c, s.books)
	s.ErrorIs(err, context.Canceled)
}

func TestAggregationTestSuite(t *testing.T) {
	suite.Run(t, new(AggregationTestSuite))
}
