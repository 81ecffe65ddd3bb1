package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestOptions() {
	var fos domain.FindOptions
	fo := []domain.FindOption{
		domain.WithProjection(1),
		domain.WithSkip(-2),
		domain.WithLimit(-3),
		domain.WithSort(domain.Sort{{Key: "a", Order: -4}}),
		domain.WithHint("a_1"),
	}
	for _, opt := range fo {
		opt(&fos)
	}
	s.Equal(domain.FindOptions{
		Projection: 1,
		Skip:       -2,
		Limit:      -3,
		Sort:       domain.Sort{{Key: "a", Order: -4}},
		Hint:       "a_1",
	}, fos)

	var qos domain.QueryOptions
	qo := []domain.QueryOption{
		domain.WithQuery(1),
		domain.WithQueryLimit(2),
		domain.WithQuerySkip(3),
		domain.WithQuerySort(domain.Sort{{Key: "a", Order: 5}}),
		domain.WithQueryProjection(map[string]uint8{"b": 6}),
		domain.WithQueryCap(7),
	}
	for _, opt := range qo {
		opt(&qos)
	}
	s.Equal(domain.QueryOptions{
		Query:      1,
		Limit:      2,
		Skip:       3,
		Sort:       domain.Sort{{Key: "a", Order: 5}},
		Projection: map[string]uint8{"b": 6},
		Cap:        7,
	}, qos)

	dec := decoder.NewDecoder()
	var cos domain.CursorOptions
	domain.WithCursorDecoder(dec)(&cos)
	s.Equal(domain.CursorOptions{Decoder: dec}, cos)

	comp := comparer.NewComparer()
	ha := hasher.NewHasher()
	fn := fieldnavigator.NewFieldNavigator(data.NewDocument)
	spec := domain.IndexSpec{Fields: []domain.IndexField{{Field: "a", Direction: 1}}, Unique: true}
	var ios domain.IndexOptions
	io := []domain.IndexOption{
		domain.WithIndexSpec(spec),
		domain.WithIndexComparer(comp),
		domain.WithIndexHasher(ha),
		domain.WithIndexFieldNavigator(fn),
	}
	for _, opt := range io {
		opt(&ios)
	}
	s.Equal(domain.IndexOptions{
		Spec:           spec,
		Comparer:       comp,
		Hasher:         ha,
		FieldNavigator: fn,
	}, ios)
}

func (s *DomainTestSuite) TestIndexName() {
	s.Equal("title_1", domain.IndexSpec{
		Fields: []domain.IndexField{{Field: "title", Direction: 1}},
	}.Name())
	s.Equal("author_1_published_year_-1", domain.IndexSpec{
		Fields: []domain.IndexField{
			{Field: "author", Direction: 1},
			{Field: "published_year", Direction: -1},
		},
		Unique: true,
	}.Name())
	s.Empty(domain.IndexSpec{}.Name())
}

func (s *DomainTestSuite) TestBoundsString() {
	s.Equal("[]", domain.KeyRange{}.String())
	s.Equal("[The Hobbit]", domain.KeyRange{Prefix: []any{"The Hobbit"}}.String())
	s.Equal("[[1, 5)]", domain.KeyRange{
		Lower: &domain.Bound{Value: 1, Inclusive: true},
		Upper: &domain.Bound{Value: 5},
	}.String())
	s.Equal("[x, (-inf, 3]]", domain.KeyRange{
		Prefix: []any{"x"},
		Upper:  &domain.Bound{Value: 3, Inclusive: true},
	}.String())
	s.Equal("[a, 1, (2, +inf)]", domain.KeyRange{
		Prefix: []any{"a", 1},
		Lower:  &domain.Bound{Value: 2},
	}.String())

	s.Equal("[a] U [b]", domain.IndexBounds{
		{Prefix: []any{"a"}},
		{Prefix: []any{"b"}},
	}.String())
	s.Empty(domain.IndexBounds(nil).String())

	s.Equal("COLLSCAN", domain.FullScan.String())
	s.Equal("IXSCAN", domain.IndexScan.String())
}

func (s *DomainTestSuite) TestErrorMessages() {
	var e error

	e = domain.ErrFieldName{Field: "a.b", Reason: "contains '.'"}
	s.Equal(`invalid field name "a.b": contains '.'`, e.Error())
	s.ErrorIs(e, domain.ErrInvalidSpec)

	e = domain.ErrCannotCompare{A: "a", B: 2}
	s.Equal("cannot compare unexpected types string and int", e.Error())

	e = domain.ErrCorruptSnapshot{
		CorruptionRate:        1,
		CorruptItems:          10,
		DataLength:            10,
		CorruptAlertThreshold: 0.5,
	}
	s.Equal("100.0% of the snapshot lines are corrupt (10 of 10), more than the 50.0% threshold", e.Error())

	e = domain.ErrDecode{Source: 123, Target: "a"}
	s.Equal("cannot decode int into string", e.Error())

	s.True(errors.Is(domain.ErrCannotModifyID, domain.ErrInvalidSpec))
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
