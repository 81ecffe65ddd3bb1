package structure

import (
	"errors"
	"maps"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
)

type StructureTestSuite struct {
	suite.Suite
}

func (s *StructureTestSuite) collect2(obj any) (map[string]any, int, error) {
	seq, l, err := Seq2(obj)
	if err != nil {
		return nil, l, err
	}
	return maps.Collect(seq), l, nil
}

func (s *StructureTestSuite) TestSeq2Maps() {
	testCases := []struct {
		name string
		obj  any
	}{
		{"Document", data.M{"a": 1, "b": "x"}},
		{"MapAny", map[string]any{"a": 1, "b": "x"}},
		{"Pointer", &map[string]any{"a": 1, "b": "x"}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			m, l, err := s.collect2(tc.obj)
			s.NoError(err)
			s.Equal(2, l)
			s.Equal(map[string]any{"a": 1, "b": "x"}, m)
		})
	}

	m, l, err := s.collect2(map[string]int{"c": 3})
	s.NoError(err)
	s.Equal(1, l)
	s.Equal(map[string]any{"c": 3}, m)
}

func (s *StructureTestSuite) TestSeq2Struct() {
	type inner struct{ X int }
	obj := struct {
		Title    string `docq:"title"`
		Year     int
		Hidden   string `docq:"-"`
		Empty    []int  `docq:"empty,omitempty"`
		Zero     int    `docq:"zero,omitzero"`
		Inner    inner  `docq:",omitzero"`
		internal int
	}{Title: "Dune", Year: 1965, Hidden: "h", Inner: inner{X: 1}, internal: 2}

	m, l, err := s.collect2(&obj)
	s.NoError(err)
	s.Equal(3, l)
	s.Equal(map[string]any{"title": "Dune", "Year": 1965, "Inner": inner{X: 1}}, m)
}

func (s *StructureTestSuite) TestSeq2Errors() {
	_, _, err := Seq2(nil)
	s.ErrorIs(err, ErrNilObj)

	var p *map[string]any
	_, _, err = Seq2(p)
	s.ErrorIs(err, ErrNilObj)

	for _, v := range []any{1, "a", time.Now(), []any{}, map[int]any{}} {
		_, _, err = Seq2(v)
		s.ErrorAs(err, &ErrNonObject{})
	}
}

func (s *StructureTestSuite) TestSeq2Stop() {
	seq, _, err := Seq2(data.M{"a": 1, "b": 2, "c": 3})
	s.Require().NoError(err)
	count := 0
	for range seq {
		count++
		break
	}
	s.Equal(1, count)
}

func (s *StructureTestSuite) TestSeq() {
	testCases := []struct {
		name string
		obj  any
		want []any
	}{
		{"AnySlice", []any{"a", 1}, []any{"a", 1}},
		{"IntSlice", []int{1, 2}, []any{1, 2}},
		{"Array", [...]string{"x", "y"}, []any{"x", "y"}},
		{"Pointer", &[]bool{true}, []any{true}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			seq, l, err := Seq(tc.obj)
			s.NoError(err)
			s.Equal(len(tc.want), l)
			s.Equal(tc.want, slices.Collect(seq))
		})
	}

	_, _, err := Seq(nil)
	s.ErrorIs(err, ErrNilObj)
	for _, v := range []any{1, "a", []byte("a"), data.M{}} {
		_, _, err = Seq(v)
		s.ErrorAs(err, &ErrNonList{})
	}
}

func (s *StructureTestSuite) TestAsInteger() {
	for _, v := range []any{3, int8(3), uint16(3), int64(3), 3.0, float32(3)} {
		i, ok := AsInteger(v)
		s.True(ok)
		s.Equal(3, i)
	}
	for _, v := range []any{3.5, math.Inf(1), math.NaN(), "3", nil} {
		_, ok := AsInteger(v)
		s.False(ok)
	}
}

func (s *StructureTestSuite) TestAsNumbers() {
	f, ok := AsFloat(uint8(2))
	s.True(ok)
	s.Equal(2.0, f)
	f, ok = AsFloat(float32(1.5))
	s.True(ok)
	s.Equal(1.5, f)
	_, ok = AsFloat("1")
	s.False(ok)

	i, ok := AsInt64(uint32(7))
	s.True(ok)
	s.Equal(int64(7), i)
	_, ok = AsInt64(7.0)
	s.False(ok)
	_, ok = AsInt64(uint64(math.MaxUint64))
	s.False(ok)
}

func (s *StructureTestSuite) TestContains() {
	eq := func(a, b int) (bool, error) { return a == b, nil }
	ok, err := Contains([]int{1, 2, 3}, 2, eq)
	s.NoError(err)
	s.True(ok)

	ok, err = Contains([]int{1, 2, 3}, 4, eq)
	s.NoError(err)
	s.False(ok)

	errCmp := errors.New("cmp")
	_, err = Contains([]int{1}, 1, func(int, int) (bool, error) { return false, errCmp })
	s.ErrorIs(err, errCmp)
}

func TestStructureTestSuite(t *testing.T) {
	suite.Run(t, new(StructureTestSuite))
}
