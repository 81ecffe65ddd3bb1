package deserializer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

var ctx = context.Background()

type book struct {
	Title string    `docq:"title"`
	Year  int       `docq:"year"`
	Price float64   `docq:"price"`
	Tags  []string  `docq:"tags"`
	At    time.Time `docq:"at"`
}

type DeserializerTestSuite struct {
	suite.Suite
	d *Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer(decoder.NewDecoder()).(*Deserializer)
}

func (s *DeserializerTestSuite) TestScalars() {
	var r map[string]any
	s.NoError(s.d.Deserialize(ctx, []byte(`{"s":"x","t":true,"i":5,"neg":-3,"f":6.2,"e":1e2,"n":null}`), &r))
	s.Equal(map[string]any{
		"s":   "x",
		"t":   true,
		"i":   int64(5),
		"neg": int64(-3),
		"f":   6.2,
		"e":   100.0,
		"n":   nil,
	}, r)
}

func (s *DeserializerTestSuite) TestNested() {
	var r data.M
	s.NoError(s.d.Deserialize(ctx, []byte(`{"doc":{"at":{"$$date":1000},"yes":{"again":"yes"}},"list":[39,{"$$date":2000},{"a":1.5}]}`), &r))
	s.Equal(data.M{
		"doc":  data.M{"at": time.UnixMilli(1000), "yes": data.M{"again": "yes"}},
		"list": []any{int64(39), time.UnixMilli(2000), data.M{"a": 1.5}},
	}, r)
}

// Only a single numeric $$date field is read as a date.
func (s *DeserializerTestSuite) TestDateLookalikes() {
	var r data.M
	s.NoError(s.d.Deserialize(ctx, []byte(`{"a":{"$$date":"x"},"b":{"$$date":1,"c":2}}`), &r))
	s.Equal(data.M{"$$date": "x"}, r["a"])
	s.Equal(data.M{"$$date": int64(1), "c": int64(2)}, r["b"])
}

func (s *DeserializerTestSuite) TestRoundTrip() {
	at := time.UnixMilli(time.Now().UnixMilli())
	doc := data.M{"_id": "1", "title": "Dune", "year": 1965, "price": 9.99, "tags": []any{"sf"}, "at": at}

	b, err := serializer.NewSerializer(nil).Serialize(ctx, doc)
	s.NoError(err)

	var r data.M
	s.NoError(s.d.Deserialize(ctx, b, &r))
	s.Equal(data.M{"_id": "1", "title": "Dune", "year": int64(1965), "price": 9.99, "tags": []any{"sf"}, "at": at}, r)
}

func (s *DeserializerTestSuite) TestStruct() {
	var b book
	s.NoError(s.d.Deserialize(ctx, []byte(`{"title":"Dune","year":1965,"price":10,"tags":["sf"],"at":{"$$date":1000}}`), &b))
	s.Equal(book{Title: "Dune", Year: 1965, Price: 10, Tags: []string{"sf"}, At: time.UnixMilli(1000)}, b)
}

func (s *DeserializerTestSuite) TestAnyTarget() {
	var v any
	s.NoError(s.d.Deserialize(ctx, []byte(`{"hello":"world"}`), &v))
	s.Equal(data.M{"hello": "world"}, v)
}

func (s *DeserializerTestSuite) TestContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var v any
	err := s.d.Deserialize(ctx, []byte(`{"hello":"world"}`), &v)
	s.ErrorIs(err, context.Canceled)
	s.Nil(v)
}

func (s *DeserializerTestSuite) TestNilTarget() {
	err := s.d.Deserialize(ctx, []byte(`{"a":1}`), nil)
	s.ErrorIs(err, domain.ErrTargetNil)
}

func (s *DeserializerTestSuite) TestInvalidSyntax() {
	target := data.M{}
	s.Error(s.d.Deserialize(ctx, []byte("{"), &target))
	s.Error(s.d.Deserialize(ctx, []byte("[1]"), &target))
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
