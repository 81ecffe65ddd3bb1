package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type M = data.M

var ctx = context.Background()

type decoderMock struct{ mock.Mock }

func (d *decoderMock) Decode(source any, target any) error {
	return d.Called(source, target).Error(0)
}

type CursorTestSuite struct {
	suite.Suite
	docs []domain.Document
}

func (s *CursorTestSuite) SetupTest() {
	s.docs = []domain.Document{M{"title": "Dune"}, M{"title": "Emma"}}
}

func (s *CursorTestSuite) TestIterate() {
	cur, err := NewCursor(ctx, s.docs)
	s.Require().NoError(err)

	var titles []string
	for cur.Next() {
		var b struct {
			Title string `docq:"title"`
		}
		s.NoError(cur.Scan(ctx, &b))
		titles = append(titles, b.Title)
	}
	s.NoError(cur.Err())
	s.Equal([]string{"Dune", "Emma"}, titles)
	s.NoError(cur.Close())
	s.NoError(cur.Err())
}

func (s *CursorTestSuite) TestScanBeforeNext() {
	cur, err := NewCursor(ctx, s.docs)
	s.Require().NoError(err)
	var m map[string]any
	s.ErrorIs(cur.Scan(ctx, &m), domain.ErrScanBeforeNext)
}

func (s *CursorTestSuite) TestClosed() {
	cur, err := NewCursor(ctx, s.docs)
	s.Require().NoError(err)
	s.NoError(cur.Close())
	s.False(cur.Next())
	var m map[string]any
	s.ErrorIs(cur.Scan(ctx, &m), domain.ErrCursorClosed)
	s.ErrorIs(cur.Close(), domain.ErrCursorClosed)
}

func (s *CursorTestSuite) TestCanceledContext() {
	c, cancel := context.WithCancel(ctx)
	cancel()
	_, err := NewCursor(c, s.docs)
	s.ErrorIs(err, context.Canceled)

	c, cancel = context.WithCancel(ctx)
	cur, err := NewCursor(c, s.docs)
	s.Require().NoError(err)
	s.True(cur.Next())
	cancel()
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), context.Canceled)
}

func (s *CursorTestSuite) TestDecoderOption() {
	errDec := errors.New("decode error")
	dec := new(decoderMock)
	var m map[string]any
	dec.On("Decode", s.docs[0], &m).Return(errDec).Once()

	cur, err := NewCursor(ctx, s.docs, domain.WithCursorDecoder(dec))
	s.Require().NoError(err)
	s.True(cur.Next())
	s.ErrorIs(cur.Scan(ctx, &m), errDec)
	dec.AssertExpectations(s.T())
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
