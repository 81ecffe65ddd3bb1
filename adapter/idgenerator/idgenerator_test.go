package idgenerator

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type IDGeneratorTestSuite struct {
	suite.Suite
	ig *IDGenerator
}

func (s *IDGeneratorTestSuite) SetupTest() {
	s.ig = NewIDGenerator().(*IDGenerator)
}

func (s *IDGeneratorTestSuite) TestFormat() {
	id, err := s.ig.GenerateID()
	s.NoError(err)
	s.Len(id, 36)
	parsed, err := uuid.Parse(id)
	s.NoError(err)
	s.Equal(uuid.Version(4), parsed.Version())
}

// Different random bytes never give the same id.
func (s *IDGeneratorTestSuite) TestCollision() {
	src := bytes.Repeat([]byte{1}, 16)
	src = append(src, bytes.Repeat([]byte{2}, 16)...)
	s.ig = NewIDGenerator(WithReader(bytes.NewReader(src))).(*IDGenerator)

	id1, err := s.ig.GenerateID()
	s.NoError(err)

	id2, err := s.ig.GenerateID()
	s.NoError(err)

	s.NotEqual(id1, id2)
}

func (s *IDGeneratorTestSuite) TestReadError() {
	s.ig = NewIDGenerator(WithReader(strings.NewReader(""))).(*IDGenerator)

	id, err := s.ig.GenerateID()
	s.ErrorIs(err, io.EOF)
	s.Zero(id)
}

func TestIDGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(IDGeneratorTestSuite))
}
