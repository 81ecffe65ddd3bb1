// Package idgenerator contains the default [domain.IDGenerator] implementation,
// which returns random (version 4) UUIDs.
package idgenerator

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader io.Reader
}

// NewIDGenerator returns a new implementation of [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := IDGenerator{reader: rand.Reader}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (string, error) {
	id, err := uuid.NewRandomFromReader(i.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// WithReader sets the reader that will provide random bytes.
func WithReader(r io.Reader) Option {
	return func(i *IDGenerator) {
		i.reader = r
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
