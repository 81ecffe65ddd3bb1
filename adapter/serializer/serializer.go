// Package serializer contains the default [domain.Serializer] implementation.
// Documents are written as single line JSON, with dates stored as
// {"$$date": <unix milliseconds>}.
package serializer

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// DateKey is the field holding the milliseconds of a serialized date.
const DateKey = "$$date"

// Serializer implements domain.Serializer.
type Serializer struct {
	documentFactory domain.DocumentFactory
}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer(documentFactory domain.DocumentFactory) domain.Serializer {
	if documentFactory == nil {
		documentFactory = data.NewDocument
	}
	return &Serializer{
		documentFactory: documentFactory,
	}
}

func (s *Serializer) copyDoc(doc domain.Document) (domain.Document, error) {
	res, err := s.documentFactory(nil)
	if err != nil {
		return nil, err
	}

	for k, v := range doc.Iter() {
		copied, err := s.copyAny(v)
		if err != nil {
			return nil, err
		}
		res.Set(k, copied)
	}
	return res, nil
}

func (s *Serializer) copyAny(v any) (any, error) {
	switch t := v.(type) {
	case domain.Document:
		return s.copyDoc(t)
	case []any:
		newList := make([]any, len(t))
		for n, itm := range t {
			newV, err := s.copyAny(itm)
			if err != nil {
				return nil, err
			}
			newList[n] = newV
		}
		return newList, nil
	case time.Time:
		d, err := s.documentFactory(nil)
		if err != nil {
			return nil, err
		}
		d.Set(DateKey, t.UnixMilli())
		return d, nil
	default:
		return v, nil
	}
}

// Serialize implements domain.Serializer. Documents with field names that
// cannot be stored are rejected with [domain.ErrFieldName].
func (s *Serializer) Serialize(ctx context.Context, obj any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc, ok := obj.(domain.Document); ok {
		if err := data.CheckFieldNames(doc); err != nil {
			return nil, err
		}
		cp, err := s.copyDoc(doc)
		if err != nil {
			return nil, err
		}
		obj = cp
	}
	return json.Marshal(obj)
}
