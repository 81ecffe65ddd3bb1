// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// ErrMixOmitType is returned when a projection mixes inclusions and
// exclusions of fields other than _id.
var ErrMixOmitType = fmt.Errorf("%w: cannot both keep and omit fields except for _id", domain.ErrInvalidSpec)

// Projector implements [domain.Projector].
type Projector struct {
	fn     domain.FieldNavigator
	docFac domain.DocumentFactory
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...Option) domain.Projector {
	p := Projector{docFac: data.NewDocument}
	for _, opt := range opts {
		opt(&p)
	}
	if p.fn == nil {
		p.fn = fieldnavigator.NewFieldNavigator(p.docFac)
	}
	return &p
}

// Project implements [domain.Projector]. Fields are either all kept or all
// omitted; _id is kept unless explicitly set to 0.
func (q *Projector) Project(docs []domain.Document, proj map[string]uint8) ([]domain.Document, error) {
	if len(proj) == 0 {
		return docs, nil
	}

	id, idMentioned := proj["_id"]
	keepID := !idMentioned || id != 0

	fields := slices.Sorted(func(yield func(string) bool) {
		for k := range proj {
			if k != "_id" && !yield(k) {
				return
			}
		}
	})

	include := 0
	addrs := make([][]string, 0, len(fields))
	for _, field := range fields {
		if proj[field] > 0 {
			include++
		}
		addr, err := q.fn.GetAddress(field)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	if include > 0 && include != len(fields) {
		return nil, ErrMixOmitType
	}

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		var projected domain.Document
		var err error
		if include > 0 {
			projected, err = q.positiveProject(doc, addrs)
		} else {
			projected, err = q.negativeProject(doc, addrs)
		}
		if err != nil {
			return nil, err
		}

		if keepID && doc.Has("_id") {
			projected.Set("_id", doc.ID())
		} else {
			projected.Unset("_id")
		}
		res[n] = projected
	}

	return res, nil
}

func (q *Projector) positiveProject(doc domain.Document, p [][]string) (domain.Document, error) {
	res, err := q.docFac(nil)
	if err != nil {
		return nil, err
	}

	for _, field := range p {
		values, expanded, err := q.fn.GetField(doc, field...)
		if err != nil {
			return nil, err
		}
		fieldValues, ok := q.readFields(values, expanded)
		if !ok {
			continue
		}
		created, err := q.fn.EnsureField(res, field...)
		if err != nil {
			return nil, err
		}
		for _, c := range created {
			c.Set(fieldValues)
		}
	}
	return res, nil
}

// readFields returns the value to be kept. Values read through an array are
// kept as a list.
func (q *Projector) readFields(f []domain.GetSetter, expanded bool) (any, bool) {
	if !expanded {
		if len(f) == 0 {
			return nil, false
		}
		return f[0].Get()
	}
	res := make([]any, 0, len(f))
	for _, field := range f {
		if value, defined := field.Get(); defined {
			res = append(res, value)
		}
	}
	return res, true
}

func (q *Projector) negativeProject(doc domain.Document, p [][]string) (domain.Document, error) {
	res, err := q.docFac(doc)
	if err != nil {
		return nil, err
	}
	for _, field := range p {
		values, _, err := q.fn.GetField(res, field...)
		if err != nil {
			return nil, err
		}
		for _, value := range values {
			value.Unset()
		}
	}
	return res, nil
}
