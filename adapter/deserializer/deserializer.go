// Package deserializer contains the default [domain.Deserializer]
// implementation, reading what [serializer.Serializer] writes.
package deserializer

import (
	"bytes"
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer(decoder domain.Decoder) domain.Deserializer {
	return &Deserializer{
		decoder: decoder,
	}
}

// Deserializer implements [domain.Deserializer]. Integral numbers become
// int64 and the others float64.
type Deserializer struct {
	decoder domain.Decoder
}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, b []byte, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if target == nil {
		return domain.ErrTargetNil
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	doc := d.document(raw)

	switch t := target.(type) {
	case *map[string]any:
		*t = doc
		return nil
	case *data.M:
		*t = doc
		return nil
	case *any:
		*t = doc
		return nil
	}
	return d.decoder.Decode(doc, target)
}

func (d *Deserializer) document(raw map[string]any) data.M {
	doc := make(data.M, len(raw))
	for k, v := range raw {
		doc[k] = d.value(v)
	}
	return doc
}

func (d *Deserializer) value(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for n, item := range t {
			t[n] = d.value(item)
		}
		return t
	case map[string]any:
		if date, ok := d.date(t); ok {
			return date
		}
		return d.document(t)
	default:
		return v
	}
}

func (d *Deserializer) date(m map[string]any) (time.Time, bool) {
	if len(m) != 1 {
		return time.Time{}, false
	}
	n, ok := m[serializer.DateKey].(json.Number)
	if !ok {
		return time.Time{}, false
	}
	ms, err := n.Int64()
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
