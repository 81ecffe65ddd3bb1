// Package decoder contains the default [domain.Decoder] implementation. It
// copies documents into caller structs and maps, reading the "docq" struct tag.
package decoder

import (
	"fmt"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"

	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

var docReflectType = reflect.TypeOf((*domain.Document)(nil)).Elem()

// Decoder implements domain.Decoder.
type Decoder struct {
	hook mapstructure.DecodeHookFunc
}

// NewDecoder returns a new implementation of domain.Decoder. Strings are
// converted to time.Time (RFC 3339) and time.Duration when the target asks
// for them.
func NewDecoder() domain.Decoder {
	return &Decoder{
		hook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}

	if !value.Type().Elem().Implements(docReflectType) {
		source = d.plain(source)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    data.TagName,
		Result:     target,
		DecodeHook: d.hook,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode{Source: source, Target: target}, err)
	}
	return nil
}

// plain turns nested documents into maps, which is what mapstructure reads.
func (d *Decoder) plain(value any) any {
	switch t := value.(type) {
	case domain.Document:
		doc := make(map[string]any, t.Len())
		for k, v := range t.Iter() {
			doc[k] = d.plain(v)
		}
		return doc
	case []any:
		lst := make([]any, len(t))
		for n, v := range t {
			lst[n] = d.plain(v)
		}
		return lst
	default:
		return value
	}
}
