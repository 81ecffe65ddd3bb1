// Package hasher contains the default [domain.Hasher] implementation. Values
// are written to an xxhash digest in a canonical form, so values the default
// comparer treats as equal hash the same: documents are written with sorted
// keys and every number is written as a float64.
package hasher

import (
	"encoding/binary"
	"math"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// type tags written before each value.
const (
	tagUndefined byte = iota
	tagNil
	tagNumber
	tagString
	tagBool
	tagTime
	tagArray
	tagDocument
	tagOther
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(value any) (uint64, error) {
	d := xxhash.New()
	if err := h.write(d, value); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

func (h *Hasher) write(d *xxhash.Digest, value any) error {
	var buf [8]byte

	if g, ok := value.(domain.Getter); ok {
		v, defined := g.Get()
		if !defined {
			_, _ = d.Write([]byte{tagUndefined})
			return nil
		}
		return h.write(d, v)
	}

	if f, ok := asFloat(value); ok {
		if f == 0 {
			f = 0 // -0 and 0 compare equal
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write([]byte{tagNumber})
		_, _ = d.Write(buf[:])
		return nil
	}

	switch t := value.(type) {
	case nil:
		_, _ = d.Write([]byte{tagNil})
	case string:
		_, _ = d.Write([]byte{tagString})
		h.writeString(d, t)
	case bool:
		b := byte(0)
		if t {
			b = 1
		}
		_, _ = d.Write([]byte{tagBool, b})
	case time.Time:
		binary.LittleEndian.PutUint64(buf[:], uint64(t.UnixNano()))
		_, _ = d.Write([]byte{tagTime})
		_, _ = d.Write(buf[:])
	case []any:
		_, _ = d.Write([]byte{tagArray})
		h.writeLen(d, len(t))
		for _, v := range t {
			if err := h.write(d, v); err != nil {
				return err
			}
		}
	case domain.Document:
		_, _ = d.Write([]byte{tagDocument})
		keys := slices.Sorted(t.Keys())
		h.writeLen(d, len(keys))
		for _, k := range keys {
			h.writeString(d, k)
			if err := h.write(d, t.Get(k)); err != nil {
				return err
			}
		}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, _ = d.Write([]byte{tagOther})
		_, _ = d.Write(b)
	}
	return nil
}

func (h *Hasher) writeString(d *xxhash.Digest, s string) {
	h.writeLen(d, len(s))
	_, _ = d.WriteString(s)
}

func (h *Hasher) writeLen(d *xxhash.Digest, l int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(l))
	_, _ = d.Write(buf[:])
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
