// Package snapshot exports and imports the content of a datastore as JSON
// lines: one line per index definition followed by one line per document.
// A snapshot is an explicit copy made by the caller, not a durability
// mechanism.
package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/dolmen-go/contextio"
	"github.com/goccy/go-json"

	"github.com/vinicius-lino-figueiredo/docq/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/docq/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/docq/domain"
	"github.com/vinicius-lino-figueiredo/docq/pkg/uncomparable"
)

// IndexKey marks a line holding an index definition.
const IndexKey = "$$indexCreated"

// maxLine is the longest line accepted on import.
const maxLine = 16 << 20

// Source is what [Snapshot.Export] reads from.
type Source interface {
	Find(ctx context.Context, filter any, opts ...domain.FindOption) (domain.Cursor, error)
	Indexes(ctx context.Context) ([]domain.IndexInfo, error)
}

// Target is what [Snapshot.Import] writes to.
type Target interface {
	Insert(ctx context.Context, docs ...any) (domain.Cursor, error)
	EnsureIndex(ctx context.Context, spec domain.IndexSpec) (string, error)
}

type indexField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

type indexDef struct {
	Fields []indexField `json:"fields"`
	Unique bool         `json:"unique,omitempty"`
	Sparse bool         `json:"sparse,omitempty"`
}

type indexLine struct {
	IndexCreated *indexDef `json:"$$indexCreated"`
}

// Snapshot reads and writes snapshots.
type Snapshot struct {
	corruptAlertThreshold float64
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	decoder               domain.Decoder
	comparer              domain.Comparer
	documentFactory       domain.DocumentFactory
	hasher                domain.Hasher
}

// New returns a new [Snapshot].
func New(options ...Option) *Snapshot {
	s := &Snapshot{
		corruptAlertThreshold: 0.1,
		decoder:               decoder.NewDecoder(),
		comparer:              comparer.NewComparer(),
		documentFactory:       data.NewDocument,
		hasher:                hasher.NewHasher(),
	}
	for _, option := range options {
		option(s)
	}
	if s.deserializer == nil {
		s.deserializer = deserializer.NewDeserializer(s.decoder)
	}
	if s.serializer == nil {
		s.serializer = serializer.NewSerializer(s.documentFactory)
	}
	return s
}

// Export writes every index definition and document of src to w.
func Export(ctx context.Context, src Source, w io.Writer) error {
	return New().Export(ctx, src, w)
}

// Import reads a snapshot written by [Export] into dst.
func Import(ctx context.Context, dst Target, r io.Reader) error {
	return New().Import(ctx, dst, r)
}

// Export writes every index definition and document of src to w.
func (s *Snapshot) Export(ctx context.Context, src Source, w io.Writer) error {
	wr := bufio.NewWriter(contextio.NewWriter(ctx, w))

	indexes, err := src.Indexes(ctx)
	if err != nil {
		return err
	}
	for _, info := range indexes {
		def := &indexDef{Unique: info.Unique, Sparse: info.Sparse}
		for _, f := range info.Fields {
			def.Fields = append(def.Fields, indexField{Field: f.Field, Direction: f.Direction})
		}
		b, err := s.serializer.Serialize(ctx, indexLine{IndexCreated: def})
		if err != nil {
			return err
		}
		if err := s.writeLine(wr, b); err != nil {
			return err
		}
	}

	cur, err := src.Find(ctx, nil)
	if err != nil {
		return err
	}
	defer cur.Close()
	for cur.Next() {
		var doc data.M
		if err := cur.Scan(ctx, &doc); err != nil {
			return err
		}
		b, err := s.serializer.Serialize(ctx, doc)
		if err != nil {
			return err
		}
		if err := s.writeLine(wr, b); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return wr.Flush()
}

func (s *Snapshot) writeLine(w *bufio.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// Import reads a snapshot into dst: indexes are created first, then every
// document is inserted in a single all-or-nothing call. When a document id
// appears more than once the last line wins.
func (s *Snapshot) Import(ctx context.Context, dst Target, r io.Reader) error {
	docs, indexes, err := s.Read(ctx, r)
	if err != nil {
		return err
	}
	for _, spec := range indexes {
		if _, err := dst.EnsureIndex(ctx, spec); err != nil {
			return fmt.Errorf("creating index %s: %w", spec.Name(), err)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	items := make([]any, len(docs))
	for n, doc := range docs {
		items[n] = doc
	}
	cur, err := dst.Insert(ctx, items...)
	if err != nil {
		return err
	}
	return cur.Close()
}

// Read parses a snapshot without loading it anywhere. Unreadable lines are
// skipped unless their share goes above the corrupt alert threshold.
func (s *Snapshot) Read(ctx context.Context, r io.Reader) ([]domain.Document, []domain.IndexSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	byID := uncomparable.New[domain.Document](s.hasher, s.comparer)
	var indexes []domain.IndexSpec

	corruptItems := 0
	dataLength := 0

	lines := bufio.NewScanner(contextio.NewReader(ctx, r))
	lines.Buffer(nil, maxLine)
	for lines.Scan() {
		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}
		dataLength++

		var m map[string]any
		if err := s.deserializer.Deserialize(ctx, line, &m); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			corruptItems++
			continue
		}

		if _, ok := m[IndexKey]; ok {
			spec, err := s.indexSpec(line)
			if err != nil {
				corruptItems++
				continue
			}
			if !slices.ContainsFunc(indexes, func(i domain.IndexSpec) bool { return i.Name() == spec.Name() }) {
				indexes = append(indexes, spec)
			}
			continue
		}

		doc, err := s.documentFactory(m)
		if err != nil || !doc.Has("_id") {
			corruptItems++
			continue
		}
		if err := byID.Set(doc.ID(), doc); err != nil {
			corruptItems++
			continue
		}
	}
	if err := lines.Err(); err != nil {
		return nil, nil, err
	}

	if dataLength > 0 {
		corruptionRate := float64(corruptItems) / float64(dataLength)
		if corruptionRate > s.corruptAlertThreshold {
			return nil, nil, domain.ErrCorruptSnapshot{
				CorruptionRate:        corruptionRate,
				CorruptItems:          corruptItems,
				DataLength:            dataLength,
				CorruptAlertThreshold: s.corruptAlertThreshold,
			}
		}
	}
	return slices.Collect(byID.Values()), indexes, nil
}

func (s *Snapshot) indexSpec(line []byte) (domain.IndexSpec, error) {
	var l indexLine
	if err := json.Unmarshal(line, &l); err != nil {
		return domain.IndexSpec{}, err
	}
	if l.IndexCreated == nil || len(l.IndexCreated.Fields) == 0 {
		return domain.IndexSpec{}, fmt.Errorf("%w: empty index definition", domain.ErrInvalidSpec)
	}
	spec := domain.IndexSpec{Unique: l.IndexCreated.Unique, Sparse: l.IndexCreated.Sparse}
	for _, f := range l.IndexCreated.Fields {
		spec.Fields = append(spec.Fields, domain.IndexField{Field: f.Field, Direction: f.Direction})
	}
	return spec, nil
}
