package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docq"
	"github.com/vinicius-lino-figueiredo/docq/adapter/data"
	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/docq/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

type runOptions struct {
	data     string
	config   string
	logLevel string
	out      string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a book catalog and run the bookstore queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return run(cmd.Context(), cmd.OutOrStdout(), logger, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.data, "data", "", "catalog file: a JSON array of documents or a snapshot")
	cmd.Flags().StringVar(&opts.config, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.out, "out", "", "write a snapshot of the final state to this file")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func run(ctx context.Context, w io.Writer, logger *zap.Logger, cfg config, opts runOptions) error {
	db, err := docq.NewDB(docq.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := load(ctx, db, opts.data); err != nil {
		return fmt.Errorf("loading %s: %w", opts.data, err)
	}
	n, err := db.Count(ctx, nil)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.String("file", opts.data), zap.Int64("documents", n))

	for _, idx := range cfg.Indexes {
		name, err := db.EnsureIndex(ctx, idx.spec())
		if err != nil {
			return err
		}
		logger.Info("configured index ready", zap.String("index", name))
	}

	p := &printer{w: w, ser: serializer.NewSerializer(nil)}
	for _, st := range script() {
		res, err := st.run(ctx, db)
		if err != nil {
			return fmt.Errorf("%s: %w", st.label, err)
		}
		if err := p.print(ctx, st.label, res); err != nil {
			return err
		}
	}

	if opts.out != "" {
		return export(ctx, db, opts.out)
	}
	return nil
}

// load inserts a JSON array of documents, or imports a snapshot when the file
// does not start with '['.
func load(ctx context.Context, db docq.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("[")) {
		return docq.Import(ctx, db, bytes.NewReader(b))
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	des := deserializer.NewDeserializer(decoder.NewDecoder())
	docs := make([]any, len(raw))
	for n, r := range raw {
		var doc data.M
		if err := des.Deserialize(ctx, r, &doc); err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		docs[n] = doc
	}
	if len(docs) == 0 {
		return nil
	}
	cur, err := db.Insert(ctx, docs...)
	if err != nil {
		return err
	}
	return cur.Close()
}

func export(ctx context.Context, db docq.DB, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := docq.Export(ctx, db, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type printer struct {
	w   io.Writer
	ser domain.Serializer
}

// print writes a section header followed by one JSON line per document, or
// a single line for any other value.
func (p *printer) print(ctx context.Context, label string, res any) error {
	if _, err := fmt.Fprintf(p.w, "\n=== %s ===\n", label); err != nil {
		return err
	}
	cur, ok := res.(docq.Cursor)
	if !ok {
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return p.line(b)
	}

	defer cur.Close()
	for cur.Next() {
		var doc data.M
		if err := cur.Scan(ctx, &doc); err != nil {
			return err
		}
		b, err := p.ser.Serialize(ctx, doc)
		if err != nil {
			return err
		}
		if err := p.line(b); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (p *printer) line(b []byte) error {
	if _, err := p.w.Write(b); err != nil {
		return err
	}
	_, err := io.WriteString(p.w, "\n")
	return err
}
