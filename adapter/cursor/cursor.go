// Package cursor contains the default [domain.Cursor] implementation, which
// walks a materialized list of documents.
package cursor

import (
	"context"

	"github.com/vinicius-lino-figueiredo/docq/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// Cursor implements domain.Cursor.
type Cursor struct {
	docs   []domain.Document
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	pos    int
}

// NewCursor returns a new implementation of Cursor. The cursor stops when ctx
// is done.
func NewCursor(ctx context.Context, docs []domain.Document, options ...domain.CursorOption) (domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := domain.CursorOptions{
		Decoder: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&opts)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	return &Cursor{
		docs:   docs,
		ctx:    ctx,
		cancel: cancel,
		dec:    opts.Decoder,
		pos:    -1,
	}, nil
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	if c.ctx.Err() != nil || c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := context.Cause(c.ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.pos < 0 {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.docs[c.pos], target)
}

// Err implements domain.Cursor. Closing the cursor is not reported as an
// error.
func (c *Cursor) Err() error {
	err := context.Cause(c.ctx)
	if err == domain.ErrCursorClosed {
		return nil
	}
	return err
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	if err := context.Cause(c.ctx); err != nil {
		return err
	}
	c.cancel(domain.ErrCursorClosed)
	c.docs = nil
	return nil
}
