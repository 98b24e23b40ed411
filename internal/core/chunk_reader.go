package core

// chunk_reader.go implements the lazy chunk sequence used by the streaming
// ingestion path.
//
// A ChunkReader slices a file into chunkSize-aligned pieces and reads each
// piece with an independent ReadAt call. The sequence is finite and cannot
// be restarted. The first failure is sticky: every later Next returns it.

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ChunkSource is a pull-based sequence of byte chunks.
// Next returns io.EOF after the last chunk.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// ChunkReader yields chunks covering [0, size) of a file.
type ChunkReader struct {
	r         io.ReaderAt
	size      int64
	chunkSize int64

	offset int64
	err    error
}

// NewChunkReader creates a reader over the first size bytes of r.
// A non-positive chunkSize falls back to DefaultChunkSize.
func NewChunkReader(r io.ReaderAt, size, chunkSize int64) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkReader{
		r:         r,
		size:      size,
		chunkSize: chunkSize,
	}
}

// Next reads the next chunk. It returns io.EOF once the end offset has been
// reached, and an error wrapping ErrUnreadableFile if the read fails or ctx
// is done.
func (c *ChunkReader) Next(ctx context.Context) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.offset >= c.size {
		c.err = io.EOF
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		c.err = fmt.Errorf("%w: read aborted at offset %d: %w", ErrUnreadableFile, c.offset, err)
		return nil, c.err
	}

	end := min(c.offset+c.chunkSize, c.size)
	buf := make([]byte, end-c.offset)

	n, err := c.r.ReadAt(buf, c.offset)
	if n < len(buf) {
		// ReaderAt must return a non-nil error on short reads; treat a
		// premature EOF as a truncated file.
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		c.err = fmt.Errorf("%w: read chunk at offset %d: %w", ErrUnreadableFile, c.offset, err)
		return nil, c.err
	}

	c.offset = end
	return buf, nil
}

// Offset returns the number of bytes consumed so far.
func (c *ChunkReader) Offset() int64 {
	return c.offset
}

// chunkSourceReader adapts a ChunkSource to io.Reader so stream decoders can
// consume it.
type chunkSourceReader struct {
	ctx context.Context
	src ChunkSource
	buf []byte
	err error
}

// NewChunkSourceReader returns an io.Reader draining src. Errors from src,
// including io.EOF, are returned once the buffered bytes are consumed.
func NewChunkSourceReader(ctx context.Context, src ChunkSource) io.Reader {
	return &chunkSourceReader{ctx: ctx, src: src}
}

func (r *chunkSourceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.buf, r.err = r.src.Next(r.ctx)
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
