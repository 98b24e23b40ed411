// Package parse decodes CSV and JSON file content for the loader.
//
// It implements core.Parser on top of encoding/csv and encoding/json. The
// file name selects the decoder; files with an unknown extension are
// sniffed from their first bytes, and binary content decodes to nil so the
// loader treats it as unrecognized.
package parse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/mapload/internal/core"
)

// kind is the decoder selected for a file.
type kind int

const (
	kindUnknown kind = iota
	kindCSV
	kindTSV
	kindJSON
)

// sniffSize is how many leading bytes are inspected for unknown extensions.
const sniffSize = 512

// Parser implements core.Parser.
type Parser struct{}

var _ core.Parser = (*Parser)(nil)

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse decodes whole-file text.
func (p *Parser) Parse(ctx context.Context, text string, opts core.ParseOptions, name string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := kindForName(name)
	if k == kindUnknown {
		k = sniff([]byte(text[:min(len(text), sniffSize)]))
	}

	switch k {
	case kindCSV, kindTSV:
		r := newCSVReader(strings.NewReader(text), k)
		return readAllCSV(r, opts.CSV)
	case kindJSON:
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("parse json %s: %w", name, err)
		}
		return v, nil
	}
	return nil, nil
}

// ParseInBatches decodes a chunk stream lazily.
func (p *Parser) ParseInBatches(ctx context.Context, chunks core.ChunkSource, opts core.ParseOptions, name string) (core.BatchIterator, error) {
	br := bufio.NewReader(core.NewTextReader(core.NewChunkSourceReader(ctx, chunks)))

	k := kindForName(name)
	if k == kindUnknown {
		head, err := br.Peek(sniffSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, err
		}
		k = sniff(head)
	}

	switch k {
	case kindCSV, kindTSV:
		return newCSVBatches(newCSVReader(br, k), opts.CSV), nil
	case kindJSON:
		return newJSONBatches(br, opts), nil
	}
	return emptyBatches{}, nil
}

func kindForName(name string) kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return kindCSV
	case ".tsv":
		return kindTSV
	case ".json", ".geojson", ".kgl":
		return kindJSON
	}
	return kindUnknown
}

// sniff guesses a decoder from leading bytes. Content with NUL bytes or
// substituted invalid UTF-8 is treated as binary.
func sniff(head []byte) kind {
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if len(trimmed) == 0 {
		return kindUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return kindJSON
	}
	if isBinary(head) {
		return kindUnknown
	}
	return kindCSV
}

func isBinary(head []byte) bool {
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	// The text reader upstream replaces invalid bytes with '?'. A high
	// share of them, or of control characters, means the file was binary.
	suspicious := 0
	for _, r := range string(head) {
		if r == '?' || r == utf8.RuneError || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			suspicious++
		}
	}
	return suspicious*10 > utf8.RuneCount(head)
}

// emptyBatches is the iterator for content no decoder applies to.
type emptyBatches struct{}

func (emptyBatches) Next(context.Context) (core.Batch, error) {
	return core.Batch{}, io.EOF
}
