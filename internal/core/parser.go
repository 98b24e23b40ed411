package core

import "context"

// CSVOptions configures CSV decoding.
type CSVOptions struct {
	// Header turns rows into objects keyed by the first row. The loader
	// always sets it to false; format processors own header handling.
	Header bool

	// BatchSize is the number of rows per data batch when streaming.
	BatchSize int
}

// JSONOptions configures JSON decoding.
type JSONOptions struct {
	// EmitRootObject makes streamed objects end with a BatchRootObject
	// carrying their non-streamed top-level properties.
	EmitRootObject bool
}

// ParseOptions is the per-format options map handed to a Parser.
type ParseOptions struct {
	CSV  CSVOptions
	JSON JSONOptions
}

// Parser decodes file content. The file name is a format hint only.
type Parser interface {
	// Parse decodes whole-file text. It returns nil content, not an error,
	// when no decoder applies to the input.
	Parse(ctx context.Context, text string, opts ParseOptions, name string) (any, error)

	// ParseInBatches decodes a chunk stream lazily.
	ParseInBatches(ctx context.Context, chunks ChunkSource, opts ParseOptions, name string) (BatchIterator, error)
}

// Processor maps parsed content of one format to canonical data.
type Processor func(content any) (any, error)
