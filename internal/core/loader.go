package core

// loader.go implements size-adaptive ingestion.
//
// Files below the stream threshold are read whole as UTF-8 text and parsed
// in one call. Larger files are sliced by a ChunkReader and decoded batch
// by batch, so the decoded text is never materialized as one string.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStreamThreshold is the size at which loading switches to the
	// streaming path (30 MiB). A file of exactly this size is streamed.
	DefaultStreamThreshold int64 = 30 << 20

	// DefaultChunkSize is the streaming chunk size (10 MiB).
	DefaultChunkSize int64 = 10 << 20

	// DefaultCSVBatchSize is the number of CSV rows per streamed batch.
	DefaultCSVBatchSize = 4000

	// DefaultMaxConcurrentLoads bounds ReadFiles fan-out.
	DefaultMaxConcurrentLoads = 4
)

// LoaderOptions configures a Loader. Parser and Processors are required.
type LoaderOptions struct {
	Parser     Parser
	Processors *Registry

	// Logger receives warnings for skipped files. Defaults to slog.Default().
	Logger *slog.Logger

	StreamThreshold int64
	ChunkSize       int64
	CSVBatchSize    int

	// MaxFileSize rejects larger files before reading. Zero disables the check.
	MaxFileSize int64

	// MaxConcurrent bounds the number of files ReadFiles loads at once.
	MaxConcurrent int
}

// Loader turns file handles into loaded files.
type Loader struct {
	parser     Parser
	processors *Registry
	logger     *slog.Logger

	streamThreshold int64
	chunkSize       int64
	csvBatchSize    int
	maxFileSize     int64
	maxConcurrent   int
}

// NewLoader validates opts and applies defaults.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Parser == nil {
		return nil, errors.New("loader: parser is required")
	}
	if opts.Processors == nil {
		return nil, errors.New("loader: processors are required")
	}

	l := &Loader{
		parser:          opts.Parser,
		processors:      opts.Processors,
		logger:          opts.Logger,
		streamThreshold: opts.StreamThreshold,
		chunkSize:       opts.ChunkSize,
		csvBatchSize:    opts.CSVBatchSize,
		maxFileSize:     opts.MaxFileSize,
		maxConcurrent:   opts.MaxConcurrent,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.streamThreshold <= 0 {
		l.streamThreshold = DefaultStreamThreshold
	}
	if l.chunkSize <= 0 {
		l.chunkSize = DefaultChunkSize
	}
	if l.csvBatchSize <= 0 {
		l.csvBatchSize = DefaultCSVBatchSize
	}
	if l.maxConcurrent <= 0 {
		l.maxConcurrent = DefaultMaxConcurrentLoads
	}
	return l, nil
}

// UseStreaming reports whether a file of the given size takes the
// streaming path.
func (l *Loader) UseStreaming(size int64) bool {
	return size >= l.streamThreshold
}

// Parse decodes a file with the strategy chosen by its size. Both paths
// return the same content shapes.
func (l *Loader) Parse(ctx context.Context, file FileHandle) (any, error) {
	if l.maxFileSize > 0 && file.Size() > l.maxFileSize {
		recordFailure(failureSize)
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, file.Name(), file.Size(), l.maxFileSize)
	}
	if l.UseStreaming(file.Size()) {
		return l.parseStreaming(ctx, file)
	}
	return l.parseWhole(ctx, file)
}

func (l *Loader) parseWhole(ctx context.Context, file FileHandle) (any, error) {
	if err := ctx.Err(); err != nil {
		recordFailure(failureRead)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, file.Name(), err)
	}

	counter := &countingReader{r: io.NewSectionReader(file, 0, file.Size())}
	var text strings.Builder
	text.Grow(int(file.Size()))
	_, err := io.Copy(&text, NewTextReader(counter))
	recordBytesRead(counter.n)
	if err != nil {
		recordFailure(failureRead)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, file.Name(), err)
	}

	opts := ParseOptions{CSV: CSVOptions{Header: false}}
	content, err := l.parser.Parse(ctx, text.String(), opts, file.Name())
	if err != nil {
		recordFailure(failureParse)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnparseableContent, file.Name(), err)
	}
	return content, nil
}

func (l *Loader) parseStreaming(ctx context.Context, file FileHandle) (any, error) {
	chunks := NewChunkReader(file, file.Size(), l.chunkSize)
	defer func() { recordBytesRead(chunks.Offset()) }()

	opts := ParseOptions{
		CSV:  CSVOptions{Header: false, BatchSize: l.csvBatchSize},
		JSON: JSONOptions{EmitRootObject: true},
	}
	batches, err := l.parser.ParseInBatches(ctx, chunks, opts, file.Name())
	if err != nil {
		return nil, l.streamError(file, err)
	}

	content, err := Reassemble(ctx, batches)
	if err != nil {
		return nil, l.streamError(file, err)
	}
	return content, nil
}

// streamError keeps read failures distinguishable from decode failures,
// since both surface through the batch iterator.
func (l *Loader) streamError(file FileHandle, err error) error {
	if errors.Is(err, ErrUnreadableFile) {
		recordFailure(failureRead)
		return err
	}
	recordFailure(failureParse)
	if errors.Is(err, ErrUnparseableContent) {
		return fmt.Errorf("%s: %w", file.Name(), err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnparseableContent, file.Name(), err)
}

// ReadFile loads one file and returns a new cache with it appended.
//
// Read and parse failures are returned as errors and leave no entry.
// Unrecognized content is logged as a warning and the input cache is
// returned unchanged with a nil error.
func (l *Loader) ReadFile(ctx context.Context, file FileHandle, cache FileCache) (FileCache, error) {
	loaded, err := l.load(ctx, file)
	if errors.Is(err, ErrUnrecognizedFormat) {
		return cache, nil
	}
	if err != nil {
		return cache, err
	}
	return cache.Append(loaded), nil
}

// LoadResult reports the outcome of one file in ReadFiles.
type LoadResult struct {
	File   string
	Format Format

	// Warning is set when the file was skipped as unrecognized.
	Warning string

	// Err is set when the file failed to read or parse.
	Err error
}

// Loaded reports whether the file entered the cache.
func (r LoadResult) Loaded() bool {
	return r.Err == nil && r.Warning == ""
}

// ReadFiles loads files independently and appends the successes to a copy
// of cache in argument order. A failure never aborts sibling loads.
func (l *Loader) ReadFiles(ctx context.Context, files []FileHandle, cache FileCache) (FileCache, []LoadResult) {
	results := make([]LoadResult, len(files))
	loaded := make([]LoadedFile, len(files))

	var g errgroup.Group
	g.SetLimit(l.maxConcurrent)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i].File = file.Name()
			lf, err := l.load(ctx, file)
			switch {
			case errors.Is(err, ErrUnrecognizedFormat):
				results[i].Warning = err.Error()
			case err != nil:
				results[i].Err = err
			default:
				loaded[i] = lf
				results[i].Format = lf.Info.Format
			}
			return nil
		})
	}
	_ = g.Wait()

	var ok []LoadedFile
	for i, r := range results {
		if r.Loaded() {
			ok = append(ok, loaded[i])
		}
	}
	if len(ok) == 0 {
		return cache, results
	}
	return cache.Append(ok...), results
}

// load runs parse, classify and process for one file.
func (l *Loader) load(ctx context.Context, file FileHandle) (LoadedFile, error) {
	start := time.Now()
	strategy := strategyWhole
	if l.UseStreaming(file.Size()) {
		strategy = strategyStream
	}
	defer func() { recordDuration(strategy, time.Since(start)) }()

	logger := l.logger.With("file", file.Name(), "size", file.Size(), "strategy", strategy)

	content, err := l.Parse(ctx, file)
	if err != nil {
		logger.Debug("file load failed", "error", err)
		return LoadedFile{}, err
	}

	format := Classify(content)
	if !format.Recognized() {
		recordUnrecognized()
		logger.Warn("could not parse file", "reason", "unrecognized format")
		return LoadedFile{}, fmt.Errorf("%w %s", ErrUnrecognizedFormat, file.Name())
	}

	process, ok := l.processors.Get(format)
	if !ok {
		recordUnrecognized()
		logger.Warn("could not parse file", "reason", "no processor", "format", format)
		return LoadedFile{}, fmt.Errorf("%w %s: no processor for %s", ErrUnrecognizedFormat, file.Name(), format)
	}

	data, err := process(content)
	if err != nil {
		recordFailure(failureProcess)
		return LoadedFile{}, fmt.Errorf("%w: %s as %s: %w", ErrUnparseableContent, file.Name(), format, err)
	}

	recordLoaded(format, strategy)
	logger.Debug("file loaded", "format", format)

	return LoadedFile{
		Data: data,
		Info: FileInfo{Label: file.Name(), Format: format},
	}, nil
}
