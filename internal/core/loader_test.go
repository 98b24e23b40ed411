package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingParser returns fixed content and records which path was taken.
type recordingParser struct {
	mu          sync.Mutex
	content     any
	parseErr    error
	wholeCalls  int
	streamCalls int
	streamBytes int
	texts       []string
	lastOpts    ParseOptions
}

func (p *recordingParser) Parse(_ context.Context, text string, opts ParseOptions, _ string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wholeCalls++
	p.texts = append(p.texts, text)
	p.lastOpts = opts
	return p.content, p.parseErr
}

func (p *recordingParser) ParseInBatches(ctx context.Context, chunks ChunkSource, opts ParseOptions, _ string) (BatchIterator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamCalls++
	p.lastOpts = opts

	for {
		chunk, err := chunks.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p.streamBytes += len(chunk)
	}
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	rows, _ := p.content.([]any)
	return &sliceBatches{batches: []Batch{{Kind: BatchData, Data: rows}}}, nil
}

func identity(content any) (any, error) { return content, nil }

func newTestLoader(t *testing.T, p Parser, opts LoaderOptions) *Loader {
	t.Helper()
	if opts.Processors == nil {
		opts.Processors = NewRegistry()
		opts.Processors.Register(FormatCSV, identity)
		opts.Processors.Register(FormatRow, identity)
	}
	opts.Parser = p
	l, err := NewLoader(opts)
	require.NoError(t, err)
	return l
}

func memFile(name, content string) FileHandle {
	return NewFileHandle(name, int64(len(content)), strings.NewReader(content))
}

func TestNewLoader_Validation(t *testing.T) {
	_, err := NewLoader(LoaderOptions{Processors: NewRegistry()})
	assert.Error(t, err)

	_, err = NewLoader(LoaderOptions{Parser: &recordingParser{}})
	assert.Error(t, err)
}

func TestLoader_DefaultThreshold(t *testing.T) {
	l := newTestLoader(t, &recordingParser{}, LoaderOptions{})

	assert.True(t, l.UseStreaming(30<<20), "a file of exactly 30 MiB is streamed")
	assert.False(t, l.UseStreaming(30<<20-1), "one byte less is read whole")
	assert.False(t, l.UseStreaming(0))
}

func TestLoader_StrategyBoundary(t *testing.T) {
	rows := []any{[]any{"a"}, []any{"1"}}

	tests := []struct {
		name       string
		size       int
		wantStream bool
	}{
		{"below threshold", 99, false},
		{"at threshold", 100, true},
		{"above threshold", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingParser{content: rows}
			l := newTestLoader(t, p, LoaderOptions{StreamThreshold: 100, ChunkSize: 16, CSVBatchSize: 7})

			content, err := l.Parse(context.Background(), memFile("a.csv", strings.Repeat("x", tt.size)))
			require.NoError(t, err)
			assert.Equal(t, rows, content)

			if tt.wantStream {
				assert.Equal(t, 1, p.streamCalls)
				assert.Equal(t, 0, p.wholeCalls)
				assert.Equal(t, tt.size, p.streamBytes, "every byte is delivered in chunks")
				assert.Equal(t, 7, p.lastOpts.CSV.BatchSize)
				assert.True(t, p.lastOpts.JSON.EmitRootObject)
			} else {
				assert.Equal(t, 0, p.streamCalls)
				assert.Equal(t, 1, p.wholeCalls)
			}
			assert.False(t, p.lastOpts.CSV.Header, "CSV headers stay in the data on both paths")
		})
	}
}

func TestLoader_WholeReadDecodesText(t *testing.T) {
	p := &recordingParser{content: []any{[]any{"a"}}}
	l := newTestLoader(t, p, LoaderOptions{})

	raw := "\xEF\xBB\xBFname\nJos\xE9\n"
	_, err := l.Parse(context.Background(), memFile("a.csv", raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"name\nJos?\n"}, p.texts)
}

func TestLoader_MaxFileSize(t *testing.T) {
	p := &recordingParser{}
	l := newTestLoader(t, p, LoaderOptions{MaxFileSize: 4})

	_, err := l.Parse(context.Background(), memFile("big.csv", "12345"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, 0, p.wholeCalls+p.streamCalls, "oversized files are rejected before reading")
}

type errReaderAt struct{}

func (errReaderAt) ReadAt([]byte, int64) (int, error) { return 0, errors.New("device gone") }

func TestLoader_ReadErrors(t *testing.T) {
	for _, size := range []int64{10, 1000} {
		p := &recordingParser{}
		l := newTestLoader(t, p, LoaderOptions{StreamThreshold: 100, ChunkSize: 64})

		_, err := l.Parse(context.Background(), NewFileHandle("bad.csv", size, errReaderAt{}))
		assert.ErrorIs(t, err, ErrUnreadableFile, "size %d", size)
		assert.NotErrorIs(t, err, ErrUnparseableContent)
	}
}

func TestLoader_ParseErrors(t *testing.T) {
	for _, size := range []int{10, 1000} {
		p := &recordingParser{parseErr: errors.New("bad quote")}
		l := newTestLoader(t, p, LoaderOptions{StreamThreshold: 100})

		_, err := l.Parse(context.Background(), memFile("bad.csv", strings.Repeat("x", size)))
		assert.ErrorIs(t, err, ErrUnparseableContent, "size %d", size)
		assert.Contains(t, err.Error(), "bad quote")
	}
}

func TestLoader_StreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLoader(t, &recordingParser{}, LoaderOptions{StreamThreshold: 10, ChunkSize: 4})
	_, err := l.Parse(ctx, memFile("a.csv", strings.Repeat("x", 20)))
	assert.ErrorIs(t, err, ErrUnreadableFile)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFile(t *testing.T) {
	p := &recordingParser{content: []any{[]any{"a"}, []any{"1"}}}
	l := newTestLoader(t, p, LoaderOptions{})

	base := FileCache{{Data: "prior", Info: FileInfo{Label: "prior"}}}
	next, err := l.ReadFile(context.Background(), memFile("a.csv", "a\n1\n"), base)
	require.NoError(t, err)

	require.Len(t, next, 2)
	assert.Len(t, base, 1, "the input cache is not modified")
	assert.Equal(t, FileInfo{Label: "a.csv", Format: FormatCSV}, next[1].Info)
	assert.Equal(t, p.content, next[1].Data)
}

func TestReadFile_UnrecognizedIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	p := &recordingParser{content: nil}
	l := newTestLoader(t, p, LoaderOptions{Logger: logger})

	base := FileCache{}
	next, err := l.ReadFile(context.Background(), memFile("blob.bin", "\x00\x01"), base)
	require.NoError(t, err)
	assert.Empty(t, next)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "could not parse file", entry["msg"])
	assert.Equal(t, "blob.bin", entry["file"])
}

func TestReadFile_MissingProcessorIsSkipped(t *testing.T) {
	p := &recordingParser{content: map[string]any{"type": "Feature", "geometry": nil}}
	l := newTestLoader(t, p, LoaderOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	next, err := l.ReadFile(context.Background(), memFile("a.geojson", "{}"), nil)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestReadFile_ProcessorError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FormatCSV, func(any) (any, error) { return nil, errors.New("no header") })

	p := &recordingParser{content: []any{[]any{"a"}}}
	l := newTestLoader(t, p, LoaderOptions{Processors: reg})

	next, err := l.ReadFile(context.Background(), memFile("a.csv", "a"), FileCache{})
	assert.ErrorIs(t, err, ErrUnparseableContent)
	assert.Empty(t, next)
}

// nameParser returns content chosen by file name.
type nameParser struct {
	byName map[string]any
}

func (p nameParser) Parse(_ context.Context, _ string, _ ParseOptions, name string) (any, error) {
	c, ok := p.byName[name]
	if !ok {
		return nil, errors.New("broken")
	}
	return c, nil
}

func (p nameParser) ParseInBatches(context.Context, ChunkSource, ParseOptions, string) (BatchIterator, error) {
	return nil, errors.New("not streamed")
}

func TestReadFiles_OrderAndIsolation(t *testing.T) {
	p := nameParser{byName: map[string]any{
		"1.csv":    []any{[]any{"a"}},
		"2.json":   []any{map[string]any{"a": 1.0}},
		"blob.bin": nil,
		"4.csv":    []any{[]any{"b"}},
	}}
	l := newTestLoader(t, p, LoaderOptions{
		MaxConcurrent: 2,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	files := []FileHandle{
		memFile("1.csv", "a"),
		memFile("2.json", "[]"),
		memFile("blob.bin", "x"),
		memFile("broken.csv", "x"),
		memFile("4.csv", "b"),
	}

	next, results := l.ReadFiles(context.Background(), files, FileCache{})

	require.Len(t, results, 5)
	for i, f := range files {
		assert.Equal(t, f.Name(), results[i].File)
	}
	assert.True(t, results[0].Loaded())
	assert.Equal(t, FormatRow, results[1].Format)
	assert.Contains(t, results[2].Warning, "could not parse file blob.bin")
	assert.ErrorIs(t, results[3].Err, ErrUnparseableContent)
	assert.True(t, results[4].Loaded())

	labels := make([]string, len(next))
	for i, f := range next {
		labels[i] = f.Info.Label
	}
	assert.Equal(t, []string{"1.csv", "2.json", "4.csv"}, labels)
}

func TestReadFiles_NothingLoadedReturnsInput(t *testing.T) {
	l := newTestLoader(t, nameParser{}, LoaderOptions{})
	base := FileCache{{Info: FileInfo{Label: "prior"}}}

	next, results := l.ReadFiles(context.Background(), []FileHandle{memFile("x.csv", "x")}, base)
	assert.Equal(t, base, next)
	assert.Error(t, results[0].Err)
}
