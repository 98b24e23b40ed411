package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format identifies the structural shape of parsed file content.
type Format string

const (
	FormatUnrecognized Format = ""
	FormatCSV          Format = "csv"
	FormatGeoJSON      Format = "geojson"
	FormatRow          Format = "row"
	FormatKeplerGLMap  Format = "keplergl-map"
)

// Recognized reports whether f names a known format.
func (f Format) Recognized() bool {
	switch f {
	case FormatCSV, FormatGeoJSON, FormatRow, FormatKeplerGLMap:
		return true
	}
	return false
}

// FileHandle is a read-only reference to a user-provided file.
// The loader never mutates it, only reads slices.
type FileHandle interface {
	io.ReaderAt
	Name() string
	Size() int64
}

type fileHandle struct {
	io.ReaderAt
	name string
	size int64
}

func (f fileHandle) Name() string { return f.name }
func (f fileHandle) Size() int64  { return f.size }

// NewFileHandle wraps any io.ReaderAt (a multipart.File, bytes.Reader, ...)
// as a FileHandle.
func NewFileHandle(name string, size int64, r io.ReaderAt) FileHandle {
	return fileHandle{ReaderAt: r, name: name, size: size}
}

// LocalFile is a FileHandle backed by a file on disk.
// Callers must Close it.
type LocalFile struct {
	*os.File
	size int64
}

// OpenFile opens path for ingestion.
func OpenFile(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrUnreadableFile, path, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadableFile, path)
	}
	return &LocalFile{File: f, size: st.Size()}, nil
}

// Name returns the base name, which is what parsers use as a format hint.
func (f *LocalFile) Name() string { return filepath.Base(f.File.Name()) }

// Size returns the file size in bytes at open time.
func (f *LocalFile) Size() int64 { return f.size }

// FileInfo is the metadata attached to a loaded file.
type FileInfo struct {
	ID     string `json:"id,omitempty"`
	Label  string `json:"label"`
	Format Format `json:"format"`
}

// LoadedFile pairs processed data with its metadata.
type LoadedFile struct {
	Data any      `json:"data"`
	Info FileInfo `json:"info"`
}

// FileCache is an ordered, append-only sequence of loaded files.
// It is never mutated in place; Append returns a new slice.
type FileCache []LoadedFile

// Append returns a copy of c with files appended. The receiver's backing
// array is never shared with the result.
func (c FileCache) Append(files ...LoadedFile) FileCache {
	out := make(FileCache, len(c), len(c)+len(files))
	copy(out, c)
	return append(out, files...)
}

// FieldType is the inferred type of a dataset column.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldInteger   FieldType = "integer"
	FieldReal      FieldType = "real"
	FieldBoolean   FieldType = "boolean"
	FieldTimestamp FieldType = "timestamp"
	FieldDate      FieldType = "date"
	FieldGeoJSON   FieldType = "geojson"
	FieldObject    FieldType = "object"
	FieldArray     FieldType = "array"
)

// Field describes one dataset column.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Dataset is the canonical tabular shape produced by format processors.
type Dataset struct {
	Fields []Field `json:"fields"`
	Rows   [][]any `json:"rows"`
}

// MapBundle is a ready-made kepler.gl map: datasets, config and info.
type MapBundle map[string]any

// RowList is a reassembled row stream that carried extra root properties.
// Streams without extra properties reassemble to a plain []any instead.
type RowList struct {
	Rows  []any
	Extra map[string]any
}

// DatasetItem is one entry of the aggregated datasets payload item.
type DatasetItem struct {
	Data any      `json:"data"`
	Info FileInfo `json:"info"`
}

// DataPayloadItem is either a map bundle or the aggregated datasets item.
type DataPayloadItem struct {
	Map      MapBundle
	Datasets []DatasetItem
}

// IsMap reports whether the item is a map bundle.
func (i DataPayloadItem) IsMap() bool { return i.Map != nil }

// MarshalJSON encodes map bundles as the bundle object itself and the
// aggregated item as {"datasets": [...]}.
func (i DataPayloadItem) MarshalJSON() ([]byte, error) {
	if i.Map != nil {
		return json.Marshal(map[string]any(i.Map))
	}
	datasets := i.Datasets
	if datasets == nil {
		datasets = []DatasetItem{}
	}
	return json.Marshal(struct {
		Datasets []DatasetItem `json:"datasets"`
	}{datasets})
}
