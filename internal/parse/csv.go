package parse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/mapload/internal/core"
)

func newCSVReader(r io.Reader, k kind) *csv.Reader {
	cr := csv.NewReader(r)
	if k == kindTSV {
		cr.Comma = '\t'
	}
	// Width is checked by the csv processor, not here.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// csvRecord converts a record to the shape the classifier expects: a row
// array, or an object keyed by header when headers are on.
func csvRecord(record, header []string) any {
	if header == nil {
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		return row
	}
	obj := make(map[string]any, len(header))
	for i, h := range header {
		if i < len(record) {
			obj[h] = record[i]
		} else {
			obj[h] = nil
		}
	}
	return obj
}

func readAllCSV(r *csv.Reader, opts core.CSVOptions) (any, error) {
	var header []string
	rows := []any{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if opts.Header && header == nil {
			header = record
			continue
		}
		rows = append(rows, csvRecord(record, header))
	}
}

// csvBatches streams CSV records in batches of opts.BatchSize rows.
// CSV streams carry no root properties, so no root object batch is emitted.
type csvBatches struct {
	r         *csv.Reader
	header    []string
	useHeader bool
	batchSize int
	done      bool
}

func newCSVBatches(r *csv.Reader, opts core.CSVOptions) *csvBatches {
	size := opts.BatchSize
	if size <= 0 {
		size = core.DefaultCSVBatchSize
	}
	return &csvBatches{r: r, useHeader: opts.Header, batchSize: size}
}

func (b *csvBatches) Next(ctx context.Context) (core.Batch, error) {
	if b.done {
		return core.Batch{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return core.Batch{}, err
	}

	data := make([]any, 0, b.batchSize)
	for len(data) < b.batchSize {
		record, err := b.r.Read()
		if errors.Is(err, io.EOF) {
			b.done = true
			break
		}
		if err != nil {
			return core.Batch{}, fmt.Errorf("parse csv: %w", err)
		}
		if b.useHeader && b.header == nil {
			b.header = record
			continue
		}
		data = append(data, csvRecord(record, b.header))
	}

	if len(data) == 0 {
		return core.Batch{}, io.EOF
	}
	return core.Batch{Kind: core.BatchData, Data: data}, nil
}
