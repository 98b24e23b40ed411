package parse

// json.go streams JSON documents as batches.
//
// A top-level array streams its elements. A top-level object streams the
// elements of the first "features" or "datasets" array it meets; every
// other property is decoded whole into the root container, which is
// emitted last when opts.JSON.EmitRootObject is set. The streamed property
// appears in the container as an empty array placeholder.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/mapload/internal/core"
)

type jsonState int

const (
	jsonStart jsonState = iota
	jsonTopArray
	jsonObject
	jsonStreamArray
	jsonFinal
	jsonDone
)

// streamedKeys are the object properties whose arrays are streamed.
var streamedKeys = map[string]bool{"features": true, "datasets": true}

type jsonBatches struct {
	dec       *json.Decoder
	batchSize int
	emitRoot  bool

	state     jsonState
	container map[string]any
	streamKey string
}

func newJSONBatches(r io.Reader, opts core.ParseOptions) *jsonBatches {
	size := opts.CSV.BatchSize
	if size <= 0 {
		size = core.DefaultCSVBatchSize
	}
	return &jsonBatches{
		dec:       json.NewDecoder(r),
		batchSize: size,
		emitRoot:  opts.JSON.EmitRootObject,
	}
}

func (b *jsonBatches) Next(ctx context.Context) (core.Batch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return core.Batch{}, err
		}

		switch b.state {
		case jsonStart:
			tok, err := b.dec.Token()
			if err == io.EOF {
				b.state = jsonDone
				continue
			}
			if err != nil {
				return core.Batch{}, fmt.Errorf("parse json: %w", err)
			}
			switch tok {
			case json.Delim('['):
				b.state = jsonTopArray
				b.container = map[string]any{}
			case json.Delim('{'):
				b.state = jsonObject
				b.container = map[string]any{}
			default:
				// A scalar document has no rows and no container.
				b.state = jsonDone
			}

		case jsonTopArray, jsonStreamArray:
			data, err := b.readElements()
			if err != nil {
				return core.Batch{}, err
			}
			if len(data) > 0 {
				return core.Batch{Kind: core.BatchData, Data: data}, nil
			}
			if _, err := b.dec.Token(); err != nil { // closing ']'
				return core.Batch{}, fmt.Errorf("parse json: %w", unexpectedEOF(err))
			}
			if b.state == jsonTopArray {
				b.state = jsonFinal
			} else {
				b.state = jsonObject
			}

		case jsonObject:
			if err := b.readProperty(); err != nil {
				return core.Batch{}, err
			}

		case jsonFinal:
			b.state = jsonDone
			if b.emitRoot {
				return core.Batch{Kind: core.BatchRootObject, Container: b.container}, nil
			}

		case jsonDone:
			return core.Batch{}, io.EOF
		}
	}
}

// readElements decodes up to batchSize elements of the current array.
func (b *jsonBatches) readElements() ([]any, error) {
	var data []any
	for len(data) < b.batchSize && b.dec.More() {
		var v any
		if err := b.dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("parse json: %w", unexpectedEOF(err))
		}
		data = append(data, v)
	}
	return data, nil
}

// readProperty consumes one key/value pair of the root object, or its
// closing brace.
func (b *jsonBatches) readProperty() error {
	if !b.dec.More() {
		if _, err := b.dec.Token(); err != nil { // closing '}'
			return fmt.Errorf("parse json: %w", unexpectedEOF(err))
		}
		b.state = jsonFinal
		return nil
	}

	tok, err := b.dec.Token()
	if err != nil {
		return fmt.Errorf("parse json: %w", unexpectedEOF(err))
	}
	key, ok := tok.(string)
	if !ok {
		return fmt.Errorf("parse json: unexpected token %v", tok)
	}

	if !streamedKeys[key] || b.streamKey != "" {
		var v any
		if err := b.dec.Decode(&v); err != nil {
			return fmt.Errorf("parse json: property %q: %w", key, unexpectedEOF(err))
		}
		b.container[key] = v
		return nil
	}

	tok, err = b.dec.Token()
	if err != nil {
		return fmt.Errorf("parse json: property %q: %w", key, unexpectedEOF(err))
	}
	switch tok {
	case json.Delim('['):
		b.streamKey = key
		b.container[key] = []any{}
		b.state = jsonStreamArray
	case json.Delim('{'):
		return fmt.Errorf("parse json: property %q must be an array", key)
	default:
		b.container[key] = tok
	}
	return nil
}

// unexpectedEOF reports a document that ends inside an open value. A bare
// io.EOF there would read as a clean end of stream.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
