package core

// batch.go folds the parser's batch stream back into one document.
//
// Data batches append records to a buffer in arrival order. The terminal
// root-object batch carries the document's top-level properties and decides
// the final shape with a three-way branch:
//
//   - container has "features": {features: buffer, ...rest}
//   - container has "datasets": {datasets: buffer, ...rest}
//   - otherwise: the buffer itself, plus any non-array properties as extras
//
// The third branch is a heuristic. A container holding both "features" and
// "datasets" takes the first branch. An object that streamed nothing (a
// single GeoJSON Feature, say) arrives as an empty buffer plus a container
// holding every property, and folds back to the container itself.

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// BatchKind distinguishes data batches from the terminal root object.
type BatchKind int

const (
	BatchData BatchKind = iota
	BatchRootObject
)

func (k BatchKind) String() string {
	switch k {
	case BatchData:
		return "data"
	case BatchRootObject:
		return "root-object"
	}
	return fmt.Sprintf("BatchKind(%d)", int(k))
}

// Batch is one unit of streamed parse output.
type Batch struct {
	Kind BatchKind

	// Data holds the records of a BatchData batch.
	Data []any

	// Container holds the top-level properties of a BatchRootObject batch.
	// Streamed array properties appear with placeholder values.
	Container map[string]any
}

// BatchIterator is a pull-based batch stream. Next returns io.EOF at the end.
type BatchIterator interface {
	Next(ctx context.Context) (Batch, error)
}

// Reassemble drains it and returns the reassembled content.
func Reassemble(ctx context.Context, it BatchIterator) (any, error) {
	buffer := []any{}
	var (
		result   any
		terminal bool
	)

	for {
		batch, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch batch.Kind {
		case BatchData:
			if terminal {
				return nil, fmt.Errorf("%w: data batch after root object", ErrUnparseableContent)
			}
			buffer = append(buffer, batch.Data...)
		case BatchRootObject:
			if terminal {
				return nil, fmt.Errorf("%w: duplicate root object batch", ErrUnparseableContent)
			}
			terminal = true
			result = foldRootObject(buffer, batch.Container)
		default:
			return nil, fmt.Errorf("%w: unknown batch kind %v", ErrUnparseableContent, batch.Kind)
		}
	}

	if !terminal {
		return buffer, nil
	}
	return result, nil
}

func foldRootObject(buffer []any, container map[string]any) any {
	if _, ok := container["features"]; ok {
		return withArrayProperty("features", buffer, container)
	}
	if _, ok := container["datasets"]; ok {
		return withArrayProperty("datasets", buffer, container)
	}

	if len(buffer) == 0 && len(container) > 0 {
		return container
	}

	var extra map[string]any
	for k, v := range container {
		if _, isArray := v.([]any); isArray {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	if extra == nil {
		return buffer
	}
	return RowList{Rows: buffer, Extra: extra}
}

func withArrayProperty(key string, buffer []any, container map[string]any) map[string]any {
	out := make(map[string]any, len(container))
	for k, v := range container {
		if k == "features" || k == "datasets" {
			continue
		}
		out[k] = v
	}
	out[key] = buffer
	return out
}
