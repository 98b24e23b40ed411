package process

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/mapload/internal/core"
)

// Rows turns a list of row objects into a dataset. Columns are the union
// of keys across all rows, sorted; missing keys become nil.
func Rows(content any) (any, error) {
	objects, err := objectRows(content)
	if err != nil {
		return nil, err
	}

	keys := unionKeys(objects)
	fields := make([]core.Field, len(keys))
	for i, k := range keys {
		fields[i] = core.Field{Name: k, Type: objectColumnType(objects, k)}
	}

	out := make([][]any, len(objects))
	for r, obj := range objects {
		values := make([]any, len(keys))
		for c, k := range keys {
			values[c] = obj[k]
		}
		out[r] = values
	}
	return core.Dataset{Fields: fields, Rows: out}, nil
}

func objectRows(content any) ([]map[string]any, error) {
	switch v := content.(type) {
	case []map[string]any:
		return v, nil
	case core.RowList:
		return objectRows(v.Rows)
	case []any:
		objects := make([]map[string]any, 0, len(v))
		for i, r := range v {
			obj, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is %T, not an object", i, r)
			}
			objects = append(objects, obj)
		}
		return objects, nil
	}
	return nil, fmt.Errorf("expected row objects, got %T", content)
}

func unionKeys(objects []map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func objectColumnType(objects []map[string]any, key string) core.FieldType {
	var samples []any
	for _, obj := range objects {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		samples = append(samples, v)
		if len(samples) == maxTypeSamples {
			break
		}
	}
	return inferValueType(samples)
}
