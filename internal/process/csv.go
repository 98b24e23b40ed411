package process

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/mapload/internal/core"
)

var errNoHeader = errors.New("csv has no header row")

// CSV turns a row-of-rows into a dataset. The first row is the header;
// blank header names become column_N. Short rows are padded with nil and
// long rows are truncated to the header width.
func CSV(content any) (any, error) {
	rows, err := stringRows(content)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoHeader
	}

	header := rows[0]
	body := rows[1:]

	fields := make([]core.Field, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		name = uniqueName(name, seen)
		seen[name] = true
		fields[i] = core.Field{Name: name, Type: columnType(body, i)}
	}

	out := make([][]any, len(body))
	for r, row := range body {
		values := make([]any, len(fields))
		for c, f := range fields {
			if c < len(row) {
				values[c] = convertString(row[c], f.Type)
			}
		}
		out[r] = values
	}

	return core.Dataset{Fields: fields, Rows: out}, nil
}

// uniqueName returns name, or name_N with the smallest N not yet seen.
func uniqueName(name string, seen map[string]bool) string {
	if !seen[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !seen[candidate] {
			return candidate
		}
	}
}

func columnType(rows [][]string, col int) core.FieldType {
	var samples []string
	for _, row := range rows {
		if col >= len(row) || row[col] == "" {
			continue
		}
		samples = append(samples, row[col])
		if len(samples) == maxTypeSamples {
			break
		}
	}
	return inferStringType(samples)
}

// stringRows normalizes the row-of-rows shapes the parser produces.
func stringRows(content any) ([][]string, error) {
	switch v := content.(type) {
	case [][]string:
		return v, nil
	case core.RowList:
		return stringRows(v.Rows)
	case []any:
		rows := make([][]string, len(v))
		for i, r := range v {
			cells, ok := r.([]any)
			if !ok {
				if s, ok := r.([]string); ok {
					rows[i] = s
					continue
				}
				return nil, fmt.Errorf("row %d is %T, not a row array", i, r)
			}
			row := make([]string, len(cells))
			for j, c := range cells {
				switch x := c.(type) {
				case nil:
				case string:
					row[j] = x
				default:
					row[j] = fmt.Sprint(x)
				}
			}
			rows[i] = row
		}
		return rows, nil
	}
	return nil, fmt.Errorf("expected row arrays, got %T", content)
}
