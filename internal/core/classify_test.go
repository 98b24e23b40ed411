package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keplerBundle() map[string]any {
	return map[string]any{
		"datasets": []any{},
		"config":   map[string]any{},
		"info":     map[string]any{"app": "kepler.gl"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    Format
	}{
		{"row of rows", []any{[]any{"a", "b"}, []any{"1", "2"}}, FormatCSV},
		{"string rows", [][]string{{"a"}, {"1"}}, FormatCSV},
		{"row list of rows", RowList{Rows: []any{[]any{"a"}}, Extra: map[string]any{"crs": "x"}}, FormatCSV},
		{"row of objects", []any{map[string]any{"a": 1.0}}, FormatRow},
		{"typed row of objects", []map[string]any{{"a": 1.0}}, FormatRow},
		{"row list of objects", &RowList{Rows: []any{map[string]any{"a": 1.0}}}, FormatRow},
		{"kepler map", keplerBundle(), FormatKeplerGLMap},
		{"map bundle type", MapBundle(keplerBundle()), FormatKeplerGLMap},
		{"feature collection", map[string]any{"type": "FeatureCollection", "features": []any{}}, FormatGeoJSON},
		{"feature", map[string]any{"type": "Feature", "geometry": nil}, FormatGeoJSON},
		{"empty array", []any{}, FormatUnrecognized},
		{"scalar array", []any{1.0, 2.0}, FormatUnrecognized},
		{"nil", nil, FormatUnrecognized},
		{"string", "a,b,c", FormatUnrecognized},
		{"plain object", map[string]any{"a": 1.0}, FormatUnrecognized},
		{"wrong app", map[string]any{"datasets": []any{}, "config": map[string]any{}, "info": map[string]any{"app": "other"}}, FormatUnrecognized},
		{"feature collection without features", map[string]any{"type": "FeatureCollection"}, FormatUnrecognized},
		{"geometry type", map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}}, FormatUnrecognized},
		{"nil row list", (*RowList)(nil), FormatUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.content))
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	// A kepler.gl bundle that also looks like a feature collection is a map.
	both := keplerBundle()
	both["type"] = "FeatureCollection"
	both["features"] = []any{}
	assert.Equal(t, FormatKeplerGLMap, Classify(both))

	// Only the first element decides between row shapes.
	mixed := []any{[]any{"a"}, map[string]any{"a": 1.0}}
	assert.Equal(t, FormatCSV, Classify(mixed))
	mixed = []any{map[string]any{"a": 1.0}, []any{"a"}}
	assert.Equal(t, FormatRow, Classify(mixed))
}

func TestClassify_Idempotent(t *testing.T) {
	content := []any{map[string]any{"a": 1.0}}
	first := Classify(content)
	assert.Equal(t, first, Classify(content))
	assert.Equal(t, []any{map[string]any{"a": 1.0}}, content, "classification must not modify content")
}

func TestFormat_Recognized(t *testing.T) {
	assert.False(t, FormatUnrecognized.Recognized())
	for _, f := range []Format{FormatCSV, FormatGeoJSON, FormatRow, FormatKeplerGLMap} {
		assert.True(t, f.Recognized(), f)
	}
}
