package core_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mapload/internal/core"
	"github.com/JonMunkholm/mapload/internal/parse"
	"github.com/JonMunkholm/mapload/internal/process"
)

func newLoader(t *testing.T, threshold int64) *core.Loader {
	t.Helper()
	l, err := core.NewLoader(core.LoaderOptions{
		Parser:          parse.New(),
		Processors:      process.Defaults(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		StreamThreshold: threshold,
		ChunkSize:       7,
		CSVBatchSize:    2,
	})
	require.NoError(t, err)
	return l
}

func file(name, content string) core.FileHandle {
	return core.NewFileHandle(name, int64(len(content)), strings.NewReader(content))
}

const (
	pointsCSV = "\xEF\xBB\xBFname,lat,lng,visited\n" +
		"Oslo,59.91,10.75,true\n" +
		"Bergen,60.39,5.32,false\n" +
		"\"Troms\xC3\xB8, north\",69.65,18.96,true\n"

	roadsGeoJSON = `{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": "EPSG:4326"}},
		"features": [
			{"type": "Feature", "properties": {"name": "E6"}, "geometry": {"type": "LineString", "coordinates": [[10.7, 59.9], [10.8, 60.1]]}},
			{"type": "Feature", "properties": {"name": "E18"}, "geometry": {"type": "Point", "coordinates": [10.2, 59.7]}},
			{"type": "Feature", "properties": {"name": "E39"}, "geometry": {"type": "Point", "coordinates": [5.3, 60.4]}}
		]
	}`

	keplerMap = `{
		"datasets": [
			{"version": "v1", "data": {"id": "a1", "label": "one", "allData": [[1]], "fields": [{"name": "x"}]}},
			{"version": "v1", "data": {"id": "b2", "label": "two", "allData": [[2]], "fields": [{"name": "y"}]}}
		],
		"config": {"version": "v1", "config": {"mapState": {"zoom": 5}}},
		"info": {"app": "kepler.gl", "created_at": "2024-01-01"}
	}`

	pointFeature = `{
		"type": "Feature",
		"properties": {"name": "Oslo", "rank": 1},
		"geometry": {"type": "Point", "coordinates": [10.75, 59.91]}
	}`

	rowsJSON = `[
		{"city": "Oslo", "population": 709037},
		{"city": "Bergen", "population": 291189},
		{"city": "Trondheim", "population": 212660, "coastal": true}
	]`
)

func TestLoader_WholeAndStreamingAgree(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		body   string
		format core.Format
	}{
		{"csv", "points.csv", pointsCSV, core.FormatCSV},
		{"geojson", "roads.geojson", roadsGeoJSON, core.FormatGeoJSON},
		{"single feature", "oslo.geojson", pointFeature, core.FormatGeoJSON},
		{"kepler map", "trip.json", keplerMap, core.FormatKeplerGLMap},
		{"row objects", "cities.json", rowsJSON, core.FormatRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			whole, err := newLoader(t, 1<<30).ReadFile(ctx, file(tt.file, tt.body), nil)
			require.NoError(t, err)
			streamed, err := newLoader(t, 1).ReadFile(ctx, file(tt.file, tt.body), nil)
			require.NoError(t, err)

			require.Len(t, whole, 1)
			require.Len(t, streamed, 1)
			assert.Equal(t, tt.format, whole[0].Info.Format)
			assert.Equal(t, whole[0], streamed[0])
		})
	}
}

func TestLoader_CSVDataset(t *testing.T) {
	cache, err := newLoader(t, 1).ReadFile(context.Background(), file("points.csv", pointsCSV), nil)
	require.NoError(t, err)

	ds, ok := cache[0].Data.(core.Dataset)
	require.True(t, ok)
	assert.Equal(t, []core.Field{
		{Name: "name", Type: core.FieldString},
		{Name: "lat", Type: core.FieldReal},
		{Name: "lng", Type: core.FieldReal},
		{Name: "visited", Type: core.FieldBoolean},
	}, ds.Fields)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "Tromsø, north", ds.Rows[2][0])
}

func TestLoader_GeoJSONKeepsEveryFeature(t *testing.T) {
	cache, err := newLoader(t, 1).ReadFile(context.Background(), file("roads.geojson", roadsGeoJSON), nil)
	require.NoError(t, err)

	ds, ok := cache[0].Data.(core.Dataset)
	require.True(t, ok)
	assert.Len(t, ds.Rows, 3)
	assert.Equal(t, "_geojson", ds.Fields[0].Name)
}

func TestLoader_UnrecognizedBlobAndCSV(t *testing.T) {
	l := newLoader(t, core.DefaultStreamThreshold)

	cache, results := l.ReadFiles(context.Background(), []core.FileHandle{
		file("blob", "\x00\x01\x02\x03\xFF\xFE"),
		file("points.csv", pointsCSV),
	}, core.FileCache{})

	require.Len(t, results, 2)
	assert.Contains(t, results[0].Warning, "could not parse file blob")
	assert.NoError(t, results[0].Err)
	assert.True(t, results[1].Loaded())

	require.Len(t, cache, 1)
	assert.Equal(t, "points.csv", cache[0].Info.Label)

	payload := core.FilesToDataPayload(cache)
	require.Len(t, payload, 1)
	require.Len(t, payload[0].Datasets, 1)
	assert.Len(t, payload[0].Datasets[0].Info.ID, core.DatasetIDLength)
}
