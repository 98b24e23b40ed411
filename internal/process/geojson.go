package process

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/JonMunkholm/mapload/internal/core"
)

// geojsonField is the column holding each feature.
const geojsonField = "_geojson"

// GeoJSON turns a Feature or FeatureCollection into a dataset with one row
// per feature: the feature itself, then one column per property key.
// Features without geometry are dropped.
func GeoJSON(content any) (any, error) {
	fc, err := toFeatureCollection(content)
	if err != nil {
		return nil, err
	}

	features := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			features = append(features, f)
		}
	}

	props := make([]map[string]any, len(features))
	for i, f := range features {
		props[i] = map[string]any(f.Properties)
	}
	keys := unionKeys(props)

	fields := make([]core.Field, 0, len(keys)+1)
	fields = append(fields, core.Field{Name: geojsonField, Type: core.FieldGeoJSON})
	for _, k := range keys {
		fields = append(fields, core.Field{Name: k, Type: objectColumnType(props, k)})
	}

	rows := make([][]any, len(features))
	for i, f := range features {
		row := make([]any, 0, len(fields))
		row = append(row, f)
		for _, k := range keys {
			row = append(row, f.Properties[k])
		}
		rows[i] = row
	}
	return core.Dataset{Fields: fields, Rows: rows}, nil
}

// toFeatureCollection validates content with orb by round-tripping it
// through its JSON form. A single Feature becomes a one-feature collection.
func toFeatureCollection(content any) (*geojson.FeatureCollection, error) {
	obj, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected geojson object, got %T", content)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}

	switch obj["type"] {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid feature collection: %w", err)
		}
		return fc, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid feature: %w", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	}
	return nil, fmt.Errorf("unsupported geojson type %v", obj["type"])
}
