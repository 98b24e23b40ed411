package core

// keplerGLApp is the info.app marker of a kepler.gl map bundle.
const keplerGLApp = "kepler.gl"

// classifyRule matches one format. Rules are evaluated in order and the
// first match wins, so the order below is the priority.
type classifyRule struct {
	format Format
	match  func(content any) bool
}

var classifyRules = []classifyRule{
	{FormatCSV, isRowOfRows},
	{FormatKeplerGLMap, isKeplerGLMap},
	{FormatRow, isRowOfObjects},
	{FormatGeoJSON, isGeoJSON},
}

// Classify returns the format of parsed content by structural inspection
// only. It returns FormatUnrecognized when no rule matches.
func Classify(content any) Format {
	for _, rule := range classifyRules {
		if rule.match(content) {
			return rule.format
		}
	}
	return FormatUnrecognized
}

// firstElement returns the first element of any ordered sequence shape
// the parsers produce.
func firstElement(content any) (any, bool) {
	switch v := content.(type) {
	case []any:
		if len(v) > 0 {
			return v[0], true
		}
	case [][]any:
		if len(v) > 0 {
			return v[0], true
		}
	case [][]string:
		if len(v) > 0 {
			return v[0], true
		}
	case []map[string]any:
		if len(v) > 0 {
			return v[0], true
		}
	case RowList:
		return firstElement(v.Rows)
	case *RowList:
		if v != nil {
			return firstElement(v.Rows)
		}
	}
	return nil, false
}

// asObject returns content as a plain key-value structure.
func asObject(content any) (map[string]any, bool) {
	switch v := content.(type) {
	case map[string]any:
		return v, v != nil
	case MapBundle:
		return v, v != nil
	}
	return nil, false
}

func isRowOfRows(content any) bool {
	first, ok := firstElement(content)
	if !ok {
		return false
	}
	switch first.(type) {
	case []any, []string:
		return true
	}
	return false
}

func isRowOfObjects(content any) bool {
	first, ok := firstElement(content)
	if !ok {
		return false
	}
	_, ok = asObject(first)
	return ok
}

func isKeplerGLMap(content any) bool {
	obj, ok := asObject(content)
	if !ok {
		return false
	}
	if _, ok := obj["datasets"]; !ok {
		return false
	}
	if _, ok := obj["config"]; !ok {
		return false
	}
	info, ok := asObject(obj["info"])
	if !ok {
		return false
	}
	app, _ := info["app"].(string)
	return app == keplerGLApp
}

func isGeoJSON(content any) bool {
	obj, ok := asObject(content)
	if !ok {
		return false
	}
	typ, _ := obj["type"].(string)
	switch typ {
	case "Feature":
		_, ok = obj["geometry"]
	case "FeatureCollection":
		_, ok = obj["features"]
	default:
		ok = false
	}
	return ok
}
