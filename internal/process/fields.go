// Package process turns classified content into canonical datasets.
//
// There is one processor per format. Each is a pure function suitable for
// core.Registry:
//
//	registry := process.Defaults()
//	p, _ := registry.Get(core.FormatCSV)
//	dataset, err := p(rows)
package process

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/mapload/internal/core"
)

// Defaults returns a registry holding the processor of every format.
func Defaults() *core.Registry {
	r := core.NewRegistry()
	r.Register(core.FormatCSV, CSV)
	r.Register(core.FormatRow, Rows)
	r.Register(core.FormatGeoJSON, GeoJSON)
	r.Register(core.FormatKeplerGLMap, KeplerGL)
	return r
}

// Date layouts recognized by type inference.
var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/01/02 15:04:05",
	}
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
	}
)

// maxTypeSamples bounds how many non-empty values are inspected per column.
const maxTypeSamples = 1000

// inferStringType returns the narrowest type every sample satisfies.
func inferStringType(samples []string) core.FieldType {
	if len(samples) == 0 {
		return core.FieldString
	}
	candidates := []struct {
		typ core.FieldType
		ok  func(string) bool
	}{
		{core.FieldBoolean, isBool},
		{core.FieldInteger, isInteger},
		{core.FieldReal, isReal},
		{core.FieldDate, isDate},
		{core.FieldTimestamp, isTimestamp},
	}
	for _, c := range candidates {
		all := true
		for _, s := range samples {
			if !c.ok(s) {
				all = false
				break
			}
		}
		if all {
			return c.typ
		}
	}
	return core.FieldString
}

// inferValueType types decoded JSON values.
func inferValueType(samples []any) core.FieldType {
	var typ core.FieldType
	for _, v := range samples {
		t := valueType(v)
		switch {
		case typ == "":
			typ = t
		case typ == t:
		case typ == core.FieldInteger && t == core.FieldReal,
			typ == core.FieldReal && t == core.FieldInteger:
			typ = core.FieldReal
		default:
			return core.FieldString
		}
	}
	if typ == "" {
		return core.FieldString
	}
	return typ
}

func valueType(v any) core.FieldType {
	switch x := v.(type) {
	case bool:
		return core.FieldBoolean
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return core.FieldInteger
		}
		return core.FieldReal
	case int, int64:
		return core.FieldInteger
	case string:
		return inferStringType([]string{x})
	case map[string]any:
		return core.FieldObject
	case []any:
		return core.FieldArray
	}
	return core.FieldString
}

// convertString converts a cell to the Go value of its column type.
// Empty cells become nil.
func convertString(s string, typ core.FieldType) any {
	if s == "" {
		return nil
	}
	switch typ {
	case core.FieldInteger:
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	case core.FieldReal:
		if f, ok := parseFinite(s); ok {
			return f
		}
	case core.FieldBoolean:
		if b, ok := parseBool(s); ok {
			return b
		}
	}
	return s
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

func isBool(s string) bool {
	_, ok := parseBool(s)
	return ok
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func isReal(s string) bool {
	_, ok := parseFinite(s)
	return ok
}

// parseFinite parses a float, rejecting NaN and infinities, which JSON
// cannot carry.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isDate(s string) bool {
	return matchesLayout(s, dateLayouts)
}

func isTimestamp(s string) bool {
	return matchesLayout(s, timestampLayouts)
}

func matchesLayout(s string, layouts []string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
