package core

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DatasetIDLength is the length of generated dataset ids.
const DatasetIDLength = 4

// FilesToDataPayload partitions loaded files into map bundles and plain
// datasets. The result holds every map bundle in encounter order followed
// by exactly one aggregated datasets item, which may be empty.
// Unrecognized entries are dropped.
func FilesToDataPayload(cache FileCache) []DataPayloadItem {
	used := make(map[string]bool)
	for _, f := range cache {
		if f.Info.Format.Recognized() && f.Info.Format != FormatKeplerGLMap && f.Info.ID != "" {
			used[f.Info.ID] = true
		}
	}

	var (
		maps     []DataPayloadItem
		datasets = []DatasetItem{}
		assigned = make(map[string]bool)
	)
	for _, f := range cache {
		switch {
		case f.Info.Format == FormatKeplerGLMap:
			bundle, ok := asObject(f.Data)
			if !ok {
				continue
			}
			maps = append(maps, DataPayloadItem{Map: centeredBundle(bundle)})

		case f.Info.Format.Recognized():
			info := f.Info
			if info.ID == "" || assigned[info.ID] {
				info.ID = uniqueHashID(used)
			}
			assigned[info.ID] = true
			datasets = append(datasets, DatasetItem{Data: f.Data, Info: info})
		}
	}

	return append(maps, DataPayloadItem{Datasets: datasets})
}

// centeredBundle copies bundle and sets options.centerMap, which is false
// only when the bundle already carries a camera in config.mapState.
func centeredBundle(bundle map[string]any) MapBundle {
	out := make(MapBundle, len(bundle)+1)
	for k, v := range bundle {
		out[k] = v
	}

	hasMapState := false
	if cfg, ok := asObject(bundle["config"]); ok {
		hasMapState = cfg["mapState"] != nil
	}
	out["options"] = map[string]any{"centerMap": !hasMapState}
	return out
}

// uniqueHashID generates ids until one is not in used, then reserves it.
func uniqueHashID(used map[string]bool) string {
	for {
		id := GenerateHashID(DatasetIDLength)
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

// GenerateHashID returns n random lowercase base-36 characters.
func GenerateHashID(n int) string {
	var b strings.Builder
	for b.Len() < n {
		u := uuid.New()
		b.WriteString(strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36))
	}
	return b.String()[:n]
}
