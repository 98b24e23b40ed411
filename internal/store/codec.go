package store

import (
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/mapload/internal/core"
)

// storedFile is the persisted form of a core.LoadedFile. Exactly one of
// Dataset or Map is set, chosen by Info.Format.
type storedFile struct {
	Info    core.FileInfo  `json:"info"`
	Dataset *core.Dataset  `json:"dataset,omitempty"`
	Map     core.MapBundle `json:"map,omitempty"`
}

// encodeCache serializes a cache for storage. Geometry values inside
// datasets are stored in their JSON form.
func encodeCache(cache core.FileCache) ([]byte, error) {
	files := make([]storedFile, 0, len(cache))
	for i, f := range cache {
		sf := storedFile{Info: f.Info}
		switch data := f.Data.(type) {
		case core.Dataset:
			sf.Dataset = &data
		case core.MapBundle:
			sf.Map = data
		default:
			return nil, fmt.Errorf("file %d (%s): cannot store %T", i, f.Info.Label, f.Data)
		}
		files = append(files, sf)
	}
	return json.Marshal(files)
}

func decodeCache(raw []byte) (core.FileCache, error) {
	var files []storedFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("decode session files: %w", err)
	}

	cache := make(core.FileCache, 0, len(files))
	for _, sf := range files {
		f := core.LoadedFile{Info: sf.Info}
		switch {
		case sf.Info.Format == core.FormatKeplerGLMap:
			f.Data = sf.Map
		case sf.Dataset != nil:
			f.Data = *sf.Dataset
		default:
			return nil, fmt.Errorf("stored file %q has no data", sf.Info.Label)
		}
		cache = append(cache, f)
	}
	return cache, nil
}
