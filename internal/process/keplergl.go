package process

import (
	"fmt"

	"github.com/JonMunkholm/mapload/internal/core"
)

// KeplerGL checks a kepler.gl map bundle and returns it as a MapBundle.
// The bundle is copied; nested values are shared.
func KeplerGL(content any) (any, error) {
	obj, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected map bundle object, got %T", content)
	}
	if _, ok := obj["datasets"].([]any); !ok {
		return nil, fmt.Errorf("map bundle datasets must be an array, got %T", obj["datasets"])
	}
	if _, ok := obj["config"].(map[string]any); !ok {
		return nil, fmt.Errorf("map bundle config must be an object, got %T", obj["config"])
	}
	if _, ok := obj["info"].(map[string]any); !ok {
		return nil, fmt.Errorf("map bundle info must be an object, got %T", obj["info"])
	}

	bundle := make(core.MapBundle, len(obj))
	for k, v := range obj {
		bundle[k] = v
	}
	return bundle, nil
}
