package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadSettings reads a flat key/value settings file. YAML and JSON (appsettings.json) both parse,
// since JSON is valid YAML. Nested sections are flattened with ":" as the separator.
func loadSettings(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (map[string]string, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	out := make(map[string]string, len(values))
	flatten("", values, out)
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + ":" + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case nil:
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}
