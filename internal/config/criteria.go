package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"leangraph/internal/index"
)

// LoadCriteria reads YAML prune criteria from path. An empty path
// yields empty criteria, so the variable can stay unset.
func LoadCriteria(path string) (index.Criteria, error) {
	if path == "" {
		return index.Criteria{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Criteria{}, fmt.Errorf("read criteria file: %w", err)
	}
	var c index.Criteria
	if err := yaml.Unmarshal(data, &c); err != nil {
		return index.Criteria{}, fmt.Errorf("parse criteria file %s: %w", path, err)
	}
	return c, nil
}
