package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// Load reads a YAML configuration file over the defaults. Keys missing from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	if cfg.HeadPolicy != "" {
		cfg.MarkHeads = true
	}
	return cfg, nil
}
