// Package config holds the processing configuration shared by the CLI, the
// HTTP service and the pipeline.
package config

import (
	"fmt"

	"github.com/cognicore/kafparse/pkg/kafparse/heads"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/parser"
	"github.com/cognicore/kafparse/pkg/kafparse/printer"
)

// Config is one processing configuration. It is built once at startup and
// passed by value; nothing in the pipeline mutates it.
type Config struct {
	// Language is an ISO code. Empty means "use the document's language".
	Language string `yaml:"language"`
	// Model is a built-in model name or a path to a YAML model file. Empty
	// selects the language default.
	Model string `yaml:"model"`
	// Format is the tree notation for plain text output.
	Format string `yaml:"format"`
	// KAF requests the input document back with a constituency layer
	// instead of tree text.
	KAF bool `yaml:"kaf"`
	// MarkHeads decorates head children with "=H".
	MarkHeads bool `yaml:"mark_heads"`
	// HeadPolicy picks the head finder (collins or sem); empty means the
	// language default.
	HeadPolicy string `yaml:"heads"`
	// FailFast aborts the whole document on the first sentence failure
	// instead of skipping the sentence.
	FailFast bool `yaml:"fail_fast"`
	// Workers bounds the number of sentences parsed concurrently.
	Workers int `yaml:"workers"`
	// MaxLength is the longest sentence that gets a chart parse; -1
	// disables the bound.
	MaxLength int `yaml:"max_length"`
	// Cache is the path of a SQLite parse cache; empty disables it.
	Cache string `yaml:"cache"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Format:    string(printer.OneLine),
		Workers:   1,
		MaxLength: parser.DefaultMaxLength,
	}
}

// Validate checks the values that can be checked before the input document
// is read.
func (c Config) Validate() error {
	format, err := printer.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	if c.KAF && format == printer.Penn {
		return fmt.Errorf("%w: KAF output and the %s format are mutually exclusive", internalerr.ErrInvalidConfig, format)
	}
	if _, err := heads.ParsePolicy(c.HeadPolicy); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", internalerr.ErrInvalidConfig, c.Workers)
	}
	if c.MaxLength < -1 || c.MaxLength == 0 {
		return fmt.Errorf("%w: max length must be positive or -1, got %d", internalerr.ErrInvalidConfig, c.MaxLength)
	}
	return nil
}

// Resolve fills the language from the document when none was configured.
// Head marking without any language is a configuration error.
func (c Config) Resolve(docLang string) (Config, error) {
	if c.Language == "" {
		c.Language = docLang
	}
	if c.Language == "" && c.MarkHeads {
		return c, fmt.Errorf("%w: head marking needs a language (set one or use a document with xml:lang)", internalerr.ErrInvalidConfig)
	}
	return c, nil
}
