package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cognicore/kafparse/pkg/kafparse/grammar"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// Registry loads each model at most once per process and shares the
// resulting parser between callers.
type Registry struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once   sync.Once
	parser *Parser
	err    error
}

// NewRegistry creates an empty registry. All parsers it loads share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, entries: map[string]*entry{}}
}

// Options returns the options shared by every parser of the registry.
func (r *Registry) Options() Options { return r.opts }

// Resolve maps a language code and model identifier to the language and
// model key actually used. An empty model selects the language default;
// an empty language is taken from a built-in model name. A model file path
// is returned as an absolute path.
func Resolve(lang, model string) (string, string, error) {
	if model == "" {
		l, err := grammar.LookupLanguage(lang)
		if err != nil {
			return "", "", err
		}
		return l.Code, l.Model, nil
	}
	if l, ok := grammar.LookupModel(model); ok {
		if lang != "" && grammar.CanonicalLanguage(lang) != l.Code {
			return "", "", fmt.Errorf("%w: %s is a %s model, not %s", internalerr.ErrUnknownModel, model, l.Code, lang)
		}
		return l.Code, l.Model, nil
	}
	if !isModelFile(model) {
		return "", "", fmt.Errorf("%w: %q", internalerr.ErrUnknownModel, model)
	}
	l, err := grammar.LookupLanguage(lang)
	if err != nil {
		return "", "", err
	}
	abs, err := filepath.Abs(model)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", internalerr.ErrUnknownModel, err)
	}
	return l.Code, abs, nil
}

func isModelFile(model string) bool {
	ext := strings.ToLower(filepath.Ext(model))
	return ext == ".yaml" || ext == ".yml"
}

// Load returns the parser for a language and model identifier, loading the
// model on first use. Failures are configuration errors and are remembered.
func (r *Registry) Load(lang, model string) (*Parser, error) {
	lang, key, err := Resolve(lang, model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.entries[lang+"|"+key]
	if !ok {
		e = &entry{}
		r.entries[lang+"|"+key] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.parser, e.err = r.load(lang, key)
	})
	return e.parser, e.err
}

func (r *Registry) load(lang, key string) (*Parser, error) {
	var (
		m   *grammar.Model
		err error
	)
	if isModelFile(key) {
		m, err = grammar.LoadFile(key)
	} else {
		l, _ := grammar.LookupModel(key)
		m, err = grammar.Builtin(l)
	}
	if err != nil {
		return nil, err
	}
	if m.Language != lang {
		return nil, fmt.Errorf("%w: %s is a %s model, not %s", internalerr.ErrUnknownModel, m.Name, m.Language, lang)
	}
	return New(m, r.opts)
}
