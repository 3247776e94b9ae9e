package grammar

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

//go:embed models/*.yaml
var modelFS embed.FS

// Language is one supported language profile. Adding a language means adding
// a row here and a model file; no control flow changes.
type Language struct {
	Code  string
	Model string
	File  string
}

var languages = map[string]Language{
	"en": {Code: "en", Model: "englishPCFG", File: "models/en.yaml"},
	"de": {Code: "de", Model: "germanPCFG", File: "models/de.yaml"},
	"ja": {Code: "ja", Model: "japanesePCFG", File: "models/ja.yaml"},
}

// Languages returns the supported profiles sorted by code.
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CanonicalLanguage reduces a language tag such as "EN" or "de-AT" to the
// lowercase primary subtag used as a profile key.
func CanonicalLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// LookupLanguage returns the profile for a language tag. Case and region
// subtags are ignored.
func LookupLanguage(code string) (Language, error) {
	l, ok := languages[CanonicalLanguage(code)]
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", internalerr.ErrUnknownLanguage, code)
	}
	return l, nil
}

// LookupModel returns the profile owning a built-in model name.
func LookupModel(name string) (Language, bool) {
	for _, l := range languages {
		if l.Model == name {
			return l, true
		}
	}
	return Language{}, false
}

// Builtin compiles the embedded model of a language profile.
func Builtin(l Language) (*Model, error) {
	data, err := modelFS.ReadFile(l.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrUnknownModel, l.Model, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Model, err)
	}
	return m, nil
}
