package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tagger proposes part-of-speech tags for each word of a sentence.
type Tagger interface {
	Tag(forms []string) [][]TagScore
}

// LexiconTagger tags from the model lexicon, falling back to unknown-word
// signatures.
type LexiconTagger struct {
	model *Model
}

// NewLexiconTagger creates a tagger backed by the model's own lexicon.
func NewLexiconTagger(m *Model) *LexiconTagger {
	return &LexiconTagger{model: m}
}

// Tag implements Tagger.
func (t *LexiconTagger) Tag(forms []string) [][]TagScore {
	out := make([][]TagScore, len(forms))
	for i, f := range forms {
		out[i] = t.model.TagWord(f)
	}
	return out
}

// TagWord returns the tag distribution of a single word: the lexicon entry
// for the exact or lowercased form, otherwise the best matching signature.
func (m *Model) TagWord(form string) []TagScore {
	if tags, ok := m.lexicon[form]; ok {
		return tags
	}
	if lower := strings.ToLower(form); lower != form {
		if tags, ok := m.lexicon[lower]; ok {
			return tags
		}
	}
	return m.Signature(form)
}

// Signature classifies an unknown word by its shape and suffix.
func (m *Model) Signature(form string) []TagScore {
	u := m.unknown
	switch {
	case len(u.numeric) > 0 && isNumeric(form):
		return u.numeric
	case len(u.capitalized) > 0 && isCapitalized(form):
		return u.capitalized
	case len(u.hyphenated) > 0 && strings.Contains(strings.Trim(form, "-"), "-"):
		return u.hyphenated
	}
	lower := strings.ToLower(form)
	for _, suffix := range m.suffixes {
		if len(lower) > len(suffix) && strings.HasSuffix(lower, suffix) {
			return u.suffixes[suffix]
		}
	}
	return u.def
}

func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(".,-/:%+", r):
		default:
			return false
		}
	}
	return digits > 0
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
