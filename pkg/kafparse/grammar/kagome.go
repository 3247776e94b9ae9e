package grammar

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KagomeTagger tags Japanese words with the IPA dictionary morphological
// analyser. The model's posmap translates IPA part-of-speech features into
// grammar tags, trying the two-level feature ("名詞,数") before the top
// level ("名詞"). Lexicon entries take precedence.
type KagomeTagger struct {
	model *Model
	tok   *tokenizer.Tokenizer
}

// NewKagomeTagger loads the IPA dictionary. This is expensive and should be
// done once per process.
func NewKagomeTagger(m *Model) (*KagomeTagger, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeTagger{model: m, tok: t}, nil
}

// Tag implements Tagger.
func (k *KagomeTagger) Tag(forms []string) [][]TagScore {
	out := make([][]TagScore, len(forms))
	for i, f := range forms {
		if tags, ok := k.model.Lookup(f); ok {
			out[i] = tags
			continue
		}
		if tag, ok := k.tagMorpheme(f); ok {
			out[i] = []TagScore{{Tag: tag, Score: 0}}
			continue
		}
		out[i] = k.model.Signature(f)
	}
	return out
}

// tagMorpheme maps the part of speech of the word's first morpheme. Words
// handed in are already segmented, so the first morpheme carries the
// category (a verb stem before its auxiliaries, a noun before a suffix).
func (k *KagomeTagger) tagMorpheme(form string) (string, bool) {
	morphs := k.tok.Tokenize(form)
	if len(morphs) == 0 {
		return "", false
	}
	pos := morphs[0].POS()
	if len(pos) == 0 {
		return "", false
	}
	if len(pos) > 1 {
		if tag, ok := k.model.PosMap[strings.Join(pos[:2], ",")]; ok {
			return tag, true
		}
	}
	tag, ok := k.model.PosMap[pos[0]]
	return tag, ok
}
