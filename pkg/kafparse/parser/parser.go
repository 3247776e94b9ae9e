// Package parser turns token sequences into constituent trees with a
// probabilistic CKY parser over a compiled grammar model.
package parser

import (
	"fmt"
	"math"

	"github.com/cognicore/kafparse/pkg/kafparse/grammar"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/kaf"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// DefaultMaxLength is the longest sentence that gets a full chart parse.
const DefaultMaxLength = 80

// Options tunes a Parser.
type Options struct {
	// MaxLength bounds the sentence length for chart parsing. Longer
	// sentences get a flat fragment tree. Zero means DefaultMaxLength,
	// a negative value disables the bound.
	MaxLength int
}

func (o Options) maxLength() int {
	if o.MaxLength == 0 {
		return DefaultMaxLength
	}
	return o.MaxLength
}

// Limit returns the effective length bound, or -1 when there is none.
func (o Options) Limit() int {
	if n := o.maxLength(); n > 0 {
		return n
	}
	return -1
}

// Parser is safe for concurrent use; each Parse call owns its chart.
type Parser struct {
	model  *grammar.Model
	tagger grammar.Tagger
	opts   Options

	start, fallback int
}

// New creates a parser for a compiled model, choosing the tagger the model
// asks for.
func New(m *grammar.Model, opts Options) (*Parser, error) {
	var tagger grammar.Tagger
	switch m.Tagger {
	case "lexicon":
		tagger = grammar.NewLexiconTagger(m)
	case "kagome":
		k, err := grammar.NewKagomeTagger(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: kagome tagger: %v", internalerr.ErrUnknownModel, m.Name, err)
		}
		tagger = k
	default:
		return nil, fmt.Errorf("%w: %s: unknown tagger %q", internalerr.ErrUnknownModel, m.Name, m.Tagger)
	}
	return NewWithTagger(m, tagger, opts), nil
}

// NewWithTagger creates a parser with an explicit tagger.
func NewWithTagger(m *grammar.Model, tagger grammar.Tagger, opts Options) *Parser {
	start, _ := m.SymbolID(m.Start)
	fallback, _ := m.SymbolID(m.Fallback)
	return &Parser{model: m, tagger: tagger, opts: opts, start: start, fallback: fallback}
}

// Model returns the grammar the parser runs on.
func (p *Parser) Model() *grammar.Model { return p.model }

// Options returns the options the parser was created with.
func (p *Parser) Options() Options { return p.opts }

// Parse produces a tree whose leaves are the sentence tokens in order, each
// bound to its token id. Token forms are expected to be normalized already.
// Sentences without a full parse get a fragment tree rooted at the start
// symbol.
func (p *Parser) Parse(s kaf.Sentence) (*tree.Node, error) {
	if len(s.Tokens) == 0 {
		return nil, internalerr.ErrEmptySentence
	}
	forms, ids := s.Forms(), s.IDs()

	tags := p.tagger.Tag(forms)
	lex := make([][]grammar.TagScore, len(forms))
	for i, dist := range tags {
		for _, ts := range dist {
			if _, ok := p.model.SymbolID(ts.Tag); ok {
				lex[i] = append(lex[i], ts)
			}
		}
		if len(lex[i]) == 0 {
			return nil, fmt.Errorf("%w: no tag for %q", internalerr.ErrNoParse, forms[i])
		}
	}

	if max := p.opts.maxLength(); max > 0 && len(forms) > max {
		return p.flat(forms, ids, lex), nil
	}

	c := p.fill(lex)
	b := builder{model: p.model, chart: c, forms: forms, ids: ids}
	if top := c.cell(0, len(forms)); top.score[p.start] > math.Inf(-1) {
		return b.node(0, len(forms), p.start), nil
	}
	return p.fragment(&b), nil
}

// flat tags each word with its best tag and hangs the preterminals off a
// single fragment node.
func (p *Parser) flat(forms, ids []string, lex [][]grammar.TagScore) *tree.Node {
	frag := tree.New(p.model.Fallback)
	for i := range forms {
		frag.Children = append(frag.Children, tree.Preterminal(lex[i][0].Tag, forms[i], ids[i]))
	}
	return tree.New(p.model.Start, frag)
}

// fragment covers the sentence left to right with the longest spans that
// have a complete constituent, preferring the best scoring label.
func (p *Parser) fragment(b *builder) *tree.Node {
	n := len(b.forms)
	frag := tree.New(p.model.Fallback)
	for i := 0; i < n; {
		for j := n; j > i; j-- {
			sym, ok := p.bestPiece(b.chart.cell(i, j))
			if !ok {
				continue
			}
			frag.Children = append(frag.Children, b.node(i, j, sym))
			i = j
			break
		}
	}
	return tree.New(p.model.Start, frag)
}

func (p *Parser) bestPiece(c *cell) (int, bool) {
	best, found := -1, false
	for _, sym := range c.active {
		if sym == p.start || sym == p.fallback || p.model.IsIntermediate(sym) {
			continue
		}
		if !found || c.score[sym] > c.score[best] {
			best, found = sym, true
		}
	}
	return best, found
}
