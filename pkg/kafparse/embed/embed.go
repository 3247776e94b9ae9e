// Package embed re-reads bracketed parse text and writes it into the
// constituency layer of a KAF document.
package embed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/kaf"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// Layer is the processing-history layer name recorded after embedding.
const Layer = "constituents"

// ToolName is the processor name recorded for a language.
func ToolName(lang string) string { return "stanford-parse-" + lang }

// Constituent is one bracket pair of a sentence tree.
type Constituent struct {
	ID     int // pre-order position within the sentence
	Label  string
	Parent int // -1 for the root
	Head   bool
	Span   []string // token ids dominated, in document order
}

// Leaf is one terminal, bound by position to a token.
type Leaf struct {
	TokenID string
	Form    string
	Parent  int
}

// Sentence is the span tree of one sentence.
type Sentence struct {
	Constituents []Constituent
	Leaves       []Leaf
}

// Build reads one sentence of bracket text. The n-th leaf is bound to the
// n-th token id regardless of its surface form.
func Build(text string, ids []string) (*Sentence, error) {
	root, err := tree.Read(text)
	if err != nil {
		return nil, err
	}
	if root.Label == "" && len(root.Children) == 0 {
		return nil, fmt.Errorf("%w: empty tree", internalerr.ErrUnbalanced)
	}
	if err := root.Bind(ids); err != nil {
		return nil, err
	}

	type frame struct {
		node   *tree.Node
		parent int
		exit   int // constituent to close, or -1 on entry
	}
	s := &Sentence{}
	starts := []int{}
	stack := []frame{{node: root, parent: -1, exit: -1}}
	leaves := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit >= 0 {
			s.Constituents[f.exit].Span = ids[starts[f.exit]:leaves]
			continue
		}
		if f.node.IsLeaf() {
			s.Leaves = append(s.Leaves, Leaf{TokenID: f.node.Word.TokenID, Form: f.node.Word.Form, Parent: f.parent})
			leaves++
			continue
		}

		id := len(s.Constituents)
		s.Constituents = append(s.Constituents, Constituent{
			ID:     id,
			Label:  f.node.Label,
			Parent: f.parent,
			Head:   f.node.Head,
		})
		starts = append(starts, leaves)
		stack = append(stack, frame{exit: id})
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: id, exit: -1})
		}
	}
	return s, nil
}

// Options describe the processor recorded in the document header.
type Options struct {
	Language string
	Version  string
	Now      func() time.Time
}

// Embed adds one constituency tree per sentence. texts is aligned with
// doc.Sentences(); an empty entry means the sentence has no tree. Each
// sentence is embedded completely or not at all; failures are returned as
// joined *internalerr.SentenceError values after all sentences were tried.
func Embed(doc *kaf.Document, texts []string, opts Options) error {
	sentences := doc.Sentences()
	if len(texts) != len(sentences) {
		return fmt.Errorf("%w: %d trees for %d sentences", internalerr.ErrInvalidInput, len(texts), len(sentences))
	}

	ids := newIDs(doc)
	var errs []error
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		s, err := Build(text, sentences[i].IDs())
		if err != nil {
			errs = append(errs, &internalerr.SentenceError{Index: i, Err: err})
			continue
		}
		doc.AddTree(ids.tree(doc, s, sentences[i]))
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	doc.AddProcessor(Layer, ToolName(opts.Language), opts.Version, now())
	return errors.Join(errs...)
}

type idGen struct {
	nt, t, edge int
}

func newIDs(doc *kaf.Document) *idGen {
	nt, t, edge := doc.IDCounters()
	return &idGen{nt: nt, t: t, edge: edge}
}

func (g *idGen) nextNT() string   { g.nt++; return "nter" + strconv.Itoa(g.nt) }
func (g *idGen) nextT() string    { g.t++; return "ter" + strconv.Itoa(g.t) }
func (g *idGen) nextEdge() string { g.edge++; return "tre" + strconv.Itoa(g.edge) }

// tree converts a span tree to KAF. Terminals point at terms when the
// document has them and at words otherwise; their comment shows the word
// form of the document, not the escaped leaf.
func (g *idGen) tree(doc *kaf.Document, s *Sentence, sent kaf.Sentence) kaf.Tree {
	var out kaf.Tree
	ntIDs := make([]string, len(s.Constituents))
	for i, c := range s.Constituents {
		ntIDs[i] = g.nextNT()
		out.NonTerminals = append(out.NonTerminals, kaf.NonTerminal{ID: ntIDs[i], Label: c.Label})
	}
	for i, leaf := range s.Leaves {
		target := leaf.TokenID
		if tid, ok := doc.TermID(leaf.TokenID); ok {
			target = tid
		}
		out.Terminals = append(out.Terminals, kaf.Terminal{
			ID:      g.nextT(),
			Comment: kaf.CommentText(sent.Tokens[i].Form),
			Span:    []kaf.Target{{ID: target}},
		})
	}
	for i, c := range s.Constituents {
		if c.Parent < 0 {
			continue
		}
		e := kaf.Edge{ID: g.nextEdge(), From: ntIDs[i], To: ntIDs[c.Parent]}
		if c.Head {
			e.Head = "yes"
		}
		out.Edges = append(out.Edges, e)
	}
	for i, leaf := range s.Leaves {
		out.Edges = append(out.Edges, kaf.Edge{ID: g.nextEdge(), From: out.Terminals[i].ID, To: ntIDs[leaf.Parent]})
	}
	return out
}
