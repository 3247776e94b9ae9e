package parser

import (
	"math"

	"github.com/cognicore/kafparse/pkg/kafparse/grammar"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

type backKind uint8

const (
	backNone backKind = iota
	backLex
	backUnary
	backBinary
)

type backPointer struct {
	kind        backKind
	split       int
	left, right int // binary children, or the unary child in left
}

// cell holds the best score and back pointer per symbol for one span.
type cell struct {
	score  []float64
	back   []backPointer
	active []int
}

func newCell(nsym int) *cell {
	c := &cell{score: make([]float64, nsym), back: make([]backPointer, nsym)}
	for i := range c.score {
		c.score[i] = math.Inf(-1)
	}
	return c
}

func (c *cell) improve(sym int, score float64, bp backPointer) bool {
	if score <= c.score[sym] {
		return false
	}
	if c.back[sym].kind == backNone {
		c.active = append(c.active, sym)
	}
	c.score[sym] = score
	c.back[sym] = bp
	return true
}

// chart is the upper triangle of spans [i,j) of an n-word sentence.
type chart struct {
	n     int
	cells []*cell
}

func (c *chart) cell(i, j int) *cell {
	return c.cells[i*(c.n+1)+j]
}

func (p *Parser) fill(lex [][]grammar.TagScore) *chart {
	n := len(lex)
	nsym := p.model.NumSymbols()
	c := &chart{n: n, cells: make([]*cell, (n+1)*(n+1))}

	for i, dist := range lex {
		cl := newCell(nsym)
		for _, ts := range dist {
			sym, _ := p.model.SymbolID(ts.Tag)
			cl.improve(sym, ts.Score, backPointer{kind: backLex})
		}
		p.closeUnary(cl)
		c.cells[i*(n+1)+i+1] = cl
	}

	for span := 2; span <= n; span++ {
		for i := 0; i+span <= n; i++ {
			j := i + span
			cl := newCell(nsym)
			for k := i + 1; k < j; k++ {
				left, right := c.cell(i, k), c.cell(k, j)
				for _, l := range left.active {
					for _, r := range p.model.BinaryRulesByLeft(l) {
						rs := right.score[r.Right]
						if math.IsInf(rs, -1) {
							continue
						}
						cl.improve(r.Parent, left.score[l]+rs+r.Score,
							backPointer{kind: backBinary, split: k, left: l, right: r.Right})
					}
				}
			}
			p.closeUnary(cl)
			c.cells[i*(n+1)+j] = cl
		}
	}
	return c
}

// closeUnary applies unary rules until no symbol improves. Scores are log
// probabilities, so a cycle can never improve and the loop terminates.
func (p *Parser) closeUnary(cl *cell) {
	rules := p.model.UnaryRules()
	for changed := true; changed; {
		changed = false
		for _, r := range rules {
			cs := cl.score[r.Child]
			if math.IsInf(cs, -1) {
				continue
			}
			if cl.improve(r.Parent, cs+r.Score, backPointer{kind: backUnary, left: r.Child}) {
				changed = true
			}
		}
	}
}

// builder turns back pointers into tree nodes, splicing out the
// intermediate symbols introduced by binarization.
type builder struct {
	model *grammar.Model
	chart *chart
	forms []string
	ids   []string
}

func (b *builder) node(i, j, sym int) *tree.Node {
	return b.expand(i, j, sym)[0]
}

// expand returns the nodes a symbol contributes to its parent: one node for
// a real symbol, the spliced children for an intermediate one.
func (b *builder) expand(i, j, sym int) []*tree.Node {
	bp := b.chart.cell(i, j).back[sym]
	label := b.model.Symbol(sym)
	var children []*tree.Node
	switch bp.kind {
	case backLex:
		return []*tree.Node{tree.Preterminal(label, b.forms[i], b.ids[i])}
	case backUnary:
		children = b.expand(i, j, bp.left)
	case backBinary:
		children = append(b.expand(i, bp.split, bp.left), b.expand(bp.split, j, bp.right)...)
	}
	if b.model.IsIntermediate(sym) {
		return children
	}
	return []*tree.Node{tree.New(label, children...)}
}
