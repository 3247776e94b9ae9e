// Package printer renders constituent trees as bracketed text.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/kafparse/pkg/kafparse/heads"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/normalize"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// Format is a tree notation.
type Format string

const (
	// OneLine writes each tree on a single line.
	OneLine Format = "oneline"
	// Penn writes each tree indented over several lines, followed by a
	// blank line.
	Penn Format = "penn"
)

// ParseFormat validates a notation name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case OneLine, Penn:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q (want %s or %s)", internalerr.ErrInvalidConfig, name, Penn, OneLine)
}

// Printer renders trees in one notation. With a head finder, the label of
// every head child carries tree.HeadMarker. Leaves are written through
// normalize.Leaf, so any well-formed tree reads back with the same shape.
// A Printer has no state between trees and is safe for concurrent use.
type Printer struct {
	format Format
	heads  heads.Finder
}

// New creates a printer. finder may be nil to disable head marking.
func New(format Format, finder heads.Finder) *Printer {
	return &Printer{format: format, heads: finder}
}

// Render returns the text of one tree, including its trailing newline(s).
func (p *Printer) Render(n *tree.Node) string {
	var b strings.Builder
	switch p.format {
	case Penn:
		p.penn(&b, n, false, 0)
		b.WriteString("\n\n")
	default:
		p.flat(&b, n, false)
		b.WriteString("\n")
	}
	return b.String()
}

// Fprint writes the text of one tree to w.
func (p *Printer) Fprint(w io.Writer, n *tree.Node) error {
	_, err := io.WriteString(w, p.Render(n))
	return err
}

func (p *Printer) label(n *tree.Node, isHead bool) string {
	if isHead {
		return n.Label + tree.HeadMarker
	}
	return n.Label
}

func (p *Printer) headIndex(n *tree.Node) int {
	if p.heads == nil || !n.IsPhrasal() {
		return -1
	}
	return p.heads.Head(n)
}

func (p *Printer) flat(b *strings.Builder, n *tree.Node, isHead bool) {
	if n.IsLeaf() {
		b.WriteString(normalize.Leaf(n.Word.Form))
		return
	}
	b.WriteByte('(')
	b.WriteString(p.label(n, isHead))
	head := p.headIndex(n)
	for i, c := range n.Children {
		b.WriteByte(' ')
		p.flat(b, c, i == head)
	}
	b.WriteByte(')')
}

// penn breaks the line before every child unless all children are
// preterminals or leaves, in which case the node stays on one line.
func (p *Printer) penn(b *strings.Builder, n *tree.Node, isHead bool, depth int) {
	if n.IsLeaf() || !hasPhrasalChild(n) {
		p.flat(b, n, isHead)
		return
	}
	b.WriteByte('(')
	b.WriteString(p.label(n, isHead))
	head := p.headIndex(n)
	for i, c := range n.Children {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth+1))
		p.penn(b, c, i == head, depth+1)
	}
	b.WriteByte(')')
}

func hasPhrasalChild(n *tree.Node) bool {
	for _, c := range n.Children {
		if c.IsPhrasal() {
			return true
		}
	}
	return false
}
