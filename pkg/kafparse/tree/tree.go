// Package tree holds constituent trees and the bracket reader that turns
// bracketed tree text back into nodes.
package tree

import (
	"fmt"
	"strings"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// HeadMarker is appended to the label of a head child in head-marked text.
const HeadMarker = "=H"

// Word is the payload of a leaf: the (normalized) surface form and the
// identifier of the input token it stands for.
type Word struct {
	Form    string
	TokenID string
}

// Node is either a leaf (Word != nil) or an internal node with a category
// label and ordered children.
type Node struct {
	Label    string
	Children []*Node
	Word     *Word
	Head     bool // child was marked as head in the text it was read from
}

// New creates an internal node.
func New(label string, children ...*Node) *Node {
	return &Node{Label: label, Children: children}
}

// Leaf creates a leaf node.
func Leaf(form, tokenID string) *Node {
	return &Node{Word: &Word{Form: form, TokenID: tokenID}}
}

// Preterminal creates a tag node dominating a single leaf.
func Preterminal(tag, form, tokenID string) *Node {
	return New(tag, Leaf(form, tokenID))
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool { return n.Word != nil }

// IsPreterminal reports whether n dominates exactly one leaf.
func (n *Node) IsPreterminal() bool {
	return !n.IsLeaf() && len(n.Children) == 1 && n.Children[0].IsLeaf()
}

// IsPhrasal reports whether n is an internal node above the preterminal level.
func (n *Node) IsPhrasal() bool {
	return !n.IsLeaf() && !n.IsPreterminal()
}

// Leaves returns the leaf words left to right.
func (n *Node) Leaves() []*Word {
	var out []*Word
	n.Walk(func(c *Node) bool {
		if c.IsLeaf() {
			out = append(out, c.Word)
		}
		return true
	})
	return out
}

// Walk visits nodes in pre-order. Returning false from fn skips the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// Size returns the number of internal nodes.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(c *Node) bool {
		if !c.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

// Bind assigns token identifiers to the leaves by position.
func (n *Node) Bind(tokenIDs []string) error {
	leaves := n.Leaves()
	if len(leaves) != len(tokenIDs) {
		return fmt.Errorf("%w: %d leaves, %d tokens", internalerr.ErrLeafMismatch, len(leaves), len(tokenIDs))
	}
	for i, w := range leaves {
		w.TokenID = tokenIDs[i]
	}
	return nil
}

// Verify checks the leaf invariant: the leaves read left to right carry
// exactly the given token identifiers.
func (n *Node) Verify(tokenIDs []string) error {
	leaves := n.Leaves()
	if len(leaves) != len(tokenIDs) {
		return fmt.Errorf("%w: %d leaves, %d tokens", internalerr.ErrLeafMismatch, len(leaves), len(tokenIDs))
	}
	for i, w := range leaves {
		if w.TokenID != tokenIDs[i] {
			return fmt.Errorf("%w: leaf %d is %q, want %q", internalerr.ErrLeafMismatch, i, w.TokenID, tokenIDs[i])
		}
	}
	return nil
}

// Equal reports whether a and b have the same shape: labels, leaf forms and
// nesting. Token identifiers and head flags are ignored.
func Equal(a, b *Node) bool {
	if a.IsLeaf() != b.IsLeaf() {
		return false
	}
	if a.IsLeaf() {
		return a.Word.Form == b.Word.Form
	}
	if a.Label != b.Label || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// BaseLabel strips functional tags and index suffixes ("NP-SBJ-1" -> "NP").
// Labels that start with a dash, such as -LRB-, are returned unchanged.
func BaseLabel(label string) string {
	label = strings.TrimSuffix(label, HeadMarker)
	if strings.HasPrefix(label, "-") {
		return label
	}
	if i := strings.IndexAny(label, "-="); i > 0 {
		return label[:i]
	}
	return label
}
