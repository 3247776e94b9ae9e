package tree

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// Read parses a single bracketed tree such as
//
//	(ROOT (S (NP (DT The) (NN dog)) (VP (VBZ barks)) (. .)))
//
// Layout whitespace is insignificant, so both one-line and indented text are
// accepted. A "=H" suffix on a label sets Head on that node. Nesting depth is
// bounded only by memory.
func Read(text string) (*Node, error) {
	trees, err := ReadAll(text)
	if err != nil {
		return nil, err
	}
	switch len(trees) {
	case 0:
		return nil, fmt.Errorf("%w: no tree", internalerr.ErrUnbalanced)
	case 1:
		return trees[0], nil
	default:
		return nil, fmt.Errorf("%w: %d trees where one was expected", internalerr.ErrUnbalanced, len(trees))
	}
}

// ReadAll parses a sequence of bracketed trees.
func ReadAll(text string) ([]*Node, error) {
	var (
		roots       []*Node
		stack       []*Node
		expectLabel bool
		pos         int
	)

	for pos < len(text) {
		c := text[pos]
		switch {
		case c == '(':
			stack = append(stack, &Node{})
			expectLabel = true
			pos++
		case c == ')':
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected ')' at offset %d", internalerr.ErrUnbalanced, pos)
			}
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				roots = append(roots, n)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			expectLabel = false
			pos++
		case isSpace(c):
			pos++
		default:
			end := pos
			for end < len(text) && text[end] != '(' && text[end] != ')' && !isSpace(text[end]) {
				end++
			}
			atom := text[pos:end]
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: token %q outside brackets at offset %d", internalerr.ErrUnbalanced, atom, pos)
			}
			top := stack[len(stack)-1]
			if expectLabel {
				if strings.HasSuffix(atom, HeadMarker) && len(atom) > len(HeadMarker) {
					top.Head = true
					atom = strings.TrimSuffix(atom, HeadMarker)
				}
				top.Label = atom
				expectLabel = false
			} else {
				top.Children = append(top.Children, Leaf(atom, ""))
			}
			pos = end
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: %d unclosed '('", internalerr.ErrUnbalanced, len(stack))
	}
	return roots, nil
}

func isSpace(c byte) bool {
	return c < 0x80 && unicode.IsSpace(rune(c))
}
