package kaf

import "strings"

// Tree is one <tree> of the constituency layer.
type Tree struct {
	NonTerminals []NonTerminal `xml:"nt"`
	Terminals    []Terminal    `xml:"t"`
	Edges        []Edge        `xml:"edge"`
}

// NonTerminal is a labelled internal node.
type NonTerminal struct {
	ID    string `xml:"id,attr"`
	Label string `xml:"label,attr"`
}

// Terminal anchors a tree leaf to the token layer.
type Terminal struct {
	ID      string   `xml:"id,attr"`
	Comment string   `xml:",comment"`
	Span    []Target `xml:"span>target"`
}

// Target references a term (or word) id.
type Target struct {
	ID   string `xml:"id,attr"`
	Head string `xml:"head,attr,omitempty"`
}

// Edge links a child node (From) to its parent (To).
type Edge struct {
	ID   string `xml:"id,attr,omitempty"`
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
	Head string `xml:"head,attr,omitempty"`
}

// CommentText makes s safe for an XML comment, which may not contain "--"
// or end with "-".
func CommentText(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	return s
}
