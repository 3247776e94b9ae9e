// Package normalize escapes the bracket characters that tree notations use as
// structural delimiters.
//
// The mapping follows the Penn Treebank convention:
//
//	(  -LRB-
//	)  -RRB-
//	{  -LCB-
//	}  -RCB-
//
// Token rewrites only whole tokens; every other token passes through
// unchanged. Leaf additionally escapes brackets and whitespace inside a
// token when it is written as a tree leaf. All functions are pure and safe
// for concurrent use.
package normalize

import (
	"strings"
	"unicode"
)

// Blank replaces whitespace inside a leaf. Tree readers only split on ASCII
// whitespace, so a no-break space keeps the leaf in one piece.
const Blank = '\u00a0'

var escapes = [...]struct {
	raw, code string
}{
	{"(", "-LRB-"},
	{")", "-RRB-"},
	{"{", "-LCB-"},
	{"}", "-RCB-"},
}

var (
	toCode = make(map[string]string, len(escapes))
	toRaw  = make(map[string]string, len(escapes))
)

func init() {
	for _, e := range escapes {
		toCode[e.raw] = e.code
		toRaw[e.code] = e.raw
	}
}

// Token returns the escape code for a reserved bracket token, or the token
// itself when it is not reserved.
func Token(form string) string {
	if code, ok := toCode[form]; ok {
		return code
	}
	return form
}

// Tokens normalizes every form. The input slice is not modified.
func Tokens(forms []string) []string {
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = Token(f)
	}
	return out
}

// Restore maps an escape code back to its bracket character.
func Restore(form string) string {
	if raw, ok := toRaw[form]; ok {
		return raw
	}
	return form
}

// IsEscaped reports whether form is one of the escape codes.
func IsEscaped(form string) bool {
	_, ok := toRaw[form]
	return ok
}

// IsReserved reports whether form is a bare bracket that must be escaped.
func IsReserved(form string) bool {
	_, ok := toCode[form]
	return ok
}

// Leaf returns form as it must appear in bracket text: bracket characters
// anywhere in the form become escape codes and whitespace becomes Blank.
// An empty form is written as a single Blank. Leaf is idempotent.
func Leaf(form string) string {
	if form == "" {
		return string(Blank)
	}
	if !strings.ContainsFunc(form, needsLeafEscape) {
		return form
	}
	var b strings.Builder
	for _, r := range form {
		switch {
		case r == Blank:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(Blank)
		default:
			if code, ok := toCode[string(r)]; ok {
				b.WriteString(code)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func needsLeafEscape(r rune) bool {
	switch r {
	case '(', ')', '{', '}':
		return true
	case Blank:
		return false
	}
	return unicode.IsSpace(r)
}
