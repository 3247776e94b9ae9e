// Package heads selects and runs head-finding strategies. A strategy
// designates, for every phrasal node, the one child that heads it.
package heads

import (
	"fmt"
	"sort"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// Policy names a head-finding strategy.
type Policy string

// Policies a user can request. Negra and HeadFinal are the fixed strategies
// of languages that offer no choice.
const (
	Collins   Policy = "collins"
	Semantic  Policy = "sem"
	Negra     Policy = "negra"
	HeadFinal Policy = "headfinal"
)

// ParsePolicy validates a user supplied policy name. The empty string
// selects the language default.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case "", Collins, Semantic:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q (want %s or %s)", internalerr.ErrUnknownPolicy, name, Collins, Semantic)
}

// Finder picks the head child of an internal node. It returns the index of
// the head among n.Children, or -1 for a leaf.
type Finder interface {
	Head(n *tree.Node) int
}

// Selection is the strategy chosen for a language.
type Selection struct {
	Finder Finder
	Policy Policy // the policy actually in effect
	// Fallback is set when the requested policy is not offered for the
	// language and its sole strategy was used instead.
	Fallback bool
}

type profile struct {
	def     Policy
	finders map[Policy]Finder
}

var profiles = map[string]profile{
	"en": {def: Semantic, finders: map[Policy]Finder{
		Collins:  collinsEnglish,
		Semantic: semanticEnglish,
	}},
	"de": {def: Negra, finders: map[Policy]Finder{Negra: negraGerman}},
	"ja": {def: HeadFinal, finders: map[Policy]Finder{HeadFinal: headFinalJapanese}},
}

// Select returns the head finder for a language and requested policy.
// Head finding is language specific: an empty language is a configuration
// error. A policy the language does not offer falls back to the language
// default with Fallback set; callers are expected to report it.
func Select(lang string, policy Policy) (Selection, error) {
	if lang == "" {
		return Selection{}, fmt.Errorf("%w: head finding needs a language", internalerr.ErrInvalidConfig)
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return Selection{}, err
	}
	prof, ok := profiles[lang]
	if !ok {
		return Selection{}, fmt.Errorf("%w: no head finder for %q", internalerr.ErrUnknownLanguage, lang)
	}
	if policy == "" {
		return Selection{Finder: prof.finders[prof.def], Policy: prof.def}, nil
	}
	if f, ok := prof.finders[policy]; ok {
		return Selection{Finder: f, Policy: policy}, nil
	}
	return Selection{Finder: prof.finders[prof.def], Policy: prof.def, Fallback: true}, nil
}

// Offered lists the policies available for a language, default first.
func Offered(lang string) []Policy {
	prof, ok := profiles[lang]
	if !ok {
		return nil
	}
	out := []Policy{prof.def}
	var rest []Policy
	for p := range prof.finders {
		if p != prof.def {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}
