package heads

import (
	"strings"

	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

var englishPunct = set(".", ",", ":", "``", "''", "-LRB-", "-RRB-", "-LCB-", "-RCB-")

var collinsRules = map[string][]rule{
	"ADJP":   {l("NNS", "QP", "NN", "$", "ADVP", "JJ", "VBN", "VBG", "ADJP", "JJR", "NP", "JJS", "DT", "FW", "RBR", "RBS", "SBAR", "RB")},
	"ADVP":   {r("RB", "RBR", "RBS", "FW", "ADVP", "TO", "CD", "JJR", "JJ", "IN", "NP", "JJS", "NN")},
	"CONJP":  {r("CC", "RB", "IN")},
	"FRAG":   {r()},
	"INTJ":   {l()},
	"LST":    {r("LS", ":")},
	"NAC":    {l("NN", "NNS", "NNP", "NNPS", "NP", "NAC", "EX", "$", "CD", "QP", "PRP", "VBG", "JJ", "JJS", "JJR", "ADJP", "FW")},
	"PP":     {l("IN", "TO", "VBG", "VBN", "RP", "FW"), l("PP")},
	"PRN":    {l()},
	"PRT":    {r("RP")},
	"QP":     {l("$", "IN", "NNS", "NN", "JJ", "RB", "DT", "CD", "NCD", "QP", "JJR", "JJS")},
	"RRC":    {r("VP", "NP", "ADVP", "ADJP", "PP")},
	"S":      {l("TO", "IN", "VP", "S", "SBAR", "ADJP", "UCP", "NP")},
	"SBAR":   {l("WHNP", "WHPP", "WHADVP", "WHADJP", "IN", "DT", "S", "SQ", "SINV", "SBAR", "FRAG")},
	"SBARQ":  {l("SQ", "S", "SINV", "SBARQ", "FRAG")},
	"SINV":   {l("VBZ", "VBD", "VBP", "VB", "MD", "VP", "S", "SINV", "ADJP", "NP")},
	"SQ":     {l("VBZ", "VBD", "VBP", "VB", "MD", "VP", "SQ")},
	"UCP":    {r()},
	"VP":     {l("TO", "VBD", "VBN", "MD", "VBZ", "VB", "VBG", "VBP", "VP", "ADJP", "NN", "NNS", "NP")},
	"WHADJP": {l("CC", "WRB", "JJ", "ADJP")},
	"WHADVP": {r("CC", "WRB")},
	"WHNP":   {l("WDT", "WP", "WP$", "WHADJP", "WHPP", "WHNP")},
	"WHPP":   {r("IN", "TO", "FW")},
	"X":      {r()},
	"ROOT":   {l("S", "SQ", "SINV", "SBARQ", "FRAG", "NP")},
	"NP": {
		rd("POS", "NN", "NNP", "NNPS", "NNS", "NX", "JJR"),
		l("NP"),
		rd("$", "ADJP", "PRN"),
		r("CD"),
		rd("JJ", "JJS", "RB", "QP"),
		r(),
	},
}

var collinsEnglish Finder = &ruleFinder{
	rules:        collinsRules,
	def:          []rule{l()},
	punct:        englishPunct,
	coordination: set("CC", "CONJP"),
}

// semanticRules prefer content over function words: clauses head their
// complementizers and verb phrases head their subjects.
var semanticRules = func() map[string][]rule {
	out := make(map[string][]rule, len(collinsRules))
	for k, v := range collinsRules {
		out[k] = v
	}
	out["S"] = []rule{l("VP", "S", "FRAG", "SBAR", "ADJP", "UCP", "TO"), r("NP")}
	out["SBAR"] = []rule{l("S", "SQ", "SINV", "SBAR", "FRAG", "VP", "WHNP", "WHPP", "WHADVP", "WHADJP", "IN", "DT")}
	out["SQ"] = []rule{l("VP", "SQ", "ADJP", "VB", "VBZ", "VBD", "VBP", "MD")}
	out["PRN"] = []rule{l("VP", "NP", "S", "SINV", "SBAR", "ADJP", "ADVP", "INTJ", "WHNP", "NAC", "VBP", "JJ", "NN", "NNP")}
	out["PP"] = []rule{r("IN", "TO", "VBG", "VBN", "RP", "FW", "PP")}
	return out
}()

var semanticEnglish Finder = &semanticFinder{rules: &ruleFinder{
	rules:        semanticRules,
	def:          []rule{l()},
	punct:        englishPunct,
	coordination: set("CC", "CONJP"),
}}

var (
	auxiliaries = set("will", "wo", "shall", "sha", "may", "might", "should", "would", "can", "could", "ca", "must",
		"has", "have", "had", "having", "do", "does", "did", "'ll", "'ve", "'d", "to")
	copulas  = set("be", "being", "been", "am", "are", "is", "was", "were", "'m", "'re", "'s", "s", "art", "ai")
	verbTags = set("TO", "MD", "VB", "VBD", "VBG", "VBN", "VBP", "VBZ", "AUX")

	auxComplements    = []string{"VP"}
	copulaComplements = []string{"VP", "ADJP", "NP", "WHNP", "UCP", "PP", "SBAR", "S"}
)

// semanticFinder lets auxiliaries and copulas yield the head of a verb
// phrase to their complement.
type semanticFinder struct {
	rules *ruleFinder
}

func (f *semanticFinder) Head(n *tree.Node) int {
	switch tree.BaseLabel(n.Label) {
	case "VP", "SQ", "SINV":
		if i := complementOfAuxiliary(n.Children); i >= 0 {
			return i
		}
	}
	return f.rules.Head(n)
}

func complementOfAuxiliary(kids []*tree.Node) int {
	for i, k := range kids {
		if !k.IsPreterminal() || !verbTags[tree.BaseLabel(k.Label)] {
			continue
		}
		word := strings.ToLower(k.Children[0].Word.Form)
		var wanted []string
		switch {
		case copulas[word]:
			wanted = copulaComplements
		case auxiliaries[word]:
			wanted = auxComplements
		default:
			continue
		}
		for _, want := range wanted {
			for j := i + 1; j < len(kids); j++ {
				if !kids[j].IsLeaf() && tree.BaseLabel(kids[j].Label) == want {
					return j
				}
			}
		}
	}
	return -1
}
