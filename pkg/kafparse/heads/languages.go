package heads

import (
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// Negra/TIGER head rules for German (STTS tags).
var negraGerman Finder = &ruleFinder{
	rules: map[string][]rule{
		"ROOT": {l("S", "CS", "VP", "CVP", "NP", "CNP", "PP", "AVP", "FRAG")},
		"S":    {r("VVFIN", "VVIMP"), r("VP", "CVP"), r("VMFIN", "VAFIN", "VAIMP"), r("S", "CS")},
		"CS":   {r("S", "CS")},
		"VP":   {r("VVINF", "VVIZU", "VVPP"), r("VZ", "VAINF", "VMINF", "VMPP", "VAPP", "PP")},
		"CVP":  {r("VP", "CVP")},
		"VZ":   {r("VVINF", "VAINF", "VMINF", "VVFIN", "VVIZU")},
		"NP":   {r("NN", "NE", "MPN", "NP", "CNP", "PN", "CARD"), r("PPER", "PRF", "PDS", "PIS", "PRELS", "PWS")},
		"CNP":  {r("NP", "CNP", "NN", "NE")},
		"AP":   {r("ADJD", "ADJA", "CAP", "AA", "ADV")},
		"PP":   {l("APPR", "APPRART", "APPO", "KOKOM", "PROAV"), r("PP")},
		"AVP":  {r("ADV", "AVP", "ADJD", "PROAV", "PP")},
		"FRAG": {r()},
	},
	def:   []rule{r()},
	punct: set("$.", "$,", "$("),
}

// headFinalJapanese heads every phrase with its rightmost non-punctuation
// child.
var headFinalJapanese Finder = headFinal{punct: set("PU")}

type headFinal struct {
	punct map[string]bool
}

func (h headFinal) Head(n *tree.Node) int {
	if n.IsLeaf() || len(n.Children) == 0 {
		return -1
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		c := n.Children[i]
		if c.IsLeaf() || !h.punct[tree.BaseLabel(c.Label)] {
			return i
		}
	}
	return len(n.Children) - 1
}
