package heads

import (
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

type direction int

const (
	left     direction = iota // for each label in order, scan children left to right
	right                     // for each label in order, scan children right to left
	leftDis                   // scan children left to right for any label
	rightDis                  // scan children right to left for any label
)

// rule is one step of a head rule. A rule with no labels takes the first
// non-punctuation child in its direction.
type rule struct {
	dir    direction
	labels []string
}

func l(labels ...string) rule  { return rule{dir: left, labels: labels} }
func r(labels ...string) rule  { return rule{dir: right, labels: labels} }
func ld(labels ...string) rule { return rule{dir: leftDis, labels: labels} }
func rd(labels ...string) rule { return rule{dir: rightDis, labels: labels} }

// ruleFinder is a table driven head finder in the style of Collins (1999).
type ruleFinder struct {
	rules map[string][]rule
	def   []rule
	punct map[string]bool
	// coordination moves the head left across "X CC Y" to X.
	coordination map[string]bool
}

func set(labels ...string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, s := range labels {
		m[s] = true
	}
	return m
}

func (f *ruleFinder) Head(n *tree.Node) int {
	switch {
	case n.IsLeaf() || len(n.Children) == 0:
		return -1
	case len(n.Children) == 1:
		return 0
	}
	rules, ok := f.rules[tree.BaseLabel(n.Label)]
	if !ok {
		rules = f.def
	}
	head := -1
	for _, rl := range rules {
		if head = f.locate(n.Children, rl); head >= 0 {
			break
		}
	}
	if head < 0 {
		last := rule{dir: left}
		if len(rules) > 0 {
			last.dir = rules[len(rules)-1].dir
		}
		head = f.locate(n.Children, last)
	}
	if head < 0 {
		head = 0
	}
	return f.fixCoordination(n.Children, head)
}

func (f *ruleFinder) label(c *tree.Node) string {
	if c.IsLeaf() {
		return ""
	}
	return tree.BaseLabel(c.Label)
}

func (f *ruleFinder) locate(kids []*tree.Node, rl rule) int {
	n := len(kids)
	fromLeft := rl.dir == left || rl.dir == leftDis
	at := func(i int) int {
		if fromLeft {
			return i
		}
		return n - 1 - i
	}

	if len(rl.labels) == 0 {
		for i := 0; i < n; i++ {
			if !f.punct[f.label(kids[at(i)])] {
				return at(i)
			}
		}
		return -1
	}

	switch rl.dir {
	case left, right:
		for _, want := range rl.labels {
			for i := 0; i < n; i++ {
				if f.label(kids[at(i)]) == want {
					return at(i)
				}
			}
		}
	default:
		wanted := set(rl.labels...)
		for i := 0; i < n; i++ {
			if wanted[f.label(kids[at(i)])] {
				return at(i)
			}
		}
	}
	return -1
}

// fixCoordination implements the Collins coordination rule: when the head
// is preceded by a conjunction, the conjunct before it (skipping
// punctuation) heads the phrase.
func (f *ruleFinder) fixCoordination(kids []*tree.Node, head int) int {
	if len(f.coordination) == 0 || head < 2 || !f.coordination[f.label(kids[head-1])] {
		return head
	}
	i := head - 2
	for i >= 0 && kids[i].IsPreterminal() && f.punct[f.label(kids[i])] {
		i--
	}
	if i >= 0 {
		return i
	}
	return head
}
