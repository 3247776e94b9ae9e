// Package grammar loads the precomputed probabilistic grammars the parser
// runs on. A model is a YAML file holding weighted phrase-structure rules, a
// word lexicon and unknown-word signatures; weights are relative and are
// normalized per left-hand side (rules) or per entry (tag distributions).
package grammar

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// File is the on-disk form of a model.
type File struct {
	Name     string              `yaml:"name"`
	Language string              `yaml:"language"`
	Start    string              `yaml:"start"`
	Fallback string              `yaml:"fallback"`
	Tagger   string              `yaml:"tagger"`
	Rules    map[string][]string `yaml:"rules"`
	Lexicon  map[string]string   `yaml:"lexicon"`
	Unknown  UnknownFile         `yaml:"unknown"`
	PosMap   map[string]string   `yaml:"posmap"`
}

// UnknownFile holds the tag distributions for words missing from the lexicon.
type UnknownFile struct {
	Default     string            `yaml:"default"`
	Numeric     string            `yaml:"numeric"`
	Capitalized string            `yaml:"capitalized"`
	Hyphenated  string            `yaml:"hyphenated"`
	Suffixes    map[string]string `yaml:"suffixes"`
}

// TagScore is a part-of-speech tag with a log probability.
type TagScore struct {
	Tag   string
	Score float64
}

// BinaryRule is Parent -> Left Right.
type BinaryRule struct {
	Parent, Left, Right int
	Score               float64
}

// UnaryRule is Parent -> Child.
type UnaryRule struct {
	Parent, Child int
	Score         float64
}

// Model is a compiled grammar. It is read-only after Compile and may be
// shared between goroutines.
type Model struct {
	Name     string
	Language string
	Start    string
	Fallback string
	Tagger   string
	PosMap   map[string]string

	symbols []string
	index   map[string]int

	binaryByLeft map[int][]BinaryRule
	unary        []UnaryRule

	lexicon  map[string][]TagScore
	unknown  unknownModel
	suffixes []string
}

type unknownModel struct {
	def, numeric, capitalized, hyphenated []TagScore
	suffixes                              map[string][]TagScore
}

// Parse decodes a model from YAML.
func Parse(data []byte) (*Model, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode model: %v", internalerr.ErrUnknownModel, err)
	}
	return Compile(f)
}

// LoadFile reads and compiles a model from a YAML file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrUnknownModel, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Compile binarizes the rules and normalizes all weights to log probabilities.
func Compile(f File) (*Model, error) {
	if f.Name == "" || f.Language == "" {
		return nil, fmt.Errorf("%w: model needs a name and a language", internalerr.ErrUnknownModel)
	}
	if f.Start == "" {
		f.Start = "ROOT"
	}
	if f.Fallback == "" {
		f.Fallback = "FRAG"
	}
	if f.Tagger == "" {
		f.Tagger = "lexicon"
	}

	m := &Model{
		Name:         f.Name,
		Language:     f.Language,
		Start:        f.Start,
		Fallback:     f.Fallback,
		Tagger:       f.Tagger,
		PosMap:       f.PosMap,
		index:        map[string]int{},
		binaryByLeft: map[int][]BinaryRule{},
		lexicon:      map[string][]TagScore{},
	}
	m.intern(f.Start)
	m.intern(f.Fallback)

	parents := make([]string, 0, len(f.Rules))
	for lhs := range f.Rules {
		parents = append(parents, lhs)
	}
	sort.Strings(parents)

	for _, lhs := range parents {
		type rule struct {
			rhs    []string
			weight float64
		}
		var rules []rule
		total := 0.0
		for _, spec := range f.Rules[lhs] {
			fields := strings.Fields(spec)
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: rule %s -> %q needs symbols and a weight", internalerr.ErrUnknownModel, lhs, spec)
			}
			w, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("%w: rule %s -> %q has a bad weight", internalerr.ErrUnknownModel, lhs, spec)
			}
			rules = append(rules, rule{rhs: fields[:len(fields)-1], weight: w})
			total += w
		}
		for i, r := range rules {
			m.addRule(lhs, r.rhs, math.Log(r.weight/total), i)
		}
	}

	// map order must not leak into symbol ids
	for _, word := range sortedKeys(f.Lexicon) {
		tags, err := m.distribution(f.Lexicon[word])
		if err != nil {
			return nil, fmt.Errorf("lexicon entry %q: %w", word, err)
		}
		m.lexicon[word] = tags
	}

	var err error
	u := f.Unknown
	if u.Default == "" {
		return nil, fmt.Errorf("%w: model %s has no default unknown-word distribution", internalerr.ErrUnknownModel, f.Name)
	}
	if m.unknown.def, err = m.distribution(u.Default); err != nil {
		return nil, err
	}
	if m.unknown.numeric, err = m.distribution(u.Numeric); err != nil {
		return nil, err
	}
	if m.unknown.capitalized, err = m.distribution(u.Capitalized); err != nil {
		return nil, err
	}
	if m.unknown.hyphenated, err = m.distribution(u.Hyphenated); err != nil {
		return nil, err
	}
	m.unknown.suffixes = map[string][]TagScore{}
	for _, suffix := range sortedKeys(u.Suffixes) {
		if m.unknown.suffixes[suffix], err = m.distribution(u.Suffixes[suffix]); err != nil {
			return nil, err
		}
		m.suffixes = append(m.suffixes, suffix)
	}
	// longest suffix wins
	sort.Slice(m.suffixes, func(i, j int) bool {
		if len(m.suffixes[i]) != len(m.suffixes[j]) {
			return len(m.suffixes[i]) > len(m.suffixes[j])
		}
		return m.suffixes[i] < m.suffixes[j]
	})
	for _, feature := range sortedKeys(m.PosMap) {
		m.intern(m.PosMap[feature])
	}

	return m, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Model) intern(sym string) int {
	if id, ok := m.index[sym]; ok {
		return id
	}
	id := len(m.symbols)
	m.symbols = append(m.symbols, sym)
	m.index[sym] = id
	return id
}

// addRule right-binarizes lhs -> rhs. Intermediate symbols are unique per
// rule and start with '@'.
func (m *Model) addRule(lhs string, rhs []string, score float64, n int) {
	parent := m.intern(lhs)
	if len(rhs) == 1 {
		m.unary = append(m.unary, UnaryRule{Parent: parent, Child: m.intern(rhs[0]), Score: score})
		return
	}
	for i := 0; len(rhs)-i > 2; i++ {
		inter := m.intern(fmt.Sprintf("@%s#%d.%d", lhs, n, i+1))
		m.addBinary(BinaryRule{Parent: parent, Left: m.intern(rhs[i]), Right: inter, Score: score})
		parent = inter
		score = 0
	}
	last := len(rhs) - 2
	m.addBinary(BinaryRule{Parent: parent, Left: m.intern(rhs[last]), Right: m.intern(rhs[last+1]), Score: score})
}

func (m *Model) addBinary(r BinaryRule) {
	m.binaryByLeft[r.Left] = append(m.binaryByLeft[r.Left], r)
}

// distribution parses "TAG" or "TAG:weight TAG:weight ..." into normalized
// log probabilities, best first.
func (m *Model) distribution(spec string) ([]TagScore, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]TagScore, 0, len(fields))
	total := 0.0
	for _, field := range fields {
		tag, weight := field, 1.0
		if i := strings.LastIndex(field, ":"); i > 0 {
			w, err := strconv.ParseFloat(field[i+1:], 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("%w: bad tag weight %q", internalerr.ErrUnknownModel, field)
			}
			tag, weight = field[:i], w
		}
		m.intern(tag)
		out = append(out, TagScore{Tag: tag, Score: weight})
		total += weight
	}
	for i := range out {
		out[i].Score = math.Log(out[i].Score / total)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// NumSymbols returns the size of the symbol table.
func (m *Model) NumSymbols() int { return len(m.symbols) }

// Symbol returns the name of a symbol id.
func (m *Model) Symbol(id int) string { return m.symbols[id] }

// SymbolID returns the id of a symbol name.
func (m *Model) SymbolID(name string) (int, bool) {
	id, ok := m.index[name]
	return id, ok
}

// IsIntermediate reports whether a symbol was introduced by binarization.
func (m *Model) IsIntermediate(id int) bool {
	return strings.HasPrefix(m.symbols[id], "@")
}

// BinaryRulesByLeft returns the binary rules whose left child is sym.
func (m *Model) BinaryRulesByLeft(sym int) []BinaryRule { return m.binaryByLeft[sym] }

// UnaryRules returns all unary rules.
func (m *Model) UnaryRules() []UnaryRule { return m.unary }

// Lookup returns the lexicon entry for a word form.
func (m *Model) Lookup(form string) ([]TagScore, bool) {
	tags, ok := m.lexicon[form]
	return tags, ok
}
