// Package kaf models the KAF/NAF documents the pipeline reads and writes:
// the tokenized text layer grouped into sentences, the processing history in
// the header, and the constituency annotation layer.
package kaf

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

// Token is one word form of the text layer.
type Token struct {
	ID   string
	Form string
}

// Sentence is the ordered run of tokens sharing a sent attribute.
type Sentence struct {
	ID     string
	Tokens []Token
}

// Forms returns the surface forms in order.
func (s Sentence) Forms() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Form
	}
	return out
}

// IDs returns the token identifiers in order.
func (s Sentence) IDs() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.ID
	}
	return out
}

// Processor is one entry of the processing history.
type Processor struct {
	Layer     string
	Name      string
	Version   string
	Timestamp string
}

// Document is a parsed KAF document. Layers the pipeline does not interpret
// are kept verbatim and written back in their original order.
type Document struct {
	root      xml.Name
	rootAttrs []xml.Attr
	lang      string
	version   string

	header    *headerXML
	text      *textXML
	layers    []rawLayer
	trees     []Tree
	sentences []Sentence
	termOf    map[string]string
}

// New creates an empty KAF document.
func New(lang string) *Document {
	return &Document{
		root:    xml.Name{Local: "KAF"},
		lang:    lang,
		version: "v1.opener",
		header:  &headerXML{},
		text:    &textXML{},
		termOf:  map[string]string{},
	}
}

// AddSentence appends a sentence to the text layer. Word ids continue the
// document-wide numbering (w1, w2, ...).
func (d *Document) AddSentence(forms ...string) Sentence {
	sentID := strconv.Itoa(len(d.sentences) + 1)
	s := Sentence{ID: sentID}
	offset := 0
	if n := len(d.text.Words); n > 0 {
		offset = d.text.Words[n-1].end() + 1
	}
	for _, form := range forms {
		id := "w" + strconv.Itoa(len(d.text.Words)+1)
		d.text.Words = append(d.text.Words, wfXML{
			WID:  id,
			Sent: sentID,
			Form: form,
			Attrs: []xml.Attr{
				{Name: xml.Name{Local: "offset"}, Value: strconv.Itoa(offset)},
				{Name: xml.Name{Local: "length"}, Value: strconv.Itoa(len(form))},
			},
		})
		s.Tokens = append(s.Tokens, Token{ID: id, Form: form})
		offset += len(form) + 1
	}
	d.sentences = append(d.sentences, s)
	return s
}

// Language returns the xml:lang of the document, possibly empty.
func (d *Document) Language() string { return d.lang }

// Sentences returns the sentences in document order.
func (d *Document) Sentences() []Sentence { return d.sentences }

// TermID returns the id of the term spanning the given word, if the document
// has a terms layer covering it.
func (d *Document) TermID(wordID string) (string, bool) {
	tid, ok := d.termOf[wordID]
	return tid, ok
}

// AddProcessor records a linguistic processor in the header.
func (d *Document) AddProcessor(layer, name, version string, at time.Time) {
	lp := lpXML{
		Name:      name,
		Timestamp: at.UTC().Format(time.RFC3339),
		Version:   version,
	}
	for i := range d.header.Processors {
		if d.header.Processors[i].Layer == layer {
			d.header.Processors[i].LPs = append(d.header.Processors[i].LPs, lp)
			return
		}
	}
	d.header.Processors = append(d.header.Processors, processorsXML{Layer: layer, LPs: []lpXML{lp}})
}

// Processors returns the processing history, optionally filtered by layer.
func (d *Document) Processors(layer string) []Processor {
	var out []Processor
	for _, lps := range d.header.Processors {
		if layer != "" && lps.Layer != layer {
			continue
		}
		for _, lp := range lps.LPs {
			out = append(out, Processor{
				Layer:     lps.Layer,
				Name:      lp.Name,
				Version:   lp.Version,
				Timestamp: lp.Timestamp,
			})
		}
	}
	return out
}

// AddTree appends a tree to the constituency layer.
func (d *Document) AddTree(t Tree) {
	d.trees = append(d.trees, t)
}

// Trees returns the constituency layer.
func (d *Document) Trees() []Tree { return d.trees }

// IDCounters returns the highest numeric suffix already used for
// non-terminal, terminal and edge ids in the constituency layer.
func (d *Document) IDCounters() (nt, t, edge int) {
	for _, tr := range d.trees {
		for _, n := range tr.NonTerminals {
			nt = max(nt, idSuffix(n.ID, "nter"))
		}
		for _, x := range tr.Terminals {
			t = max(t, idSuffix(x.ID, "ter"))
		}
		for _, e := range tr.Edges {
			edge = max(edge, idSuffix(e.ID, "tre"))
		}
	}
	return nt, t, edge
}

func idSuffix(id, prefix string) int {
	if !strings.HasPrefix(id, prefix) {
		return 0
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil {
		return 0
	}
	return n
}
