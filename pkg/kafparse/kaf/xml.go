package kaf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

type kafXML struct {
	XMLName      xml.Name
	Lang         string           `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Version      string           `xml:"version,attr,omitempty"`
	Attrs        []xml.Attr       `xml:",any,attr"`
	Header       *headerXML       `xml:"kafHeader"`
	NAFHeader    *headerXML       `xml:"nafHeader"`
	Text         *textXML         `xml:"text"`
	Layers       []rawLayer       `xml:",any"`
	Constituency *constituencyXML `xml:"constituency"`
}

type headerXML struct {
	Attrs      []xml.Attr      `xml:",any,attr"`
	Extra      []rawLayer      `xml:",any"`
	Processors []processorsXML `xml:"linguisticProcessors"`
}

type processorsXML struct {
	Layer string  `xml:"layer,attr"`
	LPs   []lpXML `xml:"lp"`
}

type lpXML struct {
	Name           string `xml:"name,attr"`
	Timestamp      string `xml:"timestamp,attr,omitempty"`
	BeginTimestamp string `xml:"beginTimestamp,attr,omitempty"`
	EndTimestamp   string `xml:"endTimestamp,attr,omitempty"`
	Version        string `xml:"version,attr,omitempty"`
	Hostname       string `xml:"hostname,attr,omitempty"`
}

type textXML struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Words []wfXML    `xml:"wf"`
}

type wfXML struct {
	WID   string     `xml:"wid,attr,omitempty"`
	ID    string     `xml:"id,attr,omitempty"`
	Sent  string     `xml:"sent,attr,omitempty"`
	Attrs []xml.Attr `xml:",any,attr"`
	Form  string     `xml:",chardata"`
}

func (w wfXML) id() string {
	if w.WID != "" {
		return w.WID
	}
	return w.ID
}

func (w wfXML) end() int {
	var off, length int
	for _, a := range w.Attrs {
		switch a.Name.Local {
		case "offset":
			off, _ = strconv.Atoi(a.Value)
		case "length":
			length, _ = strconv.Atoi(a.Value)
		}
	}
	return off + length
}

type rawLayer struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

type constituencyXML struct {
	Trees []Tree `xml:"tree"`
}

type termsXML struct {
	Terms []struct {
		TID     string   `xml:"tid,attr"`
		ID      string   `xml:"id,attr"`
		Targets []Target `xml:"span>target"`
	} `xml:"term"`
}

// Read decodes a KAF (or NAF) document. Non UTF-8 encodings declared in the
// XML prolog are converted on the fly.
func Read(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var raw kafXML
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode KAF: %w", internalerr.ErrInvalidInput, err)
	}
	if raw.XMLName.Local != "KAF" && raw.XMLName.Local != "NAF" {
		return nil, fmt.Errorf("%w: root element %q is not KAF", internalerr.ErrInvalidInput, raw.XMLName.Local)
	}
	if raw.Text == nil {
		return nil, fmt.Errorf("%w: document has no text layer", internalerr.ErrInvalidInput)
	}

	d := &Document{
		root:      raw.XMLName,
		rootAttrs: raw.Attrs,
		lang:      raw.Lang,
		version:   raw.Version,
		header:    raw.Header,
		text:      raw.Text,
		layers:    raw.Layers,
		termOf:    map[string]string{},
	}
	if d.header == nil {
		d.header = raw.NAFHeader
	}
	if d.header == nil {
		d.header = &headerXML{}
	}
	if raw.Constituency != nil {
		d.trees = raw.Constituency.Trees
	}

	d.sentences = groupSentences(raw.Text.Words)

	for _, layer := range raw.Layers {
		if layer.XMLName.Local != "terms" {
			continue
		}
		if err := d.indexTerms(layer.Inner); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func groupSentences(words []wfXML) []Sentence {
	var out []Sentence
	for _, w := range words {
		if len(out) == 0 || out[len(out)-1].ID != w.Sent {
			out = append(out, Sentence{ID: w.Sent})
		}
		s := &out[len(out)-1]
		s.Tokens = append(s.Tokens, Token{ID: w.id(), Form: w.Form})
	}
	return out
}

func (d *Document) indexTerms(inner []byte) error {
	var terms termsXML
	body := append(append([]byte("<terms>"), inner...), []byte("</terms>")...)
	if err := xml.Unmarshal(body, &terms); err != nil {
		return fmt.Errorf("%w: decode terms: %v", internalerr.ErrInvalidInput, err)
	}
	for _, t := range terms.Terms {
		id := t.TID
		if id == "" {
			id = t.ID
		}
		for _, target := range t.Targets {
			if _, seen := d.termOf[target.ID]; !seen {
				d.termOf[target.ID] = id
			}
		}
	}
	return nil
}

// Write encodes the document with an XML declaration.
func (d *Document) Write(w io.Writer) error {
	raw := kafXML{
		XMLName: d.root,
		Lang:    d.lang,
		Version: d.version,
		Attrs:   d.rootAttrs,
		Text:    d.text,
		Layers:  d.layers,
	}
	if d.root.Local == "NAF" {
		raw.NAFHeader = d.header
	} else {
		raw.Header = d.header
	}
	if len(d.trees) > 0 {
		raw.Constituency = &constituencyXML{Trees: d.trees}
	}

	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>`+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encode KAF: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// String renders the document, for diagnostics and tests.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return buf.String()
}
