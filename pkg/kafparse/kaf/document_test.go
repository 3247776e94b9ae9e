package kaf

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

const sampleKAF = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<KAF xml:lang="en" version="v1.opener">
  <kafHeader>
    <fileDesc filename="dog.txt"/>
    <linguisticProcessors layer="text">
      <lp name="ixa-pipe-tok-en" timestamp="2013-06-01T10:00:00Z" version="1.0"/>
    </linguisticProcessors>
  </kafHeader>
  <text>
    <wf wid="w1" sent="1" para="1" offset="0" length="3">The</wf>
    <wf wid="w2" sent="1" para="1" offset="4" length="3">dog</wf>
    <wf wid="w3" sent="1" para="1" offset="8" length="5">barks</wf>
    <wf wid="w4" sent="1" para="1" offset="13" length="1">.</wf>
    <wf wid="w5" sent="2" para="1" offset="15" length="2">It</wf>
    <wf wid="w6" sent="2" para="1" offset="18" length="5">sleeps</wf>
  </text>
  <terms>
    <term tid="t1" type="close" lemma="the" pos="D"><span><target id="w1"/></span></term>
    <term tid="t2" type="open" lemma="dog" pos="N"><span><target id="w2"/></span></term>
    <term tid="t3" type="open" lemma="bark" pos="V"><span><target id="w3"/></span></term>
  </terms>
  <deps>
    <dep from="t3" to="t2" rfunc="nsubj"/>
  </deps>
</KAF>
`

func TestReadSentences(t *testing.T) {
	doc, err := Read(strings.NewReader(sampleKAF))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if doc.Language() != "en" {
		t.Errorf("Language = %q, want en", doc.Language())
	}

	sents := doc.Sentences()
	if len(sents) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(sents))
	}
	if got := strings.Join(sents[0].Forms(), " "); got != "The dog barks ." {
		t.Errorf("sentence 1 forms = %q", got)
	}
	if got := strings.Join(sents[1].IDs(), ","); got != "w5,w6" {
		t.Errorf("sentence 2 ids = %q", got)
	}
}

func TestReadTerms(t *testing.T) {
	doc, err := Read(strings.NewReader(sampleKAF))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tid, ok := doc.TermID("w2"); !ok || tid != "t2" {
		t.Errorf("TermID(w2) = %q, %v", tid, ok)
	}
	if _, ok := doc.TermID("w4"); ok {
		t.Error("w4 has no term")
	}
}

func TestWritePreservesLayers(t *testing.T) {
	doc, err := Read(strings.NewReader(sampleKAF))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	doc.AddProcessor("constituents", "stanford-parse-en", "1.0.0", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	doc.AddTree(Tree{
		NonTerminals: []NonTerminal{{ID: "nter1", Label: "ROOT"}, {ID: "nter2", Label: "NN"}},
		Terminals:    []Terminal{{ID: "ter1", Comment: "dog", Span: []Target{{ID: "t2"}}}},
		Edges: []Edge{
			{ID: "tre1", From: "nter2", To: "nter1", Head: "yes"},
			{ID: "tre2", From: "ter1", To: "nter2"},
		},
	})

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`xml:lang="en"`,
		`<deps>`,
		`rfunc="nsubj"`,
		`<fileDesc filename="dog.txt">`,
		`layer="constituents"`,
		`name="stanford-parse-en"`,
		`timestamp="2024-01-02T03:04:05Z"`,
		`<nt id="nter1" label="ROOT"></nt>`,
		`<!--dog-->`,
		`<target id="t2"></target>`,
		`head="yes"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	again, err := Read(strings.NewReader(out))
	if err != nil {
		t.Fatalf("re-Read: %v", err)
	}
	if len(again.Sentences()) != 2 {
		t.Errorf("Expected 2 sentences after round trip, got %d", len(again.Sentences()))
	}
	if len(again.Trees()) != 1 {
		t.Errorf("Expected 1 tree after round trip, got %d", len(again.Trees()))
	}
	procs := again.Processors("constituents")
	if len(procs) != 1 || procs[0].Name != "stanford-parse-en" || procs[0].Version != "1.0.0" {
		t.Errorf("constituents processors = %+v", procs)
	}
	if len(again.Processors("")) != 2 {
		t.Errorf("Expected 2 processors in total, got %d", len(again.Processors("")))
	}
	nt, ter, edge := again.IDCounters()
	if nt != 2 || ter != 1 || edge != 2 {
		t.Errorf("IDCounters = %d, %d, %d", nt, ter, edge)
	}
}

func TestReadLatin1(t *testing.T) {
	src := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<KAF xml:lang=\"de\"><text><wf wid=\"w1\" sent=\"1\">Caf\xe9</wf></text></KAF>"
	doc, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := doc.Sentences()[0].Tokens[0].Form; got != "Café" {
		t.Errorf("form = %q, want Café", got)
	}
}

func TestReadNAFIds(t *testing.T) {
	src := `<NAF xml:lang="en" version="v3"><nafHeader/><text><wf id="w1" sent="1">Hi</wf></text></NAF>`
	doc, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := doc.Sentences()[0].Tokens[0].ID; got != "w1" {
		t.Errorf("token id = %q", got)
	}
	if !strings.Contains(doc.String(), "<nafHeader") {
		t.Error("NAF header should be written back as nafHeader")
	}
}

func TestReadInvalid(t *testing.T) {
	cases := []string{
		"not xml at all",
		"<KAF><text><wf>",
		"<html><body/></html>",
		`<KAF xml:lang="en"><kafHeader/></KAF>`,
	}
	for _, src := range cases {
		if _, err := Read(strings.NewReader(src)); !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("Read(%q): got %v, want ErrInvalidInput", src, err)
		}
	}
}

func TestNewDocument(t *testing.T) {
	doc := New("en")
	doc.AddSentence("The", "dog", "barks", ".")
	s := doc.AddSentence("It", "sleeps")

	if s.ID != "2" || s.Tokens[0].ID != "w5" {
		t.Errorf("second sentence = %+v", s)
	}

	again, err := Read(strings.NewReader(doc.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(again.Sentences()) != 2 || again.Language() != "en" {
		t.Errorf("round trip lost structure: %d sentences, lang %q", len(again.Sentences()), again.Language())
	}
}

func TestCommentText(t *testing.T) {
	if got := CommentText("a -- b"); strings.Contains(got, "--") {
		t.Errorf("CommentText kept --: %q", got)
	}
	if got := CommentText("-"); strings.HasSuffix(got, "-") {
		t.Errorf("CommentText ends with -: %q", got)
	}
}
