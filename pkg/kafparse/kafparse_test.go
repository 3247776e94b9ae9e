package kafparse

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/heads"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/kaf"
	"github.com/cognicore/kafparse/pkg/kafparse/normalize"
	"github.com/cognicore/kafparse/pkg/kafparse/parser"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
	"github.com/cognicore/kafparse/pkg/kafparse/store/memstore"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

// Models are expensive to compile; share them across tests.
var registry = parser.NewRegistry(parser.Options{})

func opts() Options {
	return Options{
		Registry: registry,
		Now:      func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func document(lang string, sentences ...string) *kaf.Document {
	doc := kaf.New(lang)
	for _, s := range sentences {
		doc.AddSentence(strings.Fields(s)...)
	}
	return doc
}

func process(t *testing.T, cfg config.Config, doc *kaf.Document) (string, *Result, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := Process(context.Background(), cfg, strings.NewReader(doc.String()), &out, opts())
	return out.String(), res, err
}

func readTrees(t *testing.T, text string) []*tree.Node {
	t.Helper()
	trees, err := tree.ReadAll(text)
	if err != nil {
		t.Fatalf("ReadAll(%q): %v", text, err)
	}
	return trees
}

// TestDogBarks tests the flat rendering of a simple English sentence.
func TestDogBarks(t *testing.T) {
	out, res, err := process(t, config.Default(), document("en", "The dog barks ."))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(out, "(ROOT (S (NP ") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected one line, got %q", out)
	}

	var forms []string
	for _, w := range readTrees(t, out)[0].Leaves() {
		forms = append(forms, w.Form)
	}
	if strings.Join(forms, " ") != "The dog barks ." {
		t.Errorf("leaves = %v", forms)
	}
	if res.Sentences != 1 || len(res.Skipped) != 0 || len(res.RunID) != 26 {
		t.Errorf("unexpected result %+v", res)
	}
}

// TestSentencesInOrder tests that sentences are rendered independently and
// concatenated in document order.
func TestSentencesInOrder(t *testing.T) {
	doc := document("en", "The dog barks .", "It sleeps", "Cats purr .")
	out, _, err := process(t, config.Default(), doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	trees := readTrees(t, out)
	if len(trees) != 3 {
		t.Fatalf("Expected 3 trees, got %d", len(trees))
	}
	for i, s := range doc.Sentences() {
		if got := len(trees[i].Leaves()); got != len(s.Tokens) {
			t.Errorf("tree %d has %d leaves, want %d", i, got, len(s.Tokens))
		}
		if trees[i].Leaves()[0].Form != s.Tokens[0].Form {
			t.Errorf("tree %d starts with %q", i, trees[i].Leaves()[0].Form)
		}
	}
}

// TestKAFRoundTrip tests that the embedded terminals point back at the
// original tokens in order.
func TestKAFRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.KAF = true
	doc := document("en", "The dog barks .", "( hello ) .")

	out, _, err := process(t, cfg, doc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	again, err := kaf.Read(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not KAF: %v", err)
	}

	trees := again.Trees()
	if len(trees) != 2 {
		t.Fatalf("Expected 2 trees, got %d", len(trees))
	}
	for i, s := range again.Sentences() {
		var got []string
		for _, term := range trees[i].Terminals {
			got = append(got, term.Span[0].ID)
		}
		if strings.Join(got, " ") != strings.Join(s.IDs(), " ") {
			t.Errorf("sentence %d terminals %v, want %v", i, got, s.IDs())
		}
	}

	procs := again.Processors("constituents")
	if len(procs) != 1 || procs[0].Name != "stanford-parse-en" || procs[0].Version != Version {
		t.Errorf("processors = %+v", procs)
	}
	if !strings.Contains(out, "<!--(-->") {
		t.Error("terminal comment should show the original bracket")
	}
}

// TestNotationsAgree tests that penn and oneline output describe the same
// trees.
func TestNotationsAgree(t *testing.T) {
	doc := document("en", "The quick brown fox jumps over the lazy dog .", "I saw a man with a telescope .")
	flat, _, err := process(t, config.Default(), doc)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Format = "penn"
	penn, _, err := process(t, cfg, doc)
	if err != nil {
		t.Fatal(err)
	}
	a, b := readTrees(t, flat), readTrees(t, penn)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("tree counts %d and %d", len(a), len(b))
	}
	for i := range a {
		if !tree.Equal(a[i], b[i]) {
			t.Errorf("tree %d differs between notations", i)
		}
	}
	if !strings.HasSuffix(penn, ")\n\n") {
		t.Errorf("penn output should end with a blank line: %q", penn)
	}
}

// TestHeadMarking tests that heads decorate labels without changing trees.
func TestHeadMarking(t *testing.T) {
	doc := document("en", "The dog barks .", "She is happy .")
	plain, _, err := process(t, config.Default(), doc)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.MarkHeads = true
	cfg.HeadPolicy = "collins"
	marked, res, err := process(t, cfg, doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(marked, tree.HeadMarker) || len(res.Warnings) != 0 {
		t.Errorf("no head markers in %q (warnings %v)", marked, res.Warnings)
	}
	a, b := readTrees(t, plain), readTrees(t, marked)
	for i := range a {
		if !tree.Equal(a[i], b[i]) || a[i].Size() != b[i].Size() {
			t.Errorf("head marking changed tree %d", i)
		}
	}
}

func TestHeadMarkingKAF(t *testing.T) {
	cfg := config.Default()
	cfg.KAF = true
	cfg.MarkHeads = true
	out, _, err := process(t, cfg, document("en", "The dog barks ."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `head="yes"`) {
		t.Error("KAF edges should carry head markers")
	}
	if strings.Contains(out, "=H") {
		t.Error("head markers leaked into labels")
	}
}

// TestHeadPolicyFallback tests that German ignores the requested policy
// and says so.
func TestHeadPolicyFallback(t *testing.T) {
	cfg := config.Default()
	cfg.MarkHeads = true
	cfg.HeadPolicy = "collins"
	out, res, err := process(t, cfg, document("de", "Der Hund bellt ."))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "negra") {
		t.Errorf("Expected a fallback warning, got %v", res.Warnings)
	}
	want := "(ROOT (S=H (NP (ART Der) (NN=H Hund)) (VVFIN=H bellt)) ($. .))\n"
	if out != want {
		t.Errorf("output %q, want %q", out, want)
	}
}

// TestEscapedBrackets tests that a literal bracket token is escaped before
// parsing and rendering.
func TestEscapedBrackets(t *testing.T) {
	out, _, err := process(t, config.Default(), document("en", "( hello ) ."))
	if err != nil {
		t.Fatal(err)
	}
	trees := readTrees(t, out)
	if len(trees) != 1 {
		t.Fatalf("brackets corrupted the output: %q", out)
	}
	leaves := trees[0].Leaves()
	if len(leaves) != 4 || leaves[0].Form != "-LRB-" || leaves[2].Form != "-RRB-" {
		t.Errorf("leaves = %+v", leaves)
	}
}

// TestHeadsNeedLanguage tests that head marking without any language is a
// configuration error and produces no output.
func TestHeadsNeedLanguage(t *testing.T) {
	cfg := config.Default()
	cfg.MarkHeads = true
	cfg.KAF = true
	out, _, err := process(t, cfg, document("", "The dog barks ."))
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if out != "" {
		t.Errorf("Expected no output, got %q", out)
	}
}

func TestLanguageFromFlagOverridesDocument(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "de"
	out, _, err := process(t, cfg, document("en", "Der Hund bellt ."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(ART Der)") {
		t.Errorf("German model not used: %q", out)
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		lang   string
		want   error
	}{
		{"unknown model", func(c *config.Config) { c.Model = "frenchPCFG" }, "en", internalerr.ErrUnknownModel},
		{"model for another language", func(c *config.Config) { c.Model = "germanPCFG" }, "en", internalerr.ErrUnknownModel},
		{"unknown language", func(c *config.Config) {}, "fr", internalerr.ErrUnknownLanguage},
		{"unknown policy", func(c *config.Config) { c.HeadPolicy = "magic" }, "en", internalerr.ErrUnknownPolicy},
	}
	for _, tt := range tests {
		cfg := config.Default()
		tt.modify(&cfg)
		out, _, err := process(t, cfg, document(tt.lang, "The dog barks ."))
		if !errors.Is(err, tt.want) || !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
		if out != "" {
			t.Errorf("%s: unexpected output %q", tt.name, out)
		}
	}
}

func TestInvalidInput(t *testing.T) {
	var out bytes.Buffer
	_, err := Process(context.Background(), config.Default(), strings.NewReader("<html></html>"), &out, opts())
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if out.Len() != 0 {
		t.Error("output written for invalid input")
	}
}

func pipeline(t *testing.T, cfg config.Config, o Options) *Pipeline {
	t.Helper()
	p, err := New(cfg, o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// TestSkipPolicy tests that a failing sentence is left out and reported.
func TestSkipPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "en"
	doc := document("en", "The dog barks .")
	doc.AddSentence()
	doc.AddSentence("Cats", "purr", ".")

	res, err := pipeline(t, cfg, opts()).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 1 || !errors.Is(res.Skipped[0], internalerr.ErrEmptySentence) {
		t.Errorf("skipped = %v", res.Skipped)
	}
	if got := len(readTrees(t, string(res.Output))); got != 2 {
		t.Errorf("Expected 2 trees, got %d", got)
	}

	cfg.KAF = true
	doc = document("en", "The dog barks .")
	doc.AddSentence()
	res, err = pipeline(t, cfg, opts()).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run (KAF): %v", err)
	}
	if len(doc.Trees()) != 1 || len(res.Skipped) != 1 {
		t.Errorf("KAF skip: %d trees, %d skipped", len(doc.Trees()), len(res.Skipped))
	}
}

// TestFailFast tests that a failing sentence aborts the document.
func TestFailFast(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "en"
	cfg.FailFast = true
	doc := document("en", "The dog barks .")
	doc.AddSentence()

	res, err := pipeline(t, cfg, opts()).Run(context.Background(), doc)
	if !internalerr.IsSentenceError(err) || !errors.Is(err, internalerr.ErrEmptySentence) {
		t.Errorf("Expected a sentence error, got %v", err)
	}
	if res != nil {
		t.Error("Expected no result on abort")
	}
}

// TestWorkersKeepOrder tests that parallel parsing reassembles sentences in
// document order.
func TestWorkersKeepOrder(t *testing.T) {
	inputs := []string{
		"The dog barks .", "It sleeps", "Cats purr .", "I saw a man with a telescope .",
		"The quick brown fox jumps over the lazy dog .", "Does the dog bark ?", ". . .",
		"She said that the market will rise in 2024 .", "colorless green ideas sleep furiously",
	}
	serial, _, err := process(t, config.Default(), document("en", inputs...))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Workers = 4
	parallel, _, err := process(t, cfg, document("en", inputs...))
	if err != nil {
		t.Fatal(err)
	}
	if serial != parallel {
		t.Errorf("parallel output differs:\n%s\nvs\n%s", serial, parallel)
	}
}

func TestCanceledRun(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "en"
	cfg.Workers = 2
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline(t, cfg, opts()).Run(ctx, document("en", "The dog barks .", "It sleeps"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestParseCache tests that a second run is served from the cache with the
// same output.
func TestParseCache(t *testing.T) {
	cache := memstore.New()
	o := opts()
	o.Cache = cache
	cfg := config.Default()
	cfg.Language = "en"
	p := pipeline(t, cfg, o)

	first, err := p.Run(context.Background(), document("en", "The dog barks .", "It sleeps"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), document("en", "The dog barks .", "It sleeps"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Output) != string(second.Output) {
		t.Errorf("cached output differs")
	}
	stats, _ := cache.Stats(context.Background())
	if stats.Entries != 2 || stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("unexpected cache stats %+v", stats)
	}
	if first.RunID == second.RunID {
		t.Error("runs should get distinct ids")
	}

	key := store.KeyFor("en", p.cacheKey, []string{"The", "dog", "barks", "."})
	e, ok, _ := cache.Get(context.Background(), key)
	if !ok || e.RunID != first.RunID || strings.Contains(e.Tree, "\n") {
		t.Errorf("cache entry = %+v", e)
	}
}

// TestCorruptCacheEntry tests that a bad cache entry is ignored.
func TestCorruptCacheEntry(t *testing.T) {
	cache := memstore.New()
	key := store.KeyFor("en", "englishPCFG#maxlen=80", []string{"The", "dog", "barks", "."})
	cache.Put(context.Background(), store.Entry{Key: key, Tree: "(ROOT (NN The)"})

	o := opts()
	o.Cache = cache
	cfg := config.Default()
	cfg.Language = "en"
	res, err := pipeline(t, cfg, o).Run(context.Background(), document("en", "The dog barks ."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(res.Output), "(ROOT (S (NP") {
		t.Errorf("unexpected output %q", res.Output)
	}
}

func TestPipelineHeadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "en"
	cfg.MarkHeads = true
	if got := pipeline(t, cfg, opts()).HeadPolicy(); got != heads.Semantic {
		t.Errorf("default English policy = %s", got)
	}
	cfg.MarkHeads = false
	if got := pipeline(t, cfg, opts()).HeadPolicy(); got != "" {
		t.Errorf("policy without head marking = %s", got)
	}
}

// TestCacheKeyCoversMaxLength tests that parses made under one length bound
// are never served to a pipeline with another.
func TestCacheKeyCoversMaxLength(t *testing.T) {
	cache := memstore.New()
	cfg := config.Default()
	cfg.Language = "en"
	cfg.MaxLength = 2
	short := Options{Registry: parser.NewRegistry(parser.Options{MaxLength: 2}), Cache: cache}
	res, err := pipeline(t, cfg, short).Run(context.Background(), document("en", "The dog barks ."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(res.Output), "(ROOT (FRAG ") {
		t.Fatalf("Expected a flat tree under the short bound, got %q", res.Output)
	}

	cfg.MaxLength = config.Default().MaxLength
	o := opts()
	o.Cache = cache
	res, err = pipeline(t, cfg, o).Run(context.Background(), document("en", "The dog barks ."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(res.Output), "(ROOT (S (NP ") {
		t.Errorf("full-length run got %q", res.Output)
	}
	if stats, _ := cache.Stats(context.Background()); stats.Entries != 2 || stats.Hits != 0 {
		t.Errorf("unexpected cache stats %+v", stats)
	}
}

func TestSharedRegistryMaxLength(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "en"
	cfg.MaxLength = 5
	if _, err := New(cfg, opts()); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a mismatched registry, got %v", err)
	}

	cfg.MaxLength = -1
	o := opts()
	o.Registry = parser.NewRegistry(parser.Options{MaxLength: -7})
	if _, err := New(cfg, o); err != nil {
		t.Errorf("unbounded lengths should agree: %v", err)
	}
}

func structuralDocument() *kaf.Document {
	doc := kaf.New("en")
	doc.AddSentence("call", "f(x)", ".")
	doc.AddSentence("Thanks", ":)")
	doc.AddSentence("I", "love", "New York", ".")
	return doc
}

// TestTokensWithStructuralCharacters tests tokens that hold brackets or
// whitespace without being a bare bracket.
func TestTokensWithStructuralCharacters(t *testing.T) {
	out, res, err := process(t, config.Default(), structuralDocument())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("skipped %v", res.Skipped)
	}
	trees := readTrees(t, out)
	if len(trees) != 3 {
		t.Fatalf("Expected 3 trees, got %d in %q", len(trees), out)
	}
	for i, s := range structuralDocument().Sentences() {
		leaves := trees[i].Leaves()
		if len(leaves) != len(s.Tokens) {
			t.Errorf("tree %d has %d leaves, want %d", i, len(leaves), len(s.Tokens))
			continue
		}
		for j, w := range leaves {
			if want := normalize.Leaf(s.Tokens[j].Form); w.Form != want {
				t.Errorf("tree %d leaf %d = %q, want %q", i, j, w.Form, want)
			}
		}
	}

	cfg := config.Default()
	cfg.KAF = true
	out, res, err = process(t, cfg, structuralDocument())
	if err != nil {
		t.Fatalf("Process (KAF): %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("KAF skipped %v", res.Skipped)
	}
	again, err := kaf.Read(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not KAF: %v", err)
	}
	kafTrees := again.Trees()
	if len(kafTrees) != 3 {
		t.Fatalf("Expected 3 KAF trees, got %d", len(kafTrees))
	}
	for i, s := range again.Sentences() {
		var got []string
		for _, term := range kafTrees[i].Terminals {
			got = append(got, term.Span[0].ID)
		}
		if strings.Join(got, " ") != strings.Join(s.IDs(), " ") {
			t.Errorf("sentence %d terminals %v, want %v", i, got, s.IDs())
		}
		for _, nt := range kafTrees[i].NonTerminals {
			if nt.Label == "x" {
				t.Errorf("sentence %d has a constituent made from token text", i)
			}
		}
	}
	for _, want := range []string{"<!--f(x)-->", "<!--:)-->", "<!--New York-->"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s", want)
		}
	}
}

func TestDocumentLanguageTag(t *testing.T) {
	cfg := config.Default()
	cfg.KAF = true
	out, _, err := process(t, cfg, document("en-US", "The dog barks ."))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(out, `name="stanford-parse-en"`) {
		t.Error("processor should name the primary language")
	}
}
