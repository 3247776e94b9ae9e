// Package kafparse is the annotation pipeline: it reads a tokenized KAF
// document, parses every sentence and emits either bracketed tree text or
// the document with a constituency layer added.
package kafparse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tliron/commonlog"

	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/embed"
	"github.com/cognicore/kafparse/pkg/kafparse/heads"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/kaf"
	"github.com/cognicore/kafparse/pkg/kafparse/parser"
	"github.com/cognicore/kafparse/pkg/kafparse/printer"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
)

// Version is recorded in the processing history of annotated documents.
const Version = "1.0.0"

// Options carries the process-wide collaborators of a pipeline.
type Options struct {
	// Registry shares loaded models between pipelines. A private registry
	// is created when nil. A shared registry fixes the sentence length
	// bound; its options must agree with the configured max length.
	Registry *parser.Registry
	// Cache stores finished parses; nil disables caching.
	Cache store.Cache
	// Logger receives diagnostics. Defaults to the "kafparse" logger.
	Logger commonlog.Logger
	// Now stamps the processing history. Defaults to time.Now.
	Now func() time.Time
}

// Pipeline processes documents under one resolved configuration. It holds
// no per-document state and can run several documents concurrently.
type Pipeline struct {
	cfg      config.Config
	parser   *parser.Parser
	modelKey string
	// cacheKey names the model and the parser options in cache keys.
	cacheKey string
	printer  *printer.Printer
	embedder *printer.Printer
	heads    heads.Selection
	warnings []string

	cache store.Cache
	log   commonlog.Logger
	now   func() time.Time
}

// Result describes one processed document.
type Result struct {
	RunID     string
	Output    []byte
	Sentences int
	// Skipped lists the sentences left out of the output.
	Skipped []*internalerr.SentenceError
	// Warnings repeats the configuration diagnostics, such as a head
	// policy fallback.
	Warnings []string
}

// New prepares a pipeline. cfg must be resolved (see config.Resolve): all
// configuration errors surface here, before any sentence is processed.
func New(cfg config.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	popts := parser.Options{MaxLength: cfg.MaxLength}
	if opts.Registry == nil {
		opts.Registry = parser.NewRegistry(popts)
	} else if have, want := opts.Registry.Options().Limit(), popts.Limit(); have != want {
		return nil, fmt.Errorf("%w: max length %d does not match the shared parser registry (%d)", internalerr.ErrInvalidConfig, want, have)
	}
	if opts.Logger == nil {
		opts.Logger = commonlog.GetLogger("kafparse")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	lang, key, err := parser.Resolve(cfg.Language, cfg.Model)
	if err != nil {
		return nil, err
	}
	prs, err := opts.Registry.Load(lang, key)
	if err != nil {
		return nil, err
	}
	cfg.Language = lang

	p := &Pipeline{
		cfg:      cfg,
		parser:   prs,
		modelKey: key,
		cacheKey: fmt.Sprintf("%s#maxlen=%d", key, prs.Options().Limit()),
		cache:    opts.Cache,
		log:      opts.Logger,
		now:      opts.Now,
	}

	var finder heads.Finder
	if cfg.MarkHeads {
		sel, err := heads.Select(lang, heads.Policy(cfg.HeadPolicy))
		if err != nil {
			return nil, err
		}
		if sel.Fallback {
			msg := fmt.Sprintf("head policy %q is not available for %q; using %s", cfg.HeadPolicy, lang, sel.Policy)
			p.log.Warning(msg)
			p.warnings = append(p.warnings, msg)
		}
		p.heads = sel
		finder = sel.Finder
	}
	p.printer = printer.New(printer.Format(cfg.Format), finder)
	p.embedder = printer.New(printer.OneLine, finder)
	return p, nil
}

// Config returns the resolved configuration.
func (p *Pipeline) Config() config.Config { return p.cfg }

// HeadPolicy returns the head policy in effect, or "" without head marking.
func (p *Pipeline) HeadPolicy() heads.Policy { return p.heads.Policy }

// Run processes every sentence of doc. Sentence failures are skipped with a
// warning, or abort the run with a *internalerr.SentenceError when the
// configuration asks to fail fast. In KAF mode doc gains a constituency
// layer; on error no output is produced.
func (p *Pipeline) Run(ctx context.Context, doc *kaf.Document) (*Result, error) {
	res := &Result{
		RunID:     NewRunID(),
		Sentences: len(doc.Sentences()),
		Warnings:  append([]string(nil), p.warnings...),
	}
	p.log.Infof("run %s: %d sentences, language %s, model %s", res.RunID, res.Sentences, p.cfg.Language, p.modelKey)

	outcomes, err := p.parseAll(ctx, doc.Sentences(), res.RunID)
	if err != nil {
		return nil, err
	}

	var (
		out   bytes.Buffer
		texts = make([]string, len(outcomes))
	)
	for i, o := range outcomes {
		if o.err != nil {
			if err := p.fail(res, &internalerr.SentenceError{Index: i, Err: o.err}); err != nil {
				return nil, err
			}
			continue
		}
		if p.cfg.KAF {
			texts[i] = p.embedder.Render(o.tree)
		} else {
			out.WriteString(p.printer.Render(o.tree))
		}
	}

	if p.cfg.KAF {
		err := embed.Embed(doc, texts, embed.Options{Language: p.cfg.Language, Version: Version, Now: p.now})
		failed := sentenceErrors(err)
		if err != nil && len(failed) == 0 {
			return nil, err
		}
		for _, se := range failed {
			if err := p.fail(res, se); err != nil {
				return nil, err
			}
		}
		if err := doc.Write(&out); err != nil {
			return nil, err
		}
	}

	res.Output = out.Bytes()
	p.log.Infof("run %s: %d sentences, %d skipped", res.RunID, res.Sentences, len(res.Skipped))
	return res, nil
}

// fail applies the sentence error policy.
func (p *Pipeline) fail(res *Result, se *internalerr.SentenceError) error {
	if p.cfg.FailFast {
		p.log.Errorf("run %s: %v; aborting", res.RunID, se)
		return se
	}
	p.log.Warningf("run %s: skipping %v", res.RunID, se)
	res.Skipped = append(res.Skipped, se)
	return nil
}

func sentenceErrors(err error) []*internalerr.SentenceError {
	if err == nil {
		return nil
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	var out []*internalerr.SentenceError
	for _, e := range errs {
		var se *internalerr.SentenceError
		if errors.As(e, &se) {
			out = append(out, se)
		}
	}
	return out
}

// Process reads a KAF document from r, runs it under cfg and writes the
// output to w. Nothing is written unless the whole run succeeds.
func Process(ctx context.Context, cfg config.Config, r io.Reader, w io.Writer, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	doc, err := kaf.Read(r)
	if err != nil {
		return nil, err
	}
	cfg, err = cfg.Resolve(doc.Language())
	if err != nil {
		return nil, err
	}
	p, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, doc)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(res.Output); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return res, nil
}
