package kafparse

import (
	"context"
	"strings"
	"sync"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/kaf"
	"github.com/cognicore/kafparse/pkg/kafparse/normalize"
	"github.com/cognicore/kafparse/pkg/kafparse/printer"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
	"github.com/cognicore/kafparse/pkg/kafparse/tree"
)

type outcome struct {
	tree *tree.Node
	err  error
}

// parseAll parses the sentences with up to cfg.Workers goroutines. The
// outcomes are indexed like the input, whatever the completion order.
func (p *Pipeline) parseAll(ctx context.Context, sentences []kaf.Sentence, runID string) ([]outcome, error) {
	out := make([]outcome, len(sentences))
	workers := min(p.cfg.Workers, len(sentences))
	if workers <= 1 {
		for i, s := range sentences {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = p.parseSentence(ctx, s, runID)
		}
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.parseSentence(ctx, sentences[i], runID)
			}
		}()
	}

	var err error
feed:
	for i := range sentences {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseSentence normalizes and parses one sentence, going through the
// cache when there is one. Leaves always carry the original token ids.
func (p *Pipeline) parseSentence(ctx context.Context, s kaf.Sentence, runID string) outcome {
	if len(s.Tokens) == 0 {
		return outcome{err: internalerr.ErrEmptySentence}
	}
	forms := normalize.Tokens(s.Forms())
	norm := kaf.Sentence{ID: s.ID, Tokens: make([]kaf.Token, len(s.Tokens))}
	for i, t := range s.Tokens {
		norm.Tokens[i] = kaf.Token{ID: t.ID, Form: forms[i]}
	}

	var key store.Key
	if p.cache != nil {
		key = store.KeyFor(p.cfg.Language, p.cacheKey, forms)
		if n, ok := p.cached(ctx, key, norm.IDs()); ok {
			return outcome{tree: n}
		}
	}

	n, err := p.parser.Parse(norm)
	if err != nil {
		return outcome{err: err}
	}

	if p.cache != nil {
		text := strings.TrimSpace(printer.New(printer.OneLine, nil).Render(n))
		if err := p.cache.Put(ctx, store.Entry{Key: key, Tree: text, RunID: runID}); err != nil {
			p.log.Warningf("parse cache: %v", err)
		}
	}
	return outcome{tree: n}
}

func (p *Pipeline) cached(ctx context.Context, key store.Key, ids []string) (*tree.Node, bool) {
	e, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warningf("parse cache: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	n, err := tree.Read(e.Tree)
	if err == nil {
		err = n.Bind(ids)
	}
	if err != nil {
		p.log.Warningf("parse cache: ignoring entry %s: %v", key, err)
		return nil, false
	}
	return n, true
}
