// Package store defines the parse cache. Parsing is deterministic for a
// given language, model and token sequence, so a finished tree can be
// reused across runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache persists flat bracket text keyed by parser input.
type Cache interface {
	Close() error

	// Get returns the entry for key; the bool reports whether it exists.
	Get(ctx context.Context, key Key) (Entry, bool, error)
	// Put inserts or replaces an entry.
	Put(ctx context.Context, e Entry) error
	// Stats reports the number of entries and the lookups served since
	// the cache was opened.
	Stats(ctx context.Context) (Stats, error)
}

// Key identifies a parser input.
type Key string

// KeyFor derives the key of a sentence from the language, the model and
// the normalized token forms. model must also name every parser option that
// changes the tree, such as the sentence length bound.
func KeyFor(lang, model string, forms []string) Key {
	h := sha256.New()
	h.Write([]byte(lang))
	h.Write([]byte{0})
	h.Write([]byte(model))
	for _, f := range forms {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Entry is one cached parse.
type Entry struct {
	Key       Key
	Tree      string // one-line bracket text without head markers
	RunID     string // run that produced the tree
	CreatedAt time.Time
}

// Stats describes cache usage.
type Stats struct {
	Entries int64
	Hits    int64
	Misses  int64
}
