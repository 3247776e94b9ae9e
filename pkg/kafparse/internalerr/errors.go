package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Configuration errors detected before any sentence is processed.
	ErrUnknownLanguage = fmt.Errorf("%w: unsupported language", ErrInvalidConfig)
	ErrUnknownModel    = fmt.Errorf("%w: unknown model", ErrInvalidConfig)
	ErrUnknownPolicy   = fmt.Errorf("%w: unknown head policy", ErrInvalidConfig)

	// Per-sentence structural errors.
	ErrEmptySentence = errors.New("empty sentence")
	ErrUnbalanced    = errors.New("unbalanced brackets")
	ErrLeafMismatch  = errors.New("leaf count does not match token count")
	ErrNoParse       = errors.New("no parse")
)

// SentenceError reports a structural failure for one sentence.
type SentenceError struct {
	Index int // zero-based position of the sentence in the document
	Err   error
}

func (e *SentenceError) Error() string {
	return fmt.Sprintf("sentence %d: %v", e.Index+1, e.Err)
}

func (e *SentenceError) Unwrap() error { return e.Err }

// IsSentenceError reports whether err is (or wraps) a per-sentence failure.
func IsSentenceError(err error) bool {
	var se *SentenceError
	return errors.As(err, &se)
}
