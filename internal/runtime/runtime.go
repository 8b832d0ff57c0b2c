// Package runtime owns the loaded model weights and the single inference
// context. The Model interface is the boundary the generation session drives:
// tokenization against the model vocabulary, batched decode, logits access,
// and token-to-piece conversion. The concrete implementation binds llama.cpp
// behind the `llama` build tag; without it, Load reports the runtime as
// unavailable so the rest of the module stays testable against fakes.
package runtime

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the binary was built without the llama runtime.
var ErrUnavailable = errors.New("llama runtime not built in (rebuild with -tags llama)")

// Available reports whether this binary carries the in-process llama runtime.
func Available() bool { return llamaBuilt }

// LoadError wraps a model load failure. Load failures are fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DecodeError reports a non-zero engine status from a decode call.
type DecodeError struct {
	Status int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed with status %d", e.Status)
}

// Config holds model load parameters. Zero values are replaced by defaults.
type Config struct {
	ModelPath   string
	ContextSize int
	Threads     int
	BatchSize   int
}

const (
	DefaultContextSize = 2048
	DefaultThreads     = 4
	DefaultBatchSize   = 512
)

func (c Config) withDefaults() Config {
	if c.ContextSize <= 0 {
		c.ContextSize = DefaultContextSize
	}
	if c.Threads <= 0 {
		c.Threads = DefaultThreads
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Batch is one decode submission. All tokens belong to a single logical
// sequence; Positions assigns each token its absolute position and WantLogits
// marks the positions whose output distribution is needed. During prefill only
// the final position is marked, which skips logit computation for the rest of
// the prompt.
type Batch struct {
	Tokens     []int
	Positions  []int
	WantLogits []bool
}

// PrefillBatch builds a whole-prompt batch with logits requested at the last
// position only.
func PrefillBatch(tokens []int) Batch {
	b := Batch{
		Tokens:     tokens,
		Positions:  make([]int, len(tokens)),
		WantLogits: make([]bool, len(tokens)),
	}
	for i := range tokens {
		b.Positions[i] = i
	}
	if n := len(tokens); n > 0 {
		b.WantLogits[n-1] = true
	}
	return b
}

// StepBatch builds a single-token batch at the given position with logits
// requested.
func StepBatch(token, pos int) Batch {
	return Batch{
		Tokens:     []int{token},
		Positions:  []int{pos},
		WantLogits: []bool{true},
	}
}

// Model is the runtime handle: loaded weights, vocabulary and one mutable
// inference context. Implementations are not safe for concurrent use; the
// session layer serializes access.
type Model interface {
	// Tokenize converts text to token ids using the model vocabulary.
	// addSpecial requests BOS/leading markers; parseSpecial controls whether
	// special-token substrings in the text are parsed as control tokens
	// (prompts pass false so user text stays literal).
	Tokenize(text string, addSpecial, parseSpecial bool) ([]int, error)

	// Decode submits a batch to the engine, advancing the cached state.
	Decode(b Batch) error

	// Logits returns the output distribution at the last position marked in
	// the most recent successful Decode. The slice is only valid until the
	// next Decode call.
	Logits() []float32

	// TokenPiece returns the text fragment for a token id. An empty string
	// is a valid surface form, not an error.
	TokenPiece(id int) string

	// EOSToken returns the vocabulary's end-of-sequence token id.
	EOSToken() int

	// VocabSize returns the number of entries in the vocabulary.
	VocabSize() int

	// ContextSize returns the configured context capacity in tokens.
	ContextSize() int

	// ClearMemory wipes the cached context state so no token history leaks
	// into the next generation sequence.
	ClearMemory()

	// Close releases the model and context. The handle is unusable after.
	Close() error
}
