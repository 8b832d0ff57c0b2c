// Package session drives one end-to-end generation: tokenize the prompt,
// prefill the context in a single batch, then decode token by token through
// the sampler chain until end-of-sequence or the token budget runs out.
//
// A Session owns the runtime handle and its sampler chain. All requests are
// served by a single worker goroutine fed by a channel, so exactly one
// generation is ever in flight against the shared context. Before each
// generation the context memory is cleared and the chain reset; state leaking
// across requests is a correctness bug, not a tuning knob.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/smolchat/inferd/internal/logger"
	"github.com/smolchat/inferd/internal/runtime"
)

// StopReason records why the decode loop terminated.
type StopReason int

const (
	StopEndOfSequence StopReason = iota
	StopMaxTokens
	StopInvalidToken
	StopDecodeFailure
)

func (r StopReason) String() string {
	switch r {
	case StopEndOfSequence:
		return "eos"
	case StopMaxTokens:
		return "max_tokens"
	case StopInvalidToken:
		return "invalid_token"
	case StopDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyPrompt rejects requests without prompt text.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrInvalidMaxTokens rejects non-positive token budgets.
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
	// ErrContextOverflow rejects prompts whose tokenization does not leave
	// room in the context. Checked before any decode work.
	ErrContextOverflow = errors.New("prompt exceeds context capacity")
	// ErrTokenize wraps tokenizer failures.
	ErrTokenize = errors.New("tokenize prompt")
	// ErrClosed is returned for requests after Close.
	ErrClosed = errors.New("session closed")
)

// Request is one generation request.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Result is the outcome of a generation. Text holds every emitted piece
// regardless of the stop reason; no stop condition discards produced text.
type Result struct {
	Text          string
	TokensEmitted int
	StopReason    StopReason
}

// TokenSampler is the sampler chain contract the session drives.
type TokenSampler interface {
	Reset()
	Accept(token int)
	Sample(logits []float32) int
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan outcome
}

type outcome struct {
	res Result
	err error
}

// Session serializes generations against one model runtime.
type Session struct {
	model runtime.Model
	chain TokenSampler
	log   logger.Logger

	jobs      chan *job
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts the worker goroutine and returns a ready session.
func New(model runtime.Model, chain TokenSampler, log logger.Logger) *Session {
	if log == nil {
		log = logger.Default()
	}
	s := &Session{
		model:  model,
		chain:  chain,
		log:    log.With("component", "session"),
		jobs:   make(chan *job),
		closed: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Generate enqueues the request and waits for its turn on the worker.
// Queued requests can be abandoned via ctx; once a generation starts it runs
// to completion, bounded only by MaxTokens.
func (s *Session) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}
	if req.MaxTokens <= 0 {
		return Result{}, ErrInvalidMaxTokens
	}

	j := &job{ctx: ctx, req: req, reply: make(chan outcome, 1)}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.closed:
		return Result{}, ErrClosed
	}

	out := <-j.reply
	return out.res, out.err
}

// Close stops the worker and releases the model. In-flight work finishes
// first. The session owns the model handle; callers must not close it
// themselves. Repeated calls are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.wg.Wait()
		err = s.model.Close()
	})
	return err
}

func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.closed:
			return
		case j := <-s.jobs:
			// The caller may have given up while queued.
			if err := j.ctx.Err(); err != nil {
				j.reply <- outcome{err: err}
				continue
			}
			res, err := s.generate(j.req)
			j.reply <- outcome{res: res, err: err}
		}
	}
}

// generate runs the full state machine: tokenize, capacity check, prefill,
// decode loop. Failures before the first emitted token are hard errors;
// failures after favor returning the partial text.
func (s *Session) generate(req Request) (Result, error) {
	// Fresh context and sampler state for every logical request.
	s.model.ClearMemory()
	s.chain.Reset()

	// Prompt text is literal user data: request BOS/special markers but do
	// not parse special-token substrings out of the text.
	tokens, err := s.model.Tokenize(req.Prompt, true, false)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTokenize, err)
	}

	capacity := s.model.ContextSize()
	if len(tokens) >= capacity {
		return Result{}, fmt.Errorf("%w: %d tokens, capacity %d", ErrContextOverflow, len(tokens), capacity)
	}

	// Prefill: the whole prompt in one batch, logits at the final position
	// only.
	if err := s.model.Decode(runtime.PrefillBatch(tokens)); err != nil {
		return Result{}, fmt.Errorf("prefill: %w", err)
	}

	for _, t := range tokens {
		s.chain.Accept(t)
	}

	var (
		text    strings.Builder
		emitted int
		pos     = len(tokens)
		eos     = s.model.EOSToken()
		vocab   = s.model.VocabSize()
		reason  = StopMaxTokens
	)

	for emitted < req.MaxTokens {
		tok := s.chain.Sample(s.model.Logits())

		// The first end-of-sequence stops generation.
		if tok == eos {
			reason = StopEndOfSequence
			break
		}
		if tok < 0 || tok >= vocab {
			s.log.Warn("sampled token out of range", "token", tok)
			reason = StopInvalidToken
			break
		}

		// An empty surface form is not an error; the token still advances
		// the sequence.
		if piece := s.model.TokenPiece(tok); piece != "" {
			text.WriteString(piece)
		}

		s.chain.Accept(tok)

		if err := s.model.Decode(runtime.StepBatch(tok, pos)); err != nil {
			s.log.Warn("decode step failed", "pos", pos, "err", err)
			reason = StopDecodeFailure
			break
		}
		pos++
		emitted++
	}

	res := Result{
		Text:          text.String(),
		TokensEmitted: emitted,
		StopReason:    reason,
	}
	s.log.Debug("generation finished",
		"prompt_tokens", len(tokens),
		"emitted", res.TokensEmitted,
		"stop", res.StopReason.String())
	return res, nil
}
