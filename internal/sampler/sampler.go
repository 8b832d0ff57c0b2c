// Package sampler reduces a logit distribution over the vocabulary to a
// single emitted token. The chain applies a fixed pipeline: shortlist the top
// 40 candidates, cut to the smallest nucleus reaching cumulative probability
// 0.9, rescale by temperature 0.7, then draw one token from the resulting
// categorical distribution.
package sampler

import (
	"math"
	"math/rand"
	"time"
)

// Config configures a Chain. Zero values fall back to the default policy.
type Config struct {
	// Seed for the categorical draw. Negative means a time-derived seed is
	// taken at every Reset, so runs are not reproducible unless a caller
	// supplies an explicit seed.
	Seed int64

	TopK int
	TopP float32
	Temp float32
}

// DefaultConfig returns the fixed generation policy.
func DefaultConfig() Config {
	return Config{
		Seed: -1,
		TopK: 40,
		TopP: 0.9,
		Temp: 0.7,
	}
}

// Chain holds the ordered token-selection filters and their mutable state.
// It is owned by a single generation session and is not safe for concurrent
// use.
type Chain struct {
	cfg Config
	rng *rand.Rand

	// history receives every committed token (prompt and generated) via
	// Accept. The default policy configures no repetition penalty, but the
	// hook keeps the window so history-tracking filters can be added.
	history []int

	topIdx []int
	topVal []float32
	prob   []float64
}

const historyWindow = 64

// New builds a chain for the given config, filling unset fields from the
// default policy.
func New(cfg Config) *Chain {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = def.TopP
	}
	if cfg.Temp <= 0 {
		cfg.Temp = def.Temp
	}
	c := &Chain{cfg: cfg}
	c.Reset()
	return c
}

// Reset clears all sampling state. It must be called once per generation
// request before any tokens are accepted; with a fixed seed the chain then
// reproduces the same draws for identical input distributions.
func (c *Chain) Reset() {
	seed := c.cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	c.rng = rand.New(rand.NewSource(seed))
	c.history = c.history[:0]
}

// Accept records a token committed to the sequence, from the prompt or from
// generation, for filters that track history.
func (c *Chain) Accept(token int) {
	c.history = append(c.history, token)
	if len(c.history) > historyWindow {
		c.history = c.history[len(c.history)-historyWindow:]
	}
}

// Accepted returns how many tokens the chain has seen since the last Reset,
// capped at the history window.
func (c *Chain) Accepted() int { return len(c.history) }

// Sample runs the filter pipeline over the logits for the last decoded
// position and returns one token id.
func (c *Chain) Sample(logits []float32) int {
	if len(logits) == 0 {
		return -1
	}

	k := min(c.cfg.TopK, len(logits))
	idx, val := c.topK(logits, k)

	// Softmax over the shortlist for the nucleus cut. Subtracting the max
	// keeps the exponentials stable; the shortlist is sorted so it is the
	// first entry.
	maxv := val[0]
	if cap(c.prob) < len(val) {
		c.prob = make([]float64, len(val))
	}
	prob := c.prob[:len(val)]
	var sum float64
	for i, v := range val {
		e := math.Exp(float64(v - maxv))
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		return idx[0]
	}
	for i := range prob {
		prob[i] /= sum
	}

	// Nucleus: smallest prefix whose cumulative probability reaches TopP,
	// keeping at least one candidate.
	cut := len(prob)
	var cum float64
	for i := range prob {
		cum += prob[i]
		if float32(cum) >= c.cfg.TopP {
			cut = i + 1
			break
		}
	}

	// Temperature rescale over the surviving candidates, then one
	// categorical draw.
	invTemp := 1.0 / float64(c.cfg.Temp)
	var tsum float64
	for i := 0; i < cut; i++ {
		e := math.Exp(float64(val[i]-maxv) * invTemp)
		prob[i] = e
		tsum += e
	}
	if tsum == 0 {
		return idx[0]
	}

	r := c.rng.Float64() * tsum
	var acc float64
	for i := 0; i < cut; i++ {
		acc += prob[i]
		if r <= acc {
			return idx[i]
		}
	}
	return idx[cut-1]
}

// topK returns the indices and logit values of the k largest entries, ordered
// from largest to smallest. O(V*K) insertion, fine for small k.
func (c *Chain) topK(logits []float32, k int) ([]int, []float32) {
	if cap(c.topIdx) < k+1 {
		c.topIdx = make([]int, 0, k+1)
		c.topVal = make([]float32, 0, k+1)
	}
	idx := c.topIdx[:0]
	val := c.topVal[:0]

	for i, v := range logits {
		pos := len(val)
		for pos > 0 && val[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		idx = append(idx, 0)
		val = append(val, 0)
		copy(idx[pos+1:], idx[pos:])
		copy(val[pos+1:], val[pos:])
		idx[pos] = i
		val[pos] = v

		if len(val) > k {
			idx = idx[:k]
			val = val[:k]
		}
	}

	c.topIdx = idx
	c.topVal = val
	return idx, val
}
