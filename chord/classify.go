package chord

import (
	"math"

	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/model"
	"github.com/jsphweid/chordscribe/util"
)

// Classifier maps chroma frames to chord labels. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	bank      *Bank
	threshold float64
}

type Option func(*Classifier)

// WithThreshold overrides the acceptance threshold (default 0.5).
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) {
		c.threshold = threshold
	}
}

// NewClassifier uses the default bank when bank is nil.
func NewClassifier(bank *Bank, opts ...Option) *Classifier {
	if bank == nil {
		bank = DefaultBank()
	}
	c := &Classifier{bank: bank, threshold: constants.DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Bank() *Bank {
	return c.bank
}

func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Normalize scales v so it sums to ~1. The epsilon keeps an all-zero frame at
// zero instead of producing NaN.
func Normalize(v model.PitchClassVector) model.PitchClassVector {
	sum := util.Sum(v[:]) + constants.NormEpsilon
	var res model.PitchClassVector
	for i, x := range v {
		res[i] = x / sum
	}
	return res
}

func dot(a, b model.PitchClassVector) float64 {
	var res float64
	for i := range a {
		res += a[i] * b[i]
	}
	return res
}

// Score returns the best matching label for chroma together with its score.
// The label is model.NoChord unless the score is strictly above the threshold.
func (c *Classifier) Score(chroma model.PitchClassVector) (string, float64) {
	normalized := Normalize(chroma)

	best := -1
	bestScore := math.Inf(-1)
	for i, t := range c.bank.templates {
		// strictly greater, so the earlier template keeps a tie
		if score := dot(normalized, t.Vector); score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || !(bestScore > c.threshold) {
		if math.IsInf(bestScore, -1) {
			bestScore = 0
		}
		return model.NoChord, bestScore
	}
	return c.bank.templates[best].Label, bestScore
}

func (c *Classifier) Classify(chroma model.PitchClassVector) string {
	label, _ := c.Score(chroma)
	return label
}
