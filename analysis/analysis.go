// Package analysis runs the audio to chord timeline pipeline: decode, chroma
// extraction, then classification and segmentation against the active bank.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jsphweid/chordscribe/audio"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/chroma"
	"github.com/jsphweid/chordscribe/model"
	"github.com/jsphweid/chordscribe/observe"
	"github.com/mdobak/go-xerrors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BankSource yields the bank to classify against. catalog.Store satisfies it.
type BankSource interface {
	Bank() *chord.Bank
}

type staticBank struct{ bank *chord.Bank }

func (s staticBank) Bank() *chord.Bank { return s.bank }

// StaticBank wraps a fixed bank as a BankSource.
func StaticBank(bank *chord.Bank) BankSource {
	if bank == nil {
		bank = chord.DefaultBank()
	}
	return staticBank{bank: bank}
}

type Analyzer struct {
	decoder   audio.Decoder
	extractor chroma.Extractor
	banks     BankSource
	threshold float64
	metrics   *observe.Metrics
}

type Option func(*Analyzer)

func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

func WithBanks(banks BankSource) Option {
	return func(a *Analyzer) {
		a.banks = banks
	}
}

func New(decoder audio.Decoder, extractor chroma.Extractor, opts ...Option) *Analyzer {
	a := &Analyzer{
		decoder:   decoder,
		extractor: extractor,
		banks:     StaticBank(nil),
		threshold: chord.NewClassifier(nil).Threshold(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// classifier is built per call so a catalog swap never changes the bank
// in the middle of one analysis.
func (a *Analyzer) classifier(bank *chord.Bank) *chord.Classifier {
	return chord.NewClassifier(bank, chord.WithThreshold(a.threshold))
}

func (a *Analyzer) stage(ctx context.Context, name string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordStage(ctx, name, time.Since(start).Seconds())
	}
}

func (a *Analyzer) fail(ctx context.Context, span trace.Span, err error) *Error {
	e := classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, e.Kind.String())
	if a.metrics != nil {
		a.metrics.RecordError(ctx, e.Kind.String())
	}
	level := slog.LevelWarn
	if e.Kind != KindInvalidArgument {
		level = slog.LevelError
	}
	observe.Logger(ctx).LogAttrs(ctx, level, "analysis failed",
		slog.String("kind", e.Kind.String()),
		slog.Any("error", xerrors.New(err)),
	)
	return e
}

func (a *Analyzer) succeed(ctx context.Context, span trace.Span, frames int, res *model.AnalysisResult) {
	span.SetAttributes(
		attribute.Int("chordscribe.frames", frames),
		attribute.Int("chordscribe.segments", len(res.Timeline)),
		attribute.Float64("chordscribe.duration", res.Duration),
	)
	if a.metrics != nil {
		a.metrics.RecordAnalysis(ctx, frames, len(res.Timeline))
	}
}

// AnalyzeFile decodes the file at path, extracts chroma and returns the
// chord timeline against the current bank. Failures are *Error values.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*model.AnalysisResult, error) {
	return a.AnalyzeFileWithBank(ctx, a.banks.Bank(), path)
}

// AnalyzeFileWithBank is AnalyzeFile pinned to bank, for callers that need
// the bank the labels came from (MIDI rendering). A nil bank means the
// default bank.
func (a *Analyzer) AnalyzeFileWithBank(ctx context.Context, bank *chord.Bank, path string) (*model.AnalysisResult, error) {
	ctx, span := observe.StartSpan(ctx, "analysis.AnalyzeFile")
	defer span.End()
	start := time.Now()

	t := time.Now()
	pcm, err := a.decoder.Decode(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, a.fail(ctx, span, ctx.Err())
		}
		return nil, a.fail(ctx, span, upstream("decode", err))
	}
	a.stage(ctx, "decode", t)

	t = time.Now()
	gram, err := a.extractor.Extract(ctx, pcm)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, a.fail(ctx, span, err)
		}
		return nil, a.fail(ctx, span, upstream("extract chroma", err))
	}
	a.stage(ctx, "extract", t)

	t = time.Now()
	res, err := a.classifier(bank).Analyze(gram, pcm.Duration())
	if err != nil {
		// the extractor produced something the core rejects
		return nil, a.fail(ctx, span, upstream("extract chroma", err))
	}
	a.stage(ctx, "classify", t)
	a.stage(ctx, "total", start)

	a.succeed(ctx, span, gram.NumFrames(), res)
	return res, nil
}

// AnalyzeChroma runs the core on a caller-supplied chromagram.
func (a *Analyzer) AnalyzeChroma(ctx context.Context, gram model.Chromagram, duration float64) (*model.AnalysisResult, error) {
	ctx, span := observe.StartSpan(ctx, "analysis.AnalyzeChroma")
	defer span.End()
	start := time.Now()

	res, err := a.classifier(a.banks.Bank()).Analyze(gram, duration)
	if err != nil {
		return nil, a.fail(ctx, span, err)
	}
	a.stage(ctx, "classify", start)

	a.succeed(ctx, span, gram.NumFrames(), res)
	return res, nil
}

// Bank is the bank the next analysis will use.
func (a *Analyzer) Bank() *chord.Bank {
	return a.banks.Bank()
}
