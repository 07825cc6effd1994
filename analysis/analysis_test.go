package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jsphweid/chordscribe/catalog"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/model"
	"github.com/jsphweid/chordscribe/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeDecoder struct {
	pcm model.PCM
	err error
}

func (f fakeDecoder) Decode(ctx context.Context, path string) (model.PCM, error) {
	return f.pcm, f.err
}

type fakeExtractor struct {
	gram model.Chromagram
	err  error
}

func (f fakeExtractor) Extract(ctx context.Context, pcm model.PCM) (model.Chromagram, error) {
	return f.gram, f.err
}

// gram builds a 12×N chromagram whose frames are the given pitch-class sets,
// one frame per half second.
func gram(frames ...[]int) model.Chromagram {
	m := make([][]float64, 12)
	for pc := range m {
		m[pc] = make([]float64, len(frames))
	}
	times := make([]float64, len(frames))
	for i, pcs := range frames {
		for _, pc := range pcs {
			m[pc][i] = 1
		}
		times[i] = float64(i) * 0.5
	}
	return model.Chromagram{Matrix: m, Times: times, HopSeconds: 0.5}
}

var twoSeconds = model.PCM{Samples: make([]float32, 44100), SampleRate: 22050}

func TestAnalyzeFile(t *testing.T) {
	a := New(
		fakeDecoder{pcm: twoSeconds},
		fakeExtractor{gram: gram([]int{0, 4, 7}, []int{0, 4, 7}, []int{7, 11, 2}, []int{7, 11, 2}, nil)},
	)

	res, err := a.AnalyzeFile(context.Background(), "song.wav")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(2.0, res.Duration)
	assert.Equal(model.ChordTimeline{
		{Time: 0, Chord: "C"},
		{Time: 1, Chord: "G"},
		{Time: 2, Chord: model.NoChord},
	}, res.Timeline)
}

func TestAnalyzeFileDecodeFailureIsUpstream(t *testing.T) {
	a := New(fakeDecoder{err: errors.New("moov atom not found")}, fakeExtractor{})

	res, err := a.AnalyzeFile(context.Background(), "broken.m4a")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Contains(t, err.Error(), "moov atom not found")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "upstream", e.Kind.String())
}

func TestAnalyzeFileExtractFailureIsUpstream(t *testing.T) {
	a := New(fakeDecoder{pcm: twoSeconds}, fakeExtractor{err: errors.New("bad frame size")})

	_, err := a.AnalyzeFile(context.Background(), "song.wav")
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestAnalyzeFileMalformedChromaIsUpstream(t *testing.T) {
	g := gram([]int{0, 4, 7})
	g.Times = nil
	a := New(fakeDecoder{pcm: twoSeconds}, fakeExtractor{gram: g})

	_, err := a.AnalyzeFile(context.Background(), "song.wav")
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestAnalyzeFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := New(fakeDecoder{err: fmt.Errorf("signal: killed")}, fakeExtractor{})

	_, err := a.AnalyzeFile(ctx, "song.wav")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestAnalyzeChroma(t *testing.T) {
	a := New(nil, nil)

	res, err := a.AnalyzeChroma(context.Background(), gram([]int{9, 0, 4}, []int{9, 0, 4}), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ChordTimeline{{Time: 0, Chord: "Am"}}, res.Timeline)

	bad := gram([]int{0})
	bad.Matrix = bad.Matrix[:6]
	_, err = a.AnalyzeChroma(context.Background(), bad, 1)
	assert.ErrorIs(t, err, chord.ErrInvalidArgument)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestAnalyzerUsesCurrentBank(t *testing.T) {
	store := catalog.NewStore(nil)
	a := New(nil, nil, WithBanks(store))
	g := gram([]int{1, 4, 8})

	res, err := a.AnalyzeChroma(context.Background(), g, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "C#", res.Timeline[0].Chord)

	bank, err := chord.NewBank(model.ChordTemplate{Label: "C#m", Vector: chord.Triad(1, chord.Minor)})
	require.NoError(t, err)
	store.Swap(bank)

	// C# E G# is exactly C#m; no major template left to match
	res, err = a.AnalyzeChroma(context.Background(), g, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "C#m", res.Timeline[0].Chord)
	assert.Equal(t, 1, a.Bank().Len())
}

func TestAnalyzerThreshold(t *testing.T) {
	a := New(nil, nil, WithThreshold(0.99))
	g := gram([]int{0, 4, 7, 1})

	res, err := a.AnalyzeChroma(context.Background(), g, 0.5)
	require.NoError(t, err)
	assert.Equal(t, model.NoChord, res.Timeline[0].Chord)
}

func TestAnalyzerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	a := New(fakeDecoder{err: errors.New("nope")}, fakeExtractor{}, WithMetrics(m))
	_, _ = a.AnalyzeChroma(context.Background(), gram([]int{0, 4, 7}, nil, nil), 1.5)
	_, _ = a.AnalyzeFile(context.Background(), "x.wav")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if s, ok := met.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[met.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), sums["chordscribe.frames.classified"])
	assert.Equal(t, int64(2), sums["chordscribe.segments.emitted"])
	assert.Equal(t, int64(1), sums["chordscribe.analysis.errors"])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidArgument, KindOf(fmt.Errorf("wrapped: %w", chord.ErrInvalidArgument)))
	assert.Equal(t, KindUpstream, KindOf(fmt.Errorf("wrapped: %w", ErrUpstream)))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindUpstream, KindOf(&Error{Kind: KindUpstream, Err: errors.New("x")}))
}

func TestAnalyzeFileWithBankIgnoresLaterSwaps(t *testing.T) {
	store := catalog.NewStore(nil)
	pinned := store.Bank()
	onlyCSharp, err := chord.NewBank(model.ChordTemplate{Label: "C#", Vector: chord.Triad(1, chord.Major)})
	require.NoError(t, err)
	store.Swap(onlyCSharp)

	a := New(fakeDecoder{pcm: twoSeconds}, fakeExtractor{gram: gram([]int{0, 4, 7})}, WithBanks(store))

	res, err := a.AnalyzeFileWithBank(context.Background(), pinned, "song.wav")
	require.NoError(t, err)
	assert.Equal(t, "C", res.Timeline[0].Chord)

	res, err = a.AnalyzeFile(context.Background(), "song.wav")
	require.NoError(t, err)
	assert.Equal(t, model.NoChord, res.Timeline[0].Chord)
}
