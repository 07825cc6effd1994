// Package chroma turns mono PCM into a chromagram: for every hop, how much
// spectral magnitude lands on each of the 12 pitch classes.
package chroma

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/model"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Extractor produces a 12 x N chromagram with one timestamp per column.
type Extractor interface {
	Extract(ctx context.Context, pcm model.PCM) (model.Chromagram, error)
}

// STFT folds a Hann-windowed short-time Fourier transform into pitch classes.
// Frames are centered: frame i covers the samples around i*HopLength, and the
// signal is zero padded by half a frame on each side.
type STFT struct {
	FrameSize int
	HopLength int
	MinFreq   float64
	MaxFreq   float64
}

func NewSTFT(frameSize, hopLength int) *STFT {
	return &STFT{
		FrameSize: frameSize,
		HopLength: hopLength,
		MinFreq:   constants.MinChromaFreq,
		MaxFreq:   constants.MaxChromaFreq,
	}
}

// how often Extract looks at ctx
const cancelCheckEvery = 256

// binPitchClasses maps every FFT bin to a pitch class, or -1 when the bin is
// outside the analysed band.
func (s *STFT) binPitchClasses(sampleRate int) []int {
	res := make([]int, s.FrameSize/2+1)
	for k := range res {
		res[k] = -1
		freq := float64(k) * float64(sampleRate) / float64(s.FrameSize)
		if k == 0 || freq < s.MinFreq || freq > s.MaxFreq {
			continue
		}
		midi := 12*math.Log2(freq/440.0) + 69
		res[k] = ((int(math.Round(midi)) % 12) + 12) % 12
	}
	return res
}

func (s *STFT) validate(pcm model.PCM) error {
	if s.FrameSize < 2 || s.HopLength < 1 {
		return fmt.Errorf("chroma: frame size %d / hop %d is invalid", s.FrameSize, s.HopLength)
	}
	if pcm.SampleRate <= 0 {
		return fmt.Errorf("chroma: sample rate %d is invalid", pcm.SampleRate)
	}
	return nil
}

func (s *STFT) Extract(ctx context.Context, pcm model.PCM) (model.Chromagram, error) {
	if err := s.validate(pcm); err != nil {
		return model.Chromagram{}, err
	}

	hopSeconds := float64(s.HopLength) / float64(pcm.SampleRate)
	matrix := make([][]float64, 12)
	if len(pcm.Samples) == 0 {
		for pc := range matrix {
			matrix[pc] = []float64{}
		}
		return model.Chromagram{Matrix: matrix, Times: []float64{}, HopSeconds: hopSeconds}, nil
	}

	numFrames := 1 + len(pcm.Samples)/s.HopLength
	for pc := range matrix {
		matrix[pc] = make([]float64, numFrames)
	}
	times := make([]float64, numFrames)

	pitchClasses := s.binPitchClasses(pcm.SampleRate)
	win := window.Hann(s.FrameSize)
	fft := fourier.NewFFT(s.FrameSize)
	buf := make([]float64, s.FrameSize)
	coeffs := make([]complex128, s.FrameSize/2+1)
	half := s.FrameSize / 2

	for i := 0; i < numFrames; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return model.Chromagram{}, err
			}
		}

		start := i*s.HopLength - half
		for k := range buf {
			j := start + k
			if j >= 0 && j < len(pcm.Samples) {
				buf[k] = float64(pcm.Samples[j]) * win[k]
			} else {
				buf[k] = 0
			}
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			if pc := pitchClasses[k]; pc >= 0 {
				matrix[pc][i] += cmplx.Abs(c)
			}
		}
		times[i] = float64(i) * hopSeconds
	}

	return model.Chromagram{Matrix: matrix, Times: times, HopSeconds: hopSeconds}, nil
}
