// Package audio decodes compressed or PCM audio files into mono float32
// samples at a fixed sample rate by piping them through ffmpeg.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jsphweid/chordscribe/model"
)

// ErrUnavailable is returned when the ffmpeg binary cannot be run at all.
var ErrUnavailable = errors.New("ffmpeg is not available")

// Decoder is anything that can turn an audio file into mono PCM.
type Decoder interface {
	Decode(ctx context.Context, path string) (model.PCM, error)
}

type FFmpeg struct {
	Path       string
	SampleRate int
}

func NewFFmpeg(path string, sampleRate int) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, SampleRate: sampleRate}
}

// Check verifies that the configured binary can be found.
func (f *FFmpeg) Check() error {
	if _, err := exec.LookPath(f.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Decode downmixes and resamples path to f.SampleRate.
func (f *FFmpeg) Decode(ctx context.Context, path string) (model.PCM, error) {
	if _, err := os.Stat(path); err != nil {
		return model.PCM{}, fmt.Errorf("audio: %w", err)
	}
	if err := f.Check(); err != nil {
		return model.PCM{}, err
	}

	args := []string{
		"-hide_banner", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "f32le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, f.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return model.PCM{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return model.PCM{}, fmt.Errorf("audio: ffmpeg decode %q: %s", path, msg)
	}

	samples, err := ParseFloat32LE(stdout.Bytes())
	if err != nil {
		return model.PCM{}, fmt.Errorf("audio: %w", err)
	}
	return model.PCM{Samples: samples, SampleRate: f.SampleRate}, nil
}

// ParseFloat32LE reads raw little-endian float32 samples.
func ParseFloat32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("unexpected byte length %d for f32le samples", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
