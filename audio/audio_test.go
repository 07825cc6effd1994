package audio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat32LE(t *testing.T) {
	samples, err := ParseFloat32LE([]byte{0, 0, 0x80, 0x3f, 0, 0, 0x80, 0xbf})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1}, samples)

	_, err = ParseFloat32LE([]byte{0, 0, 0})
	assert.Error(t, err)
}

func TestDecodeMissingBinary(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o644))

	dec := NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"), 22050)
	_, err := dec.Decode(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecodeMissingInput(t *testing.T) {
	dec := NewFFmpeg("", 22050)
	_, err := dec.Decode(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for ffmpeg needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestDecodeReadsPipe(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o644))

	// two samples: 1.0 and 0.0
	bin := fakeFFmpeg(t, `printf '\000\000\200\077\000\000\000\000'`+"\n")
	pcm, err := NewFFmpeg(bin, 100).Decode(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, pcm.Samples)
	assert.Equal(t, 100, pcm.SampleRate)
	assert.InDelta(t, 0.02, pcm.Duration(), 1e-12)
}

func TestDecodeReportsStderr(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o644))

	bin := fakeFFmpeg(t, "echo 'Invalid data found when processing input' >&2\nexit 1\n")
	_, err := NewFFmpeg(bin, 22050).Decode(context.Background(), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}
