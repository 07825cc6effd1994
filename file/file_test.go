package file

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jsphweid/chordscribe/constants"
	"github.com/stretchr/testify/assert"
)

func TestCreateOutputPathMap(t *testing.T) {
	res := CreateOutputPathMap([]string{"a/song.mp3", "b/song.wav", "c/other.flac"}, "out", ".json")

	assert.Equal(t, map[string]string{
		"a/song.mp3":   filepath.Join("out", "song.json"),
		"b/song.wav":   filepath.Join("out", "song-1.json"),
		"c/other.flac": filepath.Join("out", "other.json"),
	}, res)
}

func TestCreateOutputPathMapSkipsNamesOfOtherInputs(t *testing.T) {
	res := CreateOutputPathMap([]string{"x/a.wav", "y/a.mp3", "z/a-1.flac", "w/A.ogg"}, "out", ".json")

	assert.Equal(t, map[string]string{
		"x/a.wav":    filepath.Join("out", "a.json"),
		"y/a.mp3":    filepath.Join("out", "a-2.json"),
		"z/a-1.flac": filepath.Join("out", "a-1.json"),
		"w/A.ogg":    filepath.Join("out", "A-3.json"),
	}, res)

	outputs := map[string]bool{}
	for _, out := range res {
		assert.False(t, outputs[strings.ToLower(out)], out)
		outputs[strings.ToLower(out)] = true
	}
}

func TestCreateOutputPathMapRepeatedInput(t *testing.T) {
	res := CreateOutputPathMap([]string{"a/song.wav", "a/song.wav", "b/song.wav"}, "out", ".json")

	assert.Equal(t, map[string]string{
		"a/song.wav": filepath.Join("out", "song.json"),
		"b/song.wav": filepath.Join("out", "song-1.json"),
	}, res)
}

func TestSafeExtension(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(".mp3", SafeExtension("My Song.MP3", constants.AudioExtensions))
	assert.Equal(".wav", SafeExtension("../../etc/x.wav", constants.AudioExtensions))
	assert.Equal("", SafeExtension("payload.sh", constants.AudioExtensions))
	assert.Equal("", SafeExtension("noext", constants.AudioExtensions))
}
