package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chordscribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("5000", cfg.Server.Port)
	assert.Equal([]string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(int64(64<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(22050, cfg.Analysis.SampleRate)
	assert.Equal(4096, cfg.Analysis.HopLength)
	assert.Equal(8192, cfg.Analysis.FrameSize)
	assert.Equal(0.5, cfg.Analysis.Threshold)
	assert.Equal("ffmpeg", cfg.Analysis.FFmpegPath)
	assert.Equal("text", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
server:
  port: "8080"
  allowed_origins: ["http://localhost:3000"]
  shutdown_timeout: 2s
analysis:
  threshold: 0.6
  catalog_path: chords.yaml
`)
	t.Setenv("CHORDSCRIBE_ANALYSIS_CONCURRENCY", "9")
	t.Setenv("CHORDSCRIBE_SERVER_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("9000", cfg.Server.Port)
	assert.Equal([]string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(0.6, cfg.Analysis.Threshold)
	assert.Equal("chords.yaml", cfg.Analysis.CatalogPath)
	assert.Equal(9, cfg.Analysis.Concurrency)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHORDSCRIBE_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CHORDSCRIBE_LOG_FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateJoinsErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
server:
  max_upload_mb: 0
log:
  format: xml
analysis:
  hop_length: -1
  threshold: 1.5
`)
	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"server.max_upload_mb", "log.format", "analysis.hop_length", "analysis.threshold"} {
		assert.Contains(t, msg, want)
	}
}
