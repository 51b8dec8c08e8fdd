package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	assert.Nil(t, err)
	assert.Equal(t, "http://localhost:8889", cfg.WhepPrimaryURL)
	assert.Equal(t, "http://localhost:8890", cfg.WhepFallbackURL)
	assert.Equal(t, "", cfg.DefaultSourceURL)
	assert.Equal(t, "/tmp/livecam-hls", cfg.ScratchDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 10, cfg.MjpegFPS)
	assert.Equal(t, "", cfg.NatsAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LIVECAM_STREAM_DEFAULT_URL", "rtsp://cam/main")
	t.Setenv("LIVECAM_MJPEG_FPS", "5")
	t.Setenv("LIVECAM_WHEP_PRIMARY_URL", "http://media-1:8889")

	cfg, err := Load("")

	assert.Nil(t, err)
	assert.Equal(t, "rtsp://cam/main", cfg.DefaultSourceURL)
	assert.Equal(t, 5, cfg.MjpegFPS)
	assert.Equal(t, "http://media-1:8889", cfg.WhepPrimaryURL)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/livecam.yml")

	assert.NotNil(t, err)
}
