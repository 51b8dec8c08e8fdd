package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the deployment configuration of the gateway. Everything in
// here is wiring, not core logic: upstream endpoints, the default camera
// and filesystem locations.
type Config struct {
	// WhepPrimaryURL and WhepFallbackURL are the base URLs of the
	// upstream WHEP media servers, tried in that order.
	WhepPrimaryURL  string
	WhepFallbackURL string

	// DefaultSourceURL is the RTSP origin used when a request carries no
	// src parameter. May be empty.
	DefaultSourceURL string

	// ScratchDir is where the HLS transcoder writes its manifest and
	// rolling segment files.
	ScratchDir string

	// FFmpegPath is the transcoder binary, "ffmpeg" from PATH when empty.
	FFmpegPath string

	// MjpegFPS caps the frame rate of the debug MJPEG stream.
	MjpegFPS int

	// NatsAddr enables lifecycle event publishing when non-empty.
	NatsAddr string
}

// Load reads configuration from the optional config file, a .env file if
// present, and LIVECAM_-prefixed environment variables, in ascending
// precedence.
func Load(configFile string) (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("livecam")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("whep.primary_url", "http://localhost:8889")
	v.SetDefault("whep.fallback_url", "http://localhost:8890")
	v.SetDefault("stream.default_url", "")
	v.SetDefault("hls.scratch_dir", "/tmp/livecam-hls")
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("mjpeg.fps", 10)
	v.SetDefault("nats.addr", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		WhepPrimaryURL:   v.GetString("whep.primary_url"),
		WhepFallbackURL:  v.GetString("whep.fallback_url"),
		DefaultSourceURL: v.GetString("stream.default_url"),
		ScratchDir:       v.GetString("hls.scratch_dir"),
		FFmpegPath:       v.GetString("ffmpeg.path"),
		MjpegFPS:         v.GetInt("mjpeg.fps"),
		NatsAddr:         v.GetString("nats.addr"),
	}, nil
}
