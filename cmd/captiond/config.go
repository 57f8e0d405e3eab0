package main

import (
	"fmt"

	"github.com/kbukum/captionkit/api"
	"github.com/kbukum/captionkit/config"
	"github.com/kbukum/captionkit/database"
	"github.com/kbukum/captionkit/media"
	"github.com/kbukum/captionkit/observability"
	"github.com/kbukum/captionkit/redis"
	"github.com/kbukum/captionkit/server"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/speaker/ffmpeg"
	"github.com/kbukum/captionkit/transcription"
	"github.com/kbukum/captionkit/transcription/whisper"
)

const serviceName = "captiond"

// Config is the full captiond configuration. Every key can be overridden by
// an environment variable, e.g. SPEAKER_SIMILARITY_THRESHOLD.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	API           api.Config           `yaml:"api" mapstructure:"api"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Speaker       speaker.Config       `yaml:"speaker" mapstructure:"speaker"`
	FFmpeg        ffmpeg.Config        `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Whisper       whisper.Config       `yaml:"whisper" mapstructure:"whisper"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Speaker.ApplyDefaults()
	c.FFmpeg.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.Observability.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	c.Observability.Environment = c.Environment
}

// Validate checks every section except whisper, whose absence only disables
// transcription.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"api", c.API.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"media", c.Media.Validate},
		{"speaker", c.Speaker.Validate},
		{"ffmpeg", c.FFmpeg.Validate},
		{"transcription", c.Transcription.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
