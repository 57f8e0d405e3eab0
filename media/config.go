package media

import (
	"fmt"
	"os"
	"time"
)

// Config locates the binaries and the scratch directory.
type Config struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
	// TempDir holds extracted audio and clips. Defaults to os.TempDir().
	TempDir string `mapstructure:"temp_dir"`
	// ExtractTimeout bounds audio extraction of a whole upload.
	ExtractTimeout time.Duration `mapstructure:"extract_timeout"`
	// ProbeTimeout bounds ffprobe and the short per-clip commands.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 5 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 30 * time.Second
	}
}

// Validate checks the scratch directory exists.
func (c *Config) Validate() error {
	info, err := os.Stat(c.TempDir)
	if err != nil {
		return fmt.Errorf("media.temp_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media.temp_dir %q is not a directory", c.TempDir)
	}
	return nil
}
