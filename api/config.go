package api

import (
	"fmt"
	"path/filepath"
)

// Config holds API settings.
type Config struct {
	// MediaRoot restricts audioPath and mediaPath to files below this
	// directory. Empty allows any path.
	MediaRoot string `mapstructure:"media_root"`
	// MaxSegments caps the segments accepted by the detect endpoint.
	MaxSegments int `mapstructure:"max_segments"`
	// DefaultCaptionStyle applies when a transcribe request names none.
	DefaultCaptionStyle string `mapstructure:"default_caption_style"`
	// ExportFont is the font referenced by ASS exports.
	ExportFont string `mapstructure:"export_font"`
	// AccessibleExport thickens ASS outlines.
	AccessibleExport bool `mapstructure:"accessible_export"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxSegments <= 0 {
		c.MaxSegments = 5000
	}
	if c.DefaultCaptionStyle == "" {
		c.DefaultCaptionStyle = "standard"
	}
	if c.MediaRoot != "" {
		c.MediaRoot = filepath.Clean(c.MediaRoot)
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.MaxSegments <= 0 {
		return fmt.Errorf("api.max_segments must be > 0")
	}
	if c.MediaRoot != "" && !filepath.IsAbs(c.MediaRoot) {
		return fmt.Errorf("api.media_root must be absolute (got %q)", c.MediaRoot)
	}
	return nil
}
