// Package ffmpeg measures speaker features from real audio. Each clip is cut
// to a temporary 16 kHz mono WAV, its loudness is read from ffmpeg's
// volumedetect filter and its fundamental frequency is estimated by
// autocorrelation over the decoded samples.
package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/media"
	"github.com/kbukum/captionkit/speaker"
)

// ProviderName is the registered name of this provider.
const ProviderName = "ffmpeg"

// Config tunes the measurement.
type Config struct {
	// MinF0 and MaxF0 bound the pitch search in Hz.
	MinF0 float64 `mapstructure:"min_f0"`
	MaxF0 float64 `mapstructure:"max_f0"`
	// VoicingThreshold is the normalised autocorrelation peak below which a
	// clip is treated as unvoiced.
	VoicingThreshold float64 `mapstructure:"voicing_threshold"`
	// MaxAnalysisSeconds caps how much of a clip the pitch search reads.
	MaxAnalysisSeconds float64 `mapstructure:"max_analysis_seconds"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MinF0 <= 0 {
		c.MinF0 = 70
	}
	if c.MaxF0 <= 0 {
		c.MaxF0 = 400
	}
	if c.VoicingThreshold <= 0 {
		c.VoicingThreshold = 0.3
	}
	if c.MaxAnalysisSeconds <= 0 {
		c.MaxAnalysisSeconds = 1.0
	}
}

// Validate checks the pitch range.
func (c *Config) Validate() error {
	if c.MinF0 >= c.MaxF0 {
		return fmt.Errorf("ffmpeg.min_f0 (%v) must be below max_f0 (%v)", c.MinF0, c.MaxF0)
	}
	if c.VoicingThreshold > 1 {
		return fmt.Errorf("ffmpeg.voicing_threshold must be <= 1")
	}
	return nil
}

// Provider implements speaker.FeatureProvider.
type Provider struct {
	cfg   Config
	media *media.Toolkit
	log   *logger.Logger
}

// New creates a provider on top of a media toolkit.
func New(cfg Config, tk *media.Toolkit) *Provider {
	cfg.ApplyDefaults()
	return &Provider{cfg: cfg, media: tk, log: logger.Get("speaker.ffmpeg")}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether ffmpeg is on PATH.
func (p *Provider) IsAvailable(context.Context) bool { return p.media.Available() }

// Execute measures one clip. Any failure is returned as an error; the
// caller decides how to degrade.
func (p *Provider) Execute(ctx context.Context, clip speaker.Clip) (speaker.AudioFeatures, error) {
	var f speaker.AudioFeatures
	if clip.Duration() <= 0 {
		return f, speaker.ErrEmptyClip
	}

	wavPath := p.media.TempPath(fmt.Sprintf("clip_%d", clip.Index), ".wav")
	defer func() { _ = os.Remove(wavPath) }()

	if err := p.media.TrimClip(ctx, clip.AudioPath, clip.Start, clip.End, wavPath); err != nil {
		return f, err
	}
	db, err := p.media.MeanVolume(ctx, wavPath)
	if err != nil {
		return f, err
	}
	samples, rate, err := ReadWAV(wavPath)
	if err != nil {
		return f, err
	}
	if limit := int(p.cfg.MaxAnalysisSeconds * float64(rate)); len(samples) > limit {
		// analyse the middle of long clips
		off := (len(samples) - limit) / 2
		samples = samples[off : off+limit]
	}
	f0, err := EstimateF0(samples, rate, p.cfg.MinF0, p.cfg.MaxF0, p.cfg.VoicingThreshold)
	if err != nil {
		return f, err
	}

	f = speaker.AudioFeatures{
		Volume:           NormalizeVolume(db),
		Frequency:        f0,
		Pitch:            0.9 * f0,
		SpectralCentroid: 2.5 * f0,
	}
	p.log.WithContext(ctx).Debug("clip measured", map[string]interface{}{
		logger.FieldSegmentIndex: clip.Index,
		"mean_volume_db":         db,
		"f0":                     f0,
	})
	return f, nil
}

// NormalizeVolume maps a mean level in dBFS onto [0,1], -60 dB and below
// being 0.
func NormalizeVolume(db float64) float64 {
	v := (db + 60) / 60
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
