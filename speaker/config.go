package speaker

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every threshold the engine uses. On a Config built as a
// literal, zero thresholds are replaced by the defaults in ApplyDefaults, so a
// partially filled config is fine. A Config derived from DefaultConfig keeps
// whatever thresholds it carries, zero included.
type Config struct {
	// PauseThreshold is the gap in seconds above which the previous speaker
	// is assumed to have stopped.
	PauseThreshold float64 `mapstructure:"pause_threshold"`
	// VolumeJumpThreshold is the volume change between consecutive segments
	// that counts as a turn cue.
	VolumeJumpThreshold float64 `mapstructure:"volume_jump_threshold"`
	// SwitchPenalty scales every similarity when a pause or volume jump is seen.
	SwitchPenalty float64 `mapstructure:"switch_penalty"`

	SimilarityThreshold           float64 `mapstructure:"similarity_threshold"`
	PauseSimilarityThreshold      float64 `mapstructure:"pause_similarity_threshold"`
	VolumeJumpSimilarityThreshold float64 `mapstructure:"volume_jump_similarity_threshold"`

	LexicalConfidence    float64 `mapstructure:"lexical_confidence"`
	NewSpeakerConfidence float64 `mapstructure:"new_speaker_confidence"`
	// LearningRate is the EMA weight of a new segment when a profile is updated.
	LearningRate float64 `mapstructure:"learning_rate"`

	// BlipDuration is the longest interruption, in seconds, that smoothing
	// folds back into the surrounding speaker.
	BlipDuration          float64 `mapstructure:"blip_duration"`
	SmoothedConfidenceCap float64 `mapstructure:"smoothed_confidence_cap"`

	// SegmentTimeout bounds a single feature-provider call.
	SegmentTimeout time.Duration `mapstructure:"segment_timeout"`
	// MaxConcurrency bounds parallel feature extraction.
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// LexicalPatterns are the per-speaker phrase lists, speaker 1 first.
	LexicalPatterns [][]string `mapstructure:"lexical_patterns"`

	// SyntheticSeed makes synthetic features reproducible. 0 means random.
	SyntheticSeed uint64 `mapstructure:"synthetic_seed"`

	defaulted bool
}

// DefaultLexicalPatterns are Japanese conversational markers. The first list
// leans towards a polite host register, the second towards a casual guest.
func DefaultLexicalPatterns() [][]string {
	return [][]string{
		{"はい", "そうですね", "なるほど", "ええ", "という", "みたいな"},
		{"うん", "そうそう", "へー", "おー", "やん", "やっぱ"},
		{"まあ", "でも", "ただ", "あの", "ちょっと", "やっぱり"},
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields. Thresholds are filled only once, so
// a threshold set to zero after DefaultConfig stays zero.
func (c *Config) ApplyDefaults() {
	if !c.defaulted {
		c.applyThresholdDefaults()
		c.defaulted = true
	}
	if c.SegmentTimeout <= 0 {
		c.SegmentTimeout = 30 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.LexicalPatterns == nil {
		c.LexicalPatterns = DefaultLexicalPatterns()
	}
}

func (c *Config) applyThresholdDefaults() {
	setDefault(&c.PauseThreshold, 1.0)
	setDefault(&c.VolumeJumpThreshold, 0.2)
	setDefault(&c.SwitchPenalty, 0.6)
	setDefault(&c.SimilarityThreshold, 0.4)
	setDefault(&c.PauseSimilarityThreshold, 0.6)
	setDefault(&c.VolumeJumpSimilarityThreshold, 0.5)
	setDefault(&c.LexicalConfidence, 0.8)
	setDefault(&c.NewSpeakerConfidence, 0.6)
	setDefault(&c.LearningRate, 0.3)
	setDefault(&c.BlipDuration, 2.0)
	setDefault(&c.SmoothedConfidenceCap, 0.6)
}

func setDefault(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Validate checks ranges. Call ApplyDefaults first.
func (c *Config) Validate() error {
	unit := map[string]float64{
		"volume_jump_threshold":            c.VolumeJumpThreshold,
		"switch_penalty":                   c.SwitchPenalty,
		"similarity_threshold":             c.SimilarityThreshold,
		"pause_similarity_threshold":       c.PauseSimilarityThreshold,
		"volume_jump_similarity_threshold": c.VolumeJumpSimilarityThreshold,
		"lexical_confidence":               c.LexicalConfidence,
		"new_speaker_confidence":           c.NewSpeakerConfidence,
		"learning_rate":                    c.LearningRate,
		"smoothed_confidence_cap":          c.SmoothedConfidenceCap,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("speaker.%s must be within [0,1], got %v", name, v)
		}
	}
	if c.PauseThreshold < 0 {
		return fmt.Errorf("speaker.pause_threshold must be >= 0")
	}
	if c.BlipDuration < 0 {
		return fmt.Errorf("speaker.blip_duration must be >= 0")
	}
	for i, list := range c.LexicalPatterns {
		for _, p := range list {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("speaker.lexical_patterns[%d] contains an empty pattern", i)
			}
		}
	}
	return nil
}
