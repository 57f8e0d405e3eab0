package speaker

import (
	"fmt"
	"math"
)

// ClusterState is the running set of speaker profiles. Profile i belongs to
// speaker i+1.
type ClusterState struct {
	Profiles []AudioFeatures
}

// bestMatch returns the index of the most similar profile, or -1 when no
// profile has a similarity above zero. Ties keep the earliest profile.
func (s *ClusterState) bestMatch(f AudioFeatures, penalty float64) (int, float64) {
	best, bestSim := -1, 0.0
	for i, p := range s.Profiles {
		sim := Similarity(f, p) * penalty
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best, bestSim
}

func (s *ClusterState) add(f AudioFeatures) int {
	s.Profiles = append(s.Profiles, f)
	return len(s.Profiles)
}

func (s *ClusterState) update(i int, f AudioFeatures, alpha float64) {
	p := &s.Profiles[i]
	keep := 1 - alpha
	p.Volume = p.Volume*keep + f.Volume*alpha
	p.Frequency = p.Frequency*keep + f.Frequency*alpha
	p.Pitch = p.Pitch*keep + f.Pitch*alpha
	p.SpectralCentroid = p.SpectralCentroid*keep + f.SpectralCentroid*alpha
}

// Clusterer assigns speaker ids to segments in order.
type Clusterer struct {
	cfg     Config
	lexical *LexicalClassifier
}

// NewClusterer creates a clusterer. lexical may be nil.
func NewClusterer(cfg Config, lexical *LexicalClassifier) *Clusterer {
	return &Clusterer{cfg: cfg, lexical: lexical}
}

// Cluster runs a fresh ClusterState over the segments.
func (c *Clusterer) Cluster(features []AudioFeatures, segs []TranscriptSegment) ([]SpeakerSegment, error) {
	return c.ClusterWith(&ClusterState{}, features, segs)
}

// ClusterWith runs over the segments starting from state, which is updated
// in place.
func (c *Clusterer) ClusterWith(state *ClusterState, features []AudioFeatures, segs []TranscriptSegment) ([]SpeakerSegment, error) {
	if len(features) != len(segs) {
		return nil, fmt.Errorf("speaker: %d feature sets for %d segments", len(features), len(segs))
	}

	out := make([]SpeakerSegment, len(segs))
	for i, seg := range segs {
		f := features[i]
		var longPause, volumeJump bool
		if i > 0 {
			longPause = seg.Start-segs[i-1].End > c.cfg.PauseThreshold
			volumeJump = math.Abs(f.Volume-features[i-1].Volume) > c.cfg.VolumeJumpThreshold
		}

		id, conf := c.assign(state, f, seg.Text, i, longPause, volumeJump)
		out[i] = SpeakerSegment{
			TranscriptSegment: seg,
			SpeakerID:         id,
			Confidence:        conf,
			Features:          f,
		}
	}
	return out, nil
}

func (c *Clusterer) assign(state *ClusterState, f AudioFeatures, text string, index int, longPause, volumeJump bool) (int, float64) {
	if id := c.lexical.Classify(text, index); id > 0 {
		return id, c.cfg.LexicalConfidence
	}

	penalty := 1.0
	if longPause || volumeJump {
		penalty = c.cfg.SwitchPenalty
	}
	best, sim := state.bestMatch(f, penalty)

	switch {
	case best < 0,
		sim < c.cfg.SimilarityThreshold,
		longPause && sim < c.cfg.PauseSimilarityThreshold,
		volumeJump && sim < c.cfg.VolumeJumpSimilarityThreshold:
		return state.add(f), c.cfg.NewSpeakerConfidence
	}

	state.update(best, f, c.cfg.LearningRate)
	return best + 1, sim
}
