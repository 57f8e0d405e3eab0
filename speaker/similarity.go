package speaker

import "math"

// Per-dimension weights and scales of the feature distance. Volume is
// already in [0,1]; the others are divided by a typical spread.
const (
	volumeWeight    = 2.0
	frequencyWeight = 1.5
	frequencyScale  = 400.0
	pitchWeight     = 1.0
	pitchScale      = 300.0
	centroidWeight  = 0.8
	centroidScale   = 2000.0

	// maxDistance maps to similarity 0.
	maxDistance = 2.5
)

// Distance is the weighted Euclidean distance between two feature sets.
func Distance(a, b AudioFeatures) float64 {
	dv := volumeWeight * (a.Volume - b.Volume)
	df := frequencyWeight * (a.Frequency - b.Frequency) / frequencyScale
	dp := pitchWeight * (a.Pitch - b.Pitch) / pitchScale
	dc := centroidWeight * (a.SpectralCentroid - b.SpectralCentroid) / centroidScale
	return math.Sqrt(dv*dv + df*df + dp*dp + dc*dc)
}

// Similarity maps Distance onto [0,1], 1 being identical.
func Similarity(a, b AudioFeatures) float64 {
	return math.Max(0, 1-Distance(a, b)/maxDistance)
}
