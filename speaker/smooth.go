package speaker

import "math"

// Smooth folds short single-segment interruptions back into the surrounding
// speaker. A segment is rewritten when both neighbours share an id that
// differs from its own and it lasts less than cfg.BlipDuration. Decisions
// use the ids as they were before smoothing, so rewrites do not cascade.
// The input is not modified.
func Smooth(segs []SpeakerSegment, cfg Config) []SpeakerSegment {
	out := make([]SpeakerSegment, len(segs))
	copy(out, segs)
	if len(segs) <= 2 {
		return out
	}
	for i := 1; i < len(segs)-1; i++ {
		prev, cur, next := segs[i-1].SpeakerID, segs[i].SpeakerID, segs[i+1].SpeakerID
		if prev == next && cur != prev && segs[i].Duration() < cfg.BlipDuration {
			out[i].SpeakerID = prev
			out[i].Confidence = math.Min(segs[i].Confidence, cfg.SmoothedConfidenceCap)
		}
	}
	return out
}
