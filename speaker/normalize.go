package speaker

// Normalize renumbers speaker ids densely in order of first appearance, so
// the first speaker heard is 1. The input is not modified.
func Normalize(segs []SpeakerSegment) []SpeakerSegment {
	mapping := make(map[int]int)
	out := make([]SpeakerSegment, len(segs))
	for i, seg := range segs {
		id, ok := mapping[seg.SpeakerID]
		if !ok {
			id = len(mapping) + 1
			mapping[seg.SpeakerID] = id
		}
		seg.SpeakerID = id
		out[i] = seg
	}
	return out
}
