package speaker

// Aggregate averages features and confidence per speaker id, in order of
// first appearance.
func Aggregate(segs []SpeakerSegment) []SpeakerProfile {
	type sums struct {
		n, volume, pitch, frequency, confidence float64
	}
	var order []int
	byID := make(map[int]*sums)
	for _, seg := range segs {
		s, ok := byID[seg.SpeakerID]
		if !ok {
			s = &sums{}
			byID[seg.SpeakerID] = s
			order = append(order, seg.SpeakerID)
		}
		s.n++
		s.volume += seg.Features.Volume
		s.pitch += seg.Features.Pitch
		s.frequency += seg.Features.Frequency
		s.confidence += seg.Confidence
	}

	profiles := make([]SpeakerProfile, 0, len(order))
	for _, id := range order {
		s := byID[id]
		profiles = append(profiles, SpeakerProfile{
			ID:           id,
			AvgVolume:    s.volume / s.n,
			AvgPitch:     s.pitch / s.n,
			AvgFrequency: s.frequency / s.n,
			Confidence:   s.confidence / s.n,
		})
	}
	return profiles
}
