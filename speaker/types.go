package speaker

// TranscriptSegment is one timed piece of transcript. Times are seconds.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns End-Start.
func (s TranscriptSegment) Duration() float64 { return s.End - s.Start }

// AudioFeatures is the acoustic fingerprint of one segment.
type AudioFeatures struct {
	// Volume is normalised to [0,1].
	Volume float64 `json:"volume"`
	// Frequency is the estimated fundamental in Hz.
	Frequency        float64 `json:"frequency"`
	Pitch            float64 `json:"pitch"`
	SpectralCentroid float64 `json:"spectralCentroid"`
}

// SpeakerSegment is a transcript segment with its speaker assignment.
type SpeakerSegment struct {
	TranscriptSegment
	SpeakerID  int           `json:"speakerId"`
	Confidence float64       `json:"confidence"`
	Features   AudioFeatures `json:"features"`
}

// SpeakerProfile summarises every segment assigned to one speaker.
type SpeakerProfile struct {
	ID           int     `json:"id"`
	AvgVolume    float64 `json:"avgVolume"`
	AvgPitch     float64 `json:"avgPitch"`
	AvgFrequency float64 `json:"avgFrequency"`
	Confidence   float64 `json:"confidence"`
}

// Result is the output of DetectSpeakers. Segments are in input order and
// speaker ids cover 1..SpeakerCount with no gaps.
type Result struct {
	Segments        []SpeakerSegment `json:"segments"`
	SpeakerCount    int              `json:"speakerCount"`
	SpeakerProfiles []SpeakerProfile `json:"speakerProfiles"`
}

// EmptyResult is the result for an empty input.
func EmptyResult() *Result {
	return &Result{
		Segments:        []SpeakerSegment{},
		SpeakerProfiles: []SpeakerProfile{},
	}
}

var fallbackFeatures = AudioFeatures{Volume: 0.5, Frequency: 200, Pitch: 150, SpectralCentroid: 1000}

// SingleSpeakerResult attributes every segment to speaker 1 with confidence
// 0.5. It is what the engine returns when the pipeline itself fails.
func SingleSpeakerResult(segs []TranscriptSegment) *Result {
	if len(segs) == 0 {
		return EmptyResult()
	}
	out := make([]SpeakerSegment, len(segs))
	for i, seg := range segs {
		out[i] = SpeakerSegment{
			TranscriptSegment: seg,
			SpeakerID:         1,
			Confidence:        0.5,
			Features:          fallbackFeatures,
		}
	}
	return &Result{
		Segments:     out,
		SpeakerCount: 1,
		SpeakerProfiles: []SpeakerProfile{{
			ID:           1,
			AvgVolume:    0.5,
			AvgPitch:     150,
			AvgFrequency: 200,
			Confidence:   0.5,
		}},
	}
}
