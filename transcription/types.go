package transcription

import "github.com/kbukum/captionkit/speaker"

// AudioRequest is what a backend receives.
type AudioRequest struct {
	AudioPath string `json:"audioPath"`
	// Language is an ISO-639-1 hint. Empty lets the backend detect it.
	Language string `json:"language,omitempty"`
}

// Transcript is what a backend returns.
type Transcript struct {
	Text     string                      `json:"text"`
	Language string                      `json:"language,omitempty"`
	Duration float64                     `json:"duration,omitempty"`
	Segments []speaker.TranscriptSegment `json:"segments"`
}

// Request is a transcription job for one media file.
type Request struct {
	MediaPath              string `json:"mediaPath" validate:"required"`
	Language               string `json:"language,omitempty" validate:"omitempty,min=2,max=8"`
	EnableSpeakerDetection bool   `json:"enableSpeakerDetection"`
}

// Result is the outcome of a transcription job. SpeakerDetection is nil when
// detection was not requested, there was nothing to attribute, or it failed.
type Result struct {
	Duration         float64                     `json:"duration"`
	Language         string                      `json:"language"`
	Segments         []speaker.TranscriptSegment `json:"segments"`
	SpeakerDetection *speaker.Result             `json:"speakerDetection,omitempty"`
}
