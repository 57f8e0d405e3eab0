package api

import (
	"github.com/kbukum/captionkit/caption"
	"github.com/kbukum/captionkit/speaker"
)

type segmentBody struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
	Text  string  `json:"text"`
}

type detectRequest struct {
	AudioPath string        `json:"audioPath" validate:"required"`
	Segments  []segmentBody `json:"segments" validate:"dive"`
}

func (r detectRequest) transcriptSegments() []speaker.TranscriptSegment {
	out := make([]speaker.TranscriptSegment, len(r.Segments))
	for i, s := range r.Segments {
		out[i] = speaker.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return out
}

type transcribeRequest struct {
	MediaPath              string `json:"mediaPath" validate:"required"`
	Language               string `json:"language" validate:"omitempty,min=2,max=8"`
	EnableSpeakerDetection bool   `json:"enableSpeakerDetection"`
	CaptionStyle           string `json:"captionStyle"`
}

type transcribeResponse struct {
	Captions     []caption.Caption `json:"captions"`
	Duration     float64           `json:"duration"`
	Language     string            `json:"language"`
	SpeakerCount int               `json:"speakerCount"`
}

type speakersResponse struct {
	Speakers  []caption.Speaker `json:"speakers"`
	Detection *speaker.Result   `json:"detection,omitempty"`
}
