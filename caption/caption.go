package caption

import (
	"fmt"
	"math"
	"strings"

	"github.com/kbukum/captionkit/database"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/util"
)

// DefaultFont is the font every generated caption starts with.
const DefaultFont = "gothic"

// Caption is one stored on-screen caption. Times are milliseconds.
type Caption struct {
	database.BaseModel
	VideoID           string   `gorm:"index;not null" json:"videoId"`
	StartTime         int64    `gorm:"not null" json:"startTime"`
	EndTime           int64    `gorm:"not null" json:"endTime"`
	Text              string   `gorm:"not null" json:"text"`
	Font              string   `json:"font"`
	FontSize          string   `json:"fontSize"`
	Color             string   `json:"color"`
	HasBackground     bool     `json:"hasBackground"`
	SpeakerID         *int     `json:"speakerId,omitempty"`
	SpeakerConfidence *float64 `json:"speakerConfidence,omitempty"`
}

// TableName pins the table name independent of the struct name.
func (Caption) TableName() string { return "captions" }

// StartSeconds returns StartTime in seconds.
func (c Caption) StartSeconds() float64 { return float64(c.StartTime) / 1000 }

// EndSeconds returns EndTime in seconds.
func (c Caption) EndSeconds() float64 { return float64(c.EndTime) / 1000 }

var speakerPalette = [...]string{"#3B82F6", "#EF4444", "#10B981", "#F59E0B", "#8B5CF6"}

// SpeakerColor returns the display colour for a speaker id. Ids outside the
// palette get the first colour.
func SpeakerColor(id int) string {
	if id < 1 || id > len(speakerPalette) {
		return speakerPalette[0]
	}
	return speakerPalette[id-1]
}

// SpeakerLabel returns the caption prefix name for a speaker id.
func SpeakerLabel(id int) string {
	return fmt.Sprintf("話者%d", id)
}

// Millis converts seconds to whole milliseconds, rounding half up.
func Millis(seconds float64) int64 {
	return int64(math.Floor(seconds*1000 + 0.5))
}

// FromDetection builds one caption per attributed segment. The text is
// prefixed with the speaker label and coloured by speaker; size and background
// come from style.
func FromDetection(videoID string, res *speaker.Result, style Style) []Caption {
	if res == nil {
		return []Caption{}
	}
	out := make([]Caption, 0, len(res.Segments))
	for _, seg := range res.Segments {
		id := seg.SpeakerID
		out = append(out, Caption{
			VideoID:           videoID,
			StartTime:         Millis(seg.Start),
			EndTime:           Millis(seg.End),
			Text:              fmt.Sprintf("%s： %s", SpeakerLabel(id), strings.TrimSpace(seg.Text)),
			Font:              DefaultFont,
			FontSize:          style.FontSize,
			Color:             SpeakerColor(id),
			HasBackground:     style.HasBackground,
			SpeakerID:         util.Ptr(id),
			SpeakerConfidence: util.Ptr(seg.Confidence),
		})
	}
	return out
}

// FromSegments builds captions from transcript segments without speaker
// information.
func FromSegments(videoID string, segs []speaker.TranscriptSegment, style Style) []Caption {
	out := make([]Caption, 0, len(segs))
	for _, seg := range segs {
		out = append(out, Caption{
			VideoID:       videoID,
			StartTime:     Millis(seg.Start),
			EndTime:       Millis(seg.End),
			Text:          strings.TrimSpace(seg.Text),
			Font:          DefaultFont,
			FontSize:      style.FontSize,
			Color:         style.Color,
			HasBackground: style.HasBackground,
		})
	}
	return out
}
