package caption

import (
	"strings"

	"github.com/kbukum/captionkit/validation"
)

// Patch is a partial caption update. Nil fields are left unchanged.
type Patch struct {
	StartTime     *int64  `json:"startTime,omitempty"`
	EndTime       *int64  `json:"endTime,omitempty"`
	Text          *string `json:"text,omitempty"`
	Font          *string `json:"font,omitempty"`
	FontSize      *string `json:"fontSize,omitempty"`
	Color         *string `json:"color,omitempty"`
	HasBackground *bool   `json:"hasBackground,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.StartTime == nil && p.EndTime == nil && p.Text == nil && p.Font == nil &&
		p.FontSize == nil && p.Color == nil && p.HasBackground == nil
}

// Apply validates the patch against c and writes it. c is untouched when the
// patch is invalid.
func (p Patch) Apply(c *Caption) error {
	next := *c
	if p.StartTime != nil {
		next.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		next.EndTime = *p.EndTime
	}
	if p.Text != nil {
		next.Text = strings.TrimSpace(*p.Text)
	}
	if p.Font != nil {
		next.Font = *p.Font
	}
	if p.FontSize != nil {
		next.FontSize = *p.FontSize
	}
	if p.Color != nil {
		next.Color = *p.Color
	}
	if p.HasBackground != nil {
		next.HasBackground = *p.HasBackground
	}

	v := validation.New().
		Custom(next.StartTime >= 0, "startTime", "must not be negative").
		Custom(next.EndTime >= next.StartTime, "endTime", "must not precede startTime").
		Required("text", next.Text).
		Required("font", next.Font).
		OneOf("fontSize", next.FontSize, FontSizes()).
		Custom(IsHexColor(next.Color), "color", "must be a #RRGGBB colour")
	if err := v.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
