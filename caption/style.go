package caption

import (
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/kbukum/captionkit/errors"
)

// Style names.
const (
	StyleStandard = "standard"
	StyleMinimal  = "minimal"
)

// Font sizes understood by the subtitle renderers.
const (
	FontSizeSmall  = "small"
	FontSizeMedium = "medium"
	FontSizeLarge  = "large"
)

// Style is the default look applied to generated captions.
type Style struct {
	Name          string `json:"name"`
	FontSize      string `json:"fontSize"`
	Color         string `json:"color"`
	HasBackground bool   `json:"hasBackground"`
}

var styles = map[string]Style{
	StyleStandard: {Name: StyleStandard, FontSize: FontSizeSmall, Color: "#FFFFFF", HasBackground: true},
	StyleMinimal:  {Name: StyleMinimal, FontSize: FontSizeMedium, Color: "#FFFFFF", HasBackground: false},
}

// StyleFor resolves a preset by name. An empty name selects the standard preset.
func StyleFor(name string) (Style, error) {
	if name == "" {
		return styles[StyleStandard], nil
	}
	s, ok := styles[strings.ToLower(name)]
	if !ok {
		return Style{}, apperrors.InvalidInput("captionStyle", "must be one of: "+strings.Join(StyleNames(), ", "))
	}
	return s, nil
}

// StyleNames lists the known presets in sorted order.
func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for n := range styles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FontSizes lists the accepted font size names.
func FontSizes() []string {
	return []string{FontSizeSmall, FontSizeMedium, FontSizeLarge}
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsHexColor reports whether s is a #RRGGBB colour.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}
