package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/captionkit/caption"
	"github.com/kbukum/captionkit/util"
)

// DefaultFontName is the CJK font referenced by generated ASS styles.
const DefaultFontName = "NotoSansCJKjp-Regular"

// ASSOptions tunes ASS rendering.
type ASSOptions struct {
	// FontName overrides DefaultFontName.
	FontName string
	// Accessibility thickens the text outline.
	Accessibility bool
}

const (
	assBackground  = "&H80000000"
	assTransparent = "&H00000000"
	assMarginV     = 30
	assAlignment   = 2
)

var assFontSizes = map[string]int{
	caption.FontSizeSmall:  32,
	caption.FontSizeMedium: 36,
	caption.FontSizeLarge:  40,
}

var namedColors = map[string]string{
	"white":  "#FFFFFF",
	"black":  "#000000",
	"red":    "#FF0000",
	"green":  "#00FF00",
	"blue":   "#0000FF",
	"yellow": "#FFFF00",
}

// WriteASS renders captions as Advanced SubStation Alpha with one style per caption.
func WriteASS(w io.Writer, captions []caption.Caption, opts ASSOptions) error {
	font := opts.FontName
	if font == "" {
		font = DefaultFontName
	}
	outline := 2
	if opts.Accessibility {
		outline = 3
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(bom)
	bw.WriteString("[Script Info]\n" +
		"Title: Generated Subtitles\n" +
		"ScriptType: v4.00+\n" +
		"PlayResX: 1280\n" +
		"PlayResY: 720\n" +
		"Collisions: Normal\n" +
		"WrapStyle: 0\n" +
		"ScaledBorderAndShadow: yes\n\n")

	bw.WriteString("[V4+ Styles]\n" +
		"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for i, c := range captions {
		back := assTransparent
		if c.HasBackground {
			back = assBackground
		}
		fmt.Fprintf(bw, "Style: Caption%d,%s,%d,&H%s,&H000000,&H000000,%s,0,0,0,0,100,100,0,0,1,%d,0,%d,0,0,%d,1\n",
			i, font, fontSize(c.FontSize), HexToBGR(c.Color), back, outline, assAlignment, assMarginV)
	}

	bw.WriteString("\n[Events]\n" +
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for i, c := range captions {
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Caption%d,,0,0,0,,%s\n",
			assTime(c.StartTime), assTime(c.EndTime), i, util.CleanText(c.Text))
	}
	return bw.Flush()
}

func fontSize(name string) int {
	if size, ok := assFontSizes[name]; ok {
		return size
	}
	return assFontSizes[caption.FontSizeMedium]
}

// HexToBGR converts a #RRGGBB colour (or a basic colour name) to the
// 00BBGGRR form ASS expects. Unrecognised colours render white.
func HexToBGR(color string) string {
	if named, ok := namedColors[strings.ToLower(color)]; ok {
		color = named
	}
	if !caption.IsHexColor(color) {
		color = "#FFFFFF"
	}
	hex := strings.ToUpper(color[1:])
	return "00" + hex[4:6] + hex[2:4] + hex[0:2]
}
