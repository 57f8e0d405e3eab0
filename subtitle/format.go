package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/captionkit/caption"
	apperrors "github.com/kbukum/captionkit/errors"
)

// Format is a subtitle file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

const bom = "\ufeff"

// Formats lists every supported format.
func Formats() []string {
	return []string{string(FormatSRT), string(FormatVTT), string(FormatASS)}
}

// ParseFormat resolves a format name. An empty name selects SRT.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	case FormatASS:
		return FormatASS, nil
	}
	return "", apperrors.InvalidInput("format", "must be one of: "+strings.Join(Formats(), ", "))
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatASS:
		return "text/x-ssa; charset=utf-8"
	default:
		return "application/x-subrip; charset=utf-8"
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Write renders captions in format f.
func Write(w io.Writer, f Format, captions []caption.Caption, opts ASSOptions) error {
	switch f {
	case FormatSRT:
		return WriteSRT(w, captions)
	case FormatVTT:
		return WriteVTT(w, captions)
	case FormatASS:
		return WriteASS(w, captions, opts)
	}
	return fmt.Errorf("unsupported subtitle format %q", f)
}

// WriteSRT renders captions as SubRip.
func WriteSRT(w io.Writer, captions []caption.Caption) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(bom)
	for i, c := range captions {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, srtTime(c.StartTime), srtTime(c.EndTime), c.Text)
	}
	return bw.Flush()
}

// WriteVTT renders captions as WebVTT.
func WriteVTT(w io.Writer, captions []caption.Caption) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for i, c := range captions {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, vttTime(c.StartTime), vttTime(c.EndTime), c.Text)
	}
	return bw.Flush()
}

// srtTime formats milliseconds as HH:MM:SS,mmm.
func srtTime(ms int64) string {
	h, m, s, rem := split(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, rem)
}

// vttTime formats milliseconds as HH:MM:SS.mmm.
func vttTime(ms int64) string {
	h, m, s, rem := split(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, rem)
}

// assTime formats milliseconds as H:MM:SS.cc, truncating to centiseconds.
func assTime(ms int64) string {
	h, m, s, rem := split(ms)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, rem/10)
}

func split(ms int64) (h, m, s, rem int64) {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return total / 3600, (total % 3600) / 60, total % 60, ms % 1000
}
