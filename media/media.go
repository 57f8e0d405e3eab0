package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/process"
)

// Toolkit runs ffmpeg and ffprobe.
type Toolkit struct {
	cfg  Config
	exec process.Executor
	log  *logger.Logger
}

// New creates a Toolkit. A nil executor runs commands directly.
func New(cfg Config, exec process.Executor, log *logger.Logger) *Toolkit {
	cfg.ApplyDefaults()
	if exec == nil {
		exec = process.Direct
	}
	if log == nil {
		log = logger.Get("media")
	}
	return &Toolkit{cfg: cfg, exec: exec, log: log}
}

// Available reports whether both binaries resolve.
func (t *Toolkit) Available() bool {
	return process.LookPath(t.cfg.FFmpegPath) && process.LookPath(t.cfg.FFprobePath)
}

// TempPath returns a fresh path in the scratch directory.
func (t *Toolkit) TempPath(prefix, ext string) string {
	return filepath.Join(t.cfg.TempDir, prefix+"_"+uuid.NewString()+ext)
}

// ExtractAudio writes a mono 22.05 kHz mp3 of input's audio track and returns
// its path. The caller removes the file. A failed or empty extraction leaves
// nothing behind.
func (t *Toolkit) ExtractAudio(ctx context.Context, input string) (string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return "", apperrors.MediaInvalid(input, err)
	}
	out := t.TempPath("audio", ".mp3")
	log := t.log.WithContext(ctx).WithFields(map[string]interface{}{"input": input, "size": info.Size()})

	res, err := t.exec.Run(ctx, process.Command{
		Binary:  t.cfg.FFmpegPath,
		Args:    []string{"-i", input, "-vn", "-ar", "22050", "-ac", "1", "-b:a", "64k", "-f", "mp3", out, "-y"},
		Timeout: t.cfg.ExtractTimeout,
	})
	if err == nil {
		err = nonEmpty(out)
	}
	if err != nil {
		_ = os.Remove(out)
		log.Error("audio extraction failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"stderr":          res.StderrTail(3),
		})
		return "", apperrors.MediaInvalid(input, err)
	}
	log.Debug("audio extracted", map[string]interface{}{"output": out})
	return out, nil
}

func nonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("audio extraction produced an empty file")
	}
	return nil
}

// ProbeDuration returns the container duration of path in seconds.
func (t *Toolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	res, err := t.exec.Run(ctx, process.Command{
		Binary:  t.cfg.FFprobePath,
		Args:    []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path},
		Timeout: t.cfg.ProbeTimeout,
	})
	if err != nil {
		return 0, apperrors.MediaInvalid(path, err)
	}
	d, err := ParseDuration(string(res.Stdout))
	if err != nil {
		return 0, apperrors.MediaInvalid(path, err)
	}
	return d, nil
}

// ParseDuration parses ffprobe's bare duration output.
func ParseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("no duration reported")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}

// TrimClip writes [start, end) of audio to out as 16 kHz mono WAV.
func (t *Toolkit) TrimClip(ctx context.Context, audio string, start, end float64, out string) error {
	if end <= start {
		return fmt.Errorf("media: empty clip %.3f-%.3f", start, end)
	}
	_, err := t.exec.Run(ctx, process.Command{
		Binary: t.cfg.FFmpegPath,
		Args: []string{
			"-y", "-v", "error",
			"-ss", formatSeconds(start),
			"-t", formatSeconds(end - start),
			"-i", audio,
			"-ac", "1", "-ar", "16000", "-f", "wav",
			out,
		},
		Timeout: t.cfg.ProbeTimeout,
	})
	if err != nil {
		return fmt.Errorf("media: trim clip: %w", err)
	}
	return nil
}

// MeanVolume runs the volumedetect filter over path and returns mean_volume in dB.
func (t *Toolkit) MeanVolume(ctx context.Context, path string) (float64, error) {
	res, err := t.exec.Run(ctx, process.Command{
		Binary:  t.cfg.FFmpegPath,
		Args:    []string{"-hide_banner", "-nostats", "-i", path, "-af", "volumedetect", "-f", "null", "-"},
		Timeout: t.cfg.ProbeTimeout,
	})
	if err != nil {
		return 0, fmt.Errorf("media: volumedetect: %w", err)
	}
	return ParseMeanVolume(string(res.Stderr))
}

var meanVolumeRe = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+|-inf)\s*dB`)

// ParseMeanVolume extracts mean_volume from volumedetect output. Digital
// silence is reported as -inf and returned as -91 dB.
func ParseMeanVolume(out string) (float64, error) {
	m := meanVolumeRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("media: mean_volume not found in ffmpeg output")
	}
	if m[1] == "-inf" {
		return -91, nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("media: parse mean_volume %q: %w", m[1], err)
	}
	return v, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
