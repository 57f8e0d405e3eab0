package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// ErrUnvoiced is returned when no periodic component is strong enough.
var ErrUnvoiced = errors.New("ffmpeg: clip is unvoiced")

// ReadWAV decodes a PCM WAV file into mono samples in [-1,1]. Multi-channel
// files are averaged down.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("ffmpeg: %s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("ffmpeg: decode %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("ffmpeg: %s has no samples", path)
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int(1) << (depth - 1))

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	out := make([]float64, len(buf.Data)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		return nil, 0, fmt.Errorf("ffmpeg: %s has no sample rate", path)
	}
	return out, rate, nil
}

// EstimateF0 returns the fundamental frequency of samples in Hz, searching
// periods between 1/maxF0 and 1/minF0. The clip counts as voiced when the
// normalised autocorrelation peak reaches threshold.
func EstimateF0(samples []float64, rate int, minF0, maxF0, threshold float64) (float64, error) {
	minLag := int(math.Floor(float64(rate) / maxF0))
	maxLag := int(math.Ceil(float64(rate) / minF0))
	if minLag < 1 {
		minLag = 1
	}
	if len(samples) < 2*maxLag {
		return 0, fmt.Errorf("ffmpeg: clip too short for pitch analysis (%d samples)", len(samples))
	}

	x := make([]float64, len(samples))
	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	for i, s := range samples {
		x[i] = s - mean
	}

	corr := make([]float64, maxLag+2)
	peak := 0.0
	for lag := minLag; lag <= maxLag+1 && lag < len(x); lag++ {
		var num, e0, e1 float64
		for i := 0; i+lag < len(x); i++ {
			num += x[i] * x[i+lag]
			e0 += x[i] * x[i]
			e1 += x[i+lag] * x[i+lag]
		}
		if e0 == 0 || e1 == 0 {
			continue
		}
		corr[lag] = num / math.Sqrt(e0*e1)
		if lag <= maxLag && corr[lag] > peak {
			peak = corr[lag]
		}
	}
	if peak < threshold {
		return 0, ErrUnvoiced
	}

	// Multiples of the period correlate almost as well as the period itself,
	// so take the shortest lag that is a local maximum close to the peak.
	bestLag := -1
	for lag := minLag; lag <= maxLag; lag++ {
		if corr[lag] >= 0.9*peak && corr[lag] >= corr[lag-1] && corr[lag] >= corr[lag+1] {
			bestLag = lag
			break
		}
	}
	if bestLag < 0 {
		return 0, ErrUnvoiced
	}

	// parabolic interpolation around the peak
	period := float64(bestLag)
	if bestLag > minLag {
		a, b, c := corr[bestLag-1], corr[bestLag], corr[bestLag+1]
		if d := a - 2*b + c; d != 0 {
			period += 0.5 * (a - c) / d
		}
	}
	return float64(rate) / period, nil
}
