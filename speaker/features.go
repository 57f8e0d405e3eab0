package speaker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/observability"
	"github.com/kbukum/captionkit/provider"
	"github.com/kbukum/captionkit/resilience"
)

// Clip is the slice of audio a FeatureProvider measures.
type Clip struct {
	AudioPath string
	// Index is the segment position, for logging.
	Index int
	Start float64
	End   float64
}

// Duration returns End-Start in seconds.
func (c Clip) Duration() float64 { return c.End - c.Start }

// FeatureProvider measures the features of one clip.
type FeatureProvider = provider.RequestResponse[Clip, AudioFeatures]

// ErrEmptyClip is returned for clips with zero or negative length.
var ErrEmptyClip = errors.New("speaker: empty clip")

// FeatureExtractor measures every segment with a FeatureProvider and
// substitutes synthetic features for any segment that cannot be measured.
type FeatureExtractor struct {
	provider FeatureProvider
	fallback *SyntheticProvider
	bulkhead *resilience.Bulkhead
	timeout  time.Duration
	log      *logger.Logger
	metrics  *observability.Metrics
}

// NewFeatureExtractor creates an extractor. A nil fallback draws from the
// global random source.
func NewFeatureExtractor(p FeatureProvider, fallback *SyntheticProvider, cfg Config, log *logger.Logger, metrics *observability.Metrics) *FeatureExtractor {
	if fallback == nil {
		fallback = NewSyntheticProvider()
	}
	if log == nil {
		log = logger.Get("speaker")
	}
	return &FeatureExtractor{
		provider: p,
		fallback: fallback,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "speaker-features",
			MaxConcurrent: cfg.MaxConcurrency,
			MaxWait:       -1,
		}),
		timeout: cfg.SegmentTimeout,
		log:     log,
		metrics: metrics,
	}
}

// Extract returns one feature set per segment, in segment order.
func (e *FeatureExtractor) Extract(ctx context.Context, audioPath string, segs []TranscriptSegment) []AudioFeatures {
	out := make([]AudioFeatures, len(segs))
	var wg sync.WaitGroup
	for i, seg := range segs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = e.extractOne(ctx, Clip{AudioPath: audioPath, Index: i, Start: seg.Start, End: seg.End})
		}()
	}
	wg.Wait()
	return out
}

func (e *FeatureExtractor) extractOne(ctx context.Context, clip Clip) AudioFeatures {
	f, err := e.measure(ctx, clip)
	if err == nil {
		return f
	}
	e.log.WithContext(ctx).Warn("feature extraction failed, using synthetic features", map[string]interface{}{
		logger.FieldSegmentIndex: clip.Index,
		logger.FieldError:        err.Error(),
	})
	if e.metrics != nil {
		e.metrics.RecordFallback(ctx, "segment")
	}
	return e.fallback.Generate()
}

func (e *FeatureExtractor) measure(ctx context.Context, clip Clip) (f AudioFeatures, err error) {
	if clip.Duration() <= 0 {
		return f, ErrEmptyClip
	}
	if e.provider == nil {
		return e.fallback.Generate(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speaker: feature provider panic: %v", r)
		}
	}()

	f, err = resilience.ExecuteWithResult(e.bulkhead, ctx, func() (AudioFeatures, error) {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.provider.Execute(cctx, clip)
	})
	if err != nil {
		return f, err
	}
	return f, checkFeatures(f)
}

func checkFeatures(f AudioFeatures) error {
	for _, v := range []float64{f.Volume, f.Frequency, f.Pitch, f.SpectralCentroid} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("speaker: invalid features %+v", f)
		}
	}
	return nil
}
