package speaker

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/observability"
)

// Engine runs speaker attribution. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	cfg       Config
	provider  FeatureProvider
	fallback  *SyntheticProvider
	log       *logger.Logger
	metrics   *observability.Metrics
	extractor *FeatureExtractor
	clusterer clusterStage
}

// clusterStage is the assignment step run after feature extraction.
type clusterStage interface {
	Cluster(features []AudioFeatures, segs []TranscriptSegment) ([]SpeakerSegment, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the feature provider. Without one the engine measures
// nothing and uses synthetic features throughout.
func WithProvider(p FeatureProvider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithSynthetic overrides the synthetic fallback, typically with a seeded one.
func WithSynthetic(s *SyntheticProvider) Option {
	return func(e *Engine) { e.fallback = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics enables fallback and speaker-count metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get("speaker")
	}
	if e.fallback == nil {
		if cfg.SyntheticSeed != 0 {
			e.fallback = NewSeededSyntheticProvider(cfg.SyntheticSeed)
		} else {
			e.fallback = NewSyntheticProvider()
		}
	}
	e.extractor = NewFeatureExtractor(e.provider, e.fallback, cfg, e.log, e.metrics)
	e.clusterer = NewClusterer(cfg, NewLexicalClassifier(cfg.LexicalPatterns))
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// DetectSpeakers attributes every segment to a speaker. It never fails: when
// the pipeline breaks, every segment is given to a single speaker.
func (e *Engine) DetectSpeakers(ctx context.Context, audioPath string, segs []TranscriptSegment) *Result {
	ctx, span := observability.StartSpan(ctx, "speaker.detect")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSegmentCount, len(segs))

	if len(segs) == 0 {
		return EmptyResult()
	}

	start := time.Now()
	log := e.log.WithContext(ctx)

	res, err := e.detect(ctx, audioPath, segs)
	if err != nil {
		log.Error("speaker detection failed, using single speaker", map[string]interface{}{
			logger.FieldSegments: len(segs),
			logger.FieldError:    err.Error(),
		})
		observability.SetSpanError(ctx, err)
		observability.SetSpanAttribute(ctx, observability.AttrFallback, true)
		if e.metrics != nil {
			e.metrics.RecordFallback(ctx, "engine")
		}
		res = SingleSpeakerResult(segs)
	}

	observability.SetSpanAttribute(ctx, observability.AttrSpeakerCount, res.SpeakerCount)
	if e.metrics != nil {
		e.metrics.RecordSpeakers(ctx, res.SpeakerCount)
	}
	log.Info("speaker detection complete", map[string]interface{}{
		logger.FieldSegments:     len(segs),
		logger.FieldSpeakerCount: res.SpeakerCount,
		logger.FieldDuration:     time.Since(start).Milliseconds(),
	})
	return res
}

func (e *Engine) detect(ctx context.Context, audioPath string, segs []TranscriptSegment) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("speaker: panic during detection: %v", r)
		}
	}()

	features := e.extractor.Extract(ctx, audioPath, segs)
	clustered, err := e.clusterer.Cluster(features, segs)
	if err != nil {
		return nil, err
	}
	final := Normalize(Smooth(clustered, e.cfg))
	profiles := Aggregate(final)
	return &Result{
		Segments:        final,
		SpeakerCount:    len(profiles),
		SpeakerProfiles: profiles,
	}, nil
}
