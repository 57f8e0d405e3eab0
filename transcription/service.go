package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/observability"
	"github.com/kbukum/captionkit/provider"
	"github.com/kbukum/captionkit/resilience"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/util"
)

// Config tunes the transcription service.
type Config struct {
	// DefaultLanguage is reported when the backend does not detect one.
	DefaultLanguage string `mapstructure:"default_language"`
	// MaxUploadSize is the backend's request limit, e.g. "25MB".
	MaxUploadSize string `mapstructure:"max_upload_size"`
	// MaxAttempts and RetryWait control the retry of a failed backend call.
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryWait   time.Duration `mapstructure:"retry_wait"`
	// Providers lists backends in order of preference.
	Providers []string `mapstructure:"providers"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "ja"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 2 * time.Second
	}
	if len(c.Providers) == 0 {
		c.Providers = []string{"whisper"}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if util.ParseSize(c.MaxUploadSize, 0) <= 0 {
		return fmt.Errorf("transcription.max_upload_size %q is not a valid size", c.MaxUploadSize)
	}
	return nil
}

// AudioExtractor prepares media for a backend. *media.Toolkit implements it.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, input string) (string, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// SpeakerDetector attributes segments to speakers. *speaker.Engine implements it.
type SpeakerDetector interface {
	DetectSpeakers(ctx context.Context, audioPath string, segs []speaker.TranscriptSegment) *speaker.Result
}

// Service runs transcription jobs. It is safe for concurrent use.
type Service struct {
	cfg      Config
	limit    int64
	manager  *provider.Manager[Provider]
	media    AudioExtractor
	detector SpeakerDetector
	log      *logger.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	wrapped map[string]provider.RequestResponse[AudioRequest, *Transcript]
}

// NewService creates a service. detector may be nil, which disables speaker
// detection regardless of the request.
func NewService(cfg Config, manager *provider.Manager[Provider], media AudioExtractor, detector SpeakerDetector) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		limit:    util.ParseSize(cfg.MaxUploadSize, 25<<20),
		manager:  manager,
		media:    media,
		detector: detector,
		log:      logger.Get("transcription"),
		wrapped:  make(map[string]provider.RequestResponse[AudioRequest, *Transcript]),
	}, nil
}

// WithMetrics records backend calls and errors.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Transcribe runs one job. The extracted audio is removed before returning.
func (s *Service) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.MediaPath) == "" {
		return nil, apperrors.MissingField("mediaPath")
	}
	ctx, span := observability.StartSpan(ctx, "transcription.transcribe")
	defer span.End()
	log := s.log.WithContext(ctx).WithFields(map[string]interface{}{"media_path": req.MediaPath})

	audio, err := s.media.ExtractAudio(ctx, req.MediaPath)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	defer func() {
		if err := os.Remove(audio); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove temp audio", map[string]interface{}{logger.FieldError: err.Error()})
		}
	}()

	if err := s.checkSize(audio); err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}

	backend, err := s.backend(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrProviderName, backend.Name())

	transcript, err := backend.Execute(ctx, AudioRequest{AudioPath: audio, Language: req.Language})
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Error("transcription failed", map[string]interface{}{
			logger.FieldProvider: backend.Name(),
			logger.FieldError:    err.Error(),
		})
		if s.metrics != nil {
			s.metrics.RecordError(ctx, "transcription_failed", "transcription")
		}
		if appErr, ok := apperrors.AsAppError(err); ok && !appErr.Retryable {
			return nil, appErr
		}
		return nil, apperrors.TranscriptionFailed(s.cfg.MaxAttempts, err)
	}

	if transcript == nil {
		transcript = &Transcript{}
	}
	res := &Result{
		Duration: s.duration(ctx, req.MediaPath, transcript),
		Language: firstNonEmpty(transcript.Language, req.Language, s.cfg.DefaultLanguage),
		Segments: transcript.Segments,
	}
	if res.Segments == nil {
		res.Segments = []speaker.TranscriptSegment{}
	}
	observability.SetSpanAttribute(ctx, observability.AttrSegmentCount, len(res.Segments))

	if req.EnableSpeakerDetection && len(res.Segments) > 0 && s.detector != nil {
		res.SpeakerDetection = s.detect(ctx, log, audio, res.Segments)
	}

	log.Info("transcription complete", map[string]interface{}{
		logger.FieldProvider: backend.Name(),
		logger.FieldSegments: len(res.Segments),
		"language":           res.Language,
	})
	return res, nil
}

func (s *Service) checkSize(audio string) error {
	info, err := os.Stat(audio)
	if err != nil {
		return apperrors.MediaInvalid(audio, err)
	}
	if info.Size() > s.limit {
		return apperrors.MediaTooLarge(info.Size(), s.limit)
	}
	return nil
}

// backend returns the selected provider wrapped with retries, logging,
// metrics and tracing. Wrappers are cached per provider.
func (s *Service) backend(ctx context.Context) (provider.RequestResponse[AudioRequest, *Transcript], error) {
	p, err := s.manager.Get(ctx)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("transcription").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wrapped[p.Name()]; ok {
		return w, nil
	}

	retry := resilience.ConstantRetryConfig(s.cfg.MaxAttempts, s.cfg.RetryWait)
	retry.RetryIf = shouldRetry
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.log.Warn("transcription attempt failed, retrying", map[string]interface{}{
			logger.FieldProvider: p.Name(),
			logger.FieldAttempt:  attempt,
			logger.FieldError:    err.Error(),
			"wait_ms":            wait.Milliseconds(),
		})
	}

	middlewares := []provider.Middleware[AudioRequest, *Transcript]{
		provider.WithLogging[AudioRequest, *Transcript](s.log),
		provider.WithTracing[AudioRequest, *Transcript]("transcription"),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, provider.WithMetrics[AudioRequest, *Transcript](s.metrics))
	}
	w := provider.WithResilience(
		provider.Chain(middlewares...)(asRequestResponse(p)),
		provider.ResilienceConfig{Retry: &retry},
	)
	s.wrapped[p.Name()] = w
	return w, nil
}

func shouldRetry(err error) bool {
	if !resilience.DefaultRetryIf(err) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// duration prefers the container duration and falls back to the transcript.
func (s *Service) duration(ctx context.Context, mediaPath string, t *Transcript) float64 {
	d, err := s.media.ProbeDuration(ctx, mediaPath)
	if err == nil && d > 0 {
		return d
	}
	if t.Duration > 0 {
		return t.Duration
	}
	if n := len(t.Segments); n > 0 {
		return t.Segments[n-1].End
	}
	return 0
}

func (s *Service) detect(ctx context.Context, log *logger.Logger, audio string, segs []speaker.TranscriptSegment) (res *speaker.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("speaker detection panicked, continuing without it", map[string]interface{}{
				logger.FieldError: fmt.Sprint(r),
			})
			res = nil
		}
	}()
	return s.detector.DetectSpeakers(ctx, audio, segs)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
