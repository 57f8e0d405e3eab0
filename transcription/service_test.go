package transcription_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/transcription"
)

type fakeMedia struct {
	dir       string
	size      int
	duration  float64
	probeErr  error
	extracted string
}

func (m *fakeMedia) ExtractAudio(_ context.Context, input string) (string, error) {
	m.extracted = filepath.Join(m.dir, "audio.mp3")
	return m.extracted, os.WriteFile(m.extracted, make([]byte, m.size), 0o600)
}

func (m *fakeMedia) ProbeDuration(context.Context, string) (float64, error) {
	return m.duration, m.probeErr
}

type fakeBackend struct {
	failures  int
	err       error
	calls     atomic.Int32
	available bool
	out       *transcription.Transcript
	lastReq   transcription.AudioRequest
}

func (b *fakeBackend) Name() string                     { return "fake" }
func (b *fakeBackend) IsAvailable(context.Context) bool { return b.available }

func (b *fakeBackend) Transcribe(_ context.Context, req transcription.AudioRequest) (*transcription.Transcript, error) {
	n := int(b.calls.Add(1))
	b.lastReq = req
	if n <= b.failures {
		return nil, b.err
	}
	return b.out, nil
}

type fakeDetector struct {
	calls int
	panic bool
}

func (d *fakeDetector) DetectSpeakers(_ context.Context, audio string, segs []speaker.TranscriptSegment) *speaker.Result {
	d.calls++
	if d.panic {
		panic("engine exploded")
	}
	return speaker.SingleSpeakerResult(segs)
}

var twoSegments = &transcription.Transcript{
	Text: "はい そうですね",
	Segments: []speaker.TranscriptSegment{
		{Start: 0, End: 2, Text: "はい"},
		{Start: 2, End: 4.5, Text: "そうですね"},
	},
}

type fixture struct {
	media    *fakeMedia
	backend  *fakeBackend
	detector *fakeDetector
	svc      *transcription.Service
}

func newFixture(t *testing.T, cfg transcription.Config) *fixture {
	t.Helper()
	f := &fixture{
		media:    &fakeMedia{dir: t.TempDir(), size: 1024, duration: 12.5},
		backend:  &fakeBackend{available: true, out: twoSegments, err: errors.New("connection reset")},
		detector: &fakeDetector{},
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Millisecond
	}
	mgr := transcription.NewManager(transcription.WithPriority("fake"))
	mgr.Add("fake", f.backend)
	svc, err := transcription.NewService(cfg, mgr, f.media, f.detector)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != code {
		t.Fatalf("err = %v, want %s", err, code)
	}
	return appErr
}

func TestTranscribeWithSpeakerDetection(t *testing.T) {
	f := newFixture(t, transcription.Config{})
	res, err := f.svc.Transcribe(context.Background(), transcription.Request{
		MediaPath:              "video.mp4",
		Language:               "ja",
		EnableSpeakerDetection: true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Duration != 12.5 || res.Language != "ja" || len(res.Segments) != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.SpeakerDetection == nil || len(res.SpeakerDetection.Segments) != 2 {
		t.Errorf("speaker detection = %+v", res.SpeakerDetection)
	}
	if f.backend.lastReq.Language != "ja" || f.backend.lastReq.AudioPath != f.media.extracted {
		t.Errorf("backend request = %+v", f.backend.lastReq)
	}
	if _, err := os.Stat(f.media.extracted); !os.IsNotExist(err) {
		t.Error("temp audio not removed")
	}
}

func TestTranscribeSkipsSpeakerDetection(t *testing.T) {
	tests := []struct {
		name    string
		enable  bool
		out     *transcription.Transcript
		panics  bool
		wantRun int
	}{
		{"disabled", false, twoSegments, false, 0},
		{"no segments", true, &transcription.Transcript{Language: "en"}, false, 0},
		{"detector panics", true, twoSegments, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, transcription.Config{})
			f.backend.out = tt.out
			f.detector.panic = tt.panics
			res, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4", EnableSpeakerDetection: tt.enable})
			if err != nil {
				t.Fatalf("Transcribe: %v", err)
			}
			if res.SpeakerDetection != nil {
				t.Errorf("speaker detection = %+v, want nil", res.SpeakerDetection)
			}
			if f.detector.calls != tt.wantRun {
				t.Errorf("detector calls = %d, want %d", f.detector.calls, tt.wantRun)
			}
			if res.Segments == nil {
				t.Error("segments must not be nil")
			}
		})
	}
}

func TestTranscribeDefaultsLanguage(t *testing.T) {
	f := newFixture(t, transcription.Config{})
	res, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Language != "ja" {
		t.Errorf("language = %q, want ja", res.Language)
	}
}

func TestTranscribeDurationFallback(t *testing.T) {
	f := newFixture(t, transcription.Config{})
	f.media.probeErr = errors.New("ffprobe missing")
	res, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Duration != 4.5 {
		t.Errorf("duration = %v, want last segment end 4.5", res.Duration)
	}
}

func TestTranscribeRetries(t *testing.T) {
	t.Run("recovers on the last attempt", func(t *testing.T) {
		f := newFixture(t, transcription.Config{})
		f.backend.failures = 2
		if _, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"}); err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if got := f.backend.calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})
	t.Run("gives up after three attempts", func(t *testing.T) {
		f := newFixture(t, transcription.Config{})
		f.backend.failures = 10
		_, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
		appErr := assertCode(t, err, apperrors.ErrCodeTranscriptionFailed)
		if appErr.Details["attempts"] != 3 || f.backend.calls.Load() != 3 {
			t.Errorf("attempts detail = %v, calls = %d", appErr.Details["attempts"], f.backend.calls.Load())
		}
		if _, err := os.Stat(f.media.extracted); !os.IsNotExist(err) {
			t.Error("temp audio not removed after failure")
		}
	})
	t.Run("does not retry permanent errors", func(t *testing.T) {
		f := newFixture(t, transcription.Config{})
		f.backend.failures = 10
		permanent := apperrors.ExternalServiceError("whisper", errors.New("invalid api key"))
		permanent.Retryable = false
		f.backend.err = permanent
		_, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
		assertCode(t, err, apperrors.ErrCodeExternalService)
		if got := f.backend.calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})
}

func TestTranscribeRejectsLargeAudio(t *testing.T) {
	f := newFixture(t, transcription.Config{MaxUploadSize: "1KB"})
	f.media.size = 2048
	_, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
	assertCode(t, err, apperrors.ErrCodeMediaTooLarge)
	if f.backend.calls.Load() != 0 {
		t.Error("backend called for oversized audio")
	}
	if _, err := os.Stat(f.media.extracted); !os.IsNotExist(err) {
		t.Error("temp audio not removed")
	}
}

func TestTranscribeNoBackend(t *testing.T) {
	f := newFixture(t, transcription.Config{})
	f.backend.available = false
	_, err := f.svc.Transcribe(context.Background(), transcription.Request{MediaPath: "v.mp4"})
	assertCode(t, err, apperrors.ErrCodeServiceUnavailable)
}

func TestTranscribeMissingMediaPath(t *testing.T) {
	f := newFixture(t, transcription.Config{})
	_, err := f.svc.Transcribe(context.Background(), transcription.Request{})
	assertCode(t, err, apperrors.ErrCodeMissingField)
}

func TestConfigValidate(t *testing.T) {
	cfg := transcription.Config{MaxUploadSize: "lots"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an invalid size")
	}
}
