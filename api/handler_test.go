package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/captionkit/caption"
	"github.com/kbukum/captionkit/database"
	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/redis"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/transcription"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDetector struct {
	mu        sync.Mutex
	audioPath string
	segs      []speaker.TranscriptSegment
}

func (f *fakeDetector) DetectSpeakers(_ context.Context, audioPath string, segs []speaker.TranscriptSegment) *speaker.Result {
	f.mu.Lock()
	f.audioPath, f.segs = audioPath, segs
	f.mu.Unlock()
	return speaker.SingleSpeakerResult(segs)
}

type fakeTranscriber struct {
	res *transcription.Result
	err error
	req transcription.Request
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req transcription.Request) (*transcription.Result, error) {
	f.req = req
	return f.res, f.err
}

type harness struct {
	engine      *gin.Engine
	detector    *fakeDetector
	transcriber *fakeTranscriber
	store       *caption.GormStore
	cache       *caption.RedisResultCache
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(),
		database.Config{DSN: filepath.Join(t.TempDir(), "api.db"), LogLevel: "silent"}, logger.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := caption.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	cache := caption.NewRedisResultCache(client, time.Hour)

	h := &harness{
		detector:    &fakeDetector{},
		transcriber: &fakeTranscriber{},
		store:       store,
		cache:       cache,
	}
	handler, err := NewHandler(cfg, Deps{
		Detector:    h.detector,
		Transcriber: h.transcriber,
		Store:       store,
		Cache:       cache,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	h.engine = gin.New()
	handler.Register(h.engine)
	return h
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func TestDetectSpeakers(t *testing.T) {
	h := newHarness(t, Config{})
	w := h.do(http.MethodPost, "/api/speakers/detect", map[string]any{
		"audioPath": "/media/a.mp3",
		"segments": []map[string]any{
			{"start": 0, "end": 1.5, "text": "こんにちは"},
			{"start": 1.5, "end": 3, "text": "はい"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	res := decodeData[speaker.Result](t, w)
	if res.SpeakerCount != 1 || len(res.Segments) != 2 || res.Segments[1].Text != "はい" {
		t.Errorf("result = %+v", res)
	}
	if h.detector.audioPath != "/media/a.mp3" || h.detector.segs[0].End != 1.5 {
		t.Errorf("detector saw %q %+v", h.detector.audioPath, h.detector.segs)
	}
}

func TestDetectSpeakersValidation(t *testing.T) {
	h := newHarness(t, Config{MaxSegments: 2, MediaRoot: "/media"})
	seg := map[string]any{"start": 0, "end": 1}

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"audioPath":`},
		{"missing audio path", map[string]any{"segments": []any{seg}}},
		{"end before start", map[string]any{"audioPath": "/media/a.mp3", "segments": []any{map[string]any{"start": 2, "end": 1}}}},
		{"negative start", map[string]any{"audioPath": "/media/a.mp3", "segments": []any{map[string]any{"start": -1, "end": 1}}}},
		{"too many segments", map[string]any{"audioPath": "/media/a.mp3", "segments": []any{seg, seg, seg}}},
		{"outside media root", map[string]any{"audioPath": "/etc/passwd", "segments": []any{seg}}},
		{"relative escape", map[string]any{"audioPath": "/media/../etc/passwd", "segments": []any{seg}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/speakers/detect", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			if code := errorCode(t, w); code != apperrors.ErrCodeInvalidInput {
				t.Errorf("code = %s", code)
			}
		})
	}
}

func TestDetectSpeakersMediaRootSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	for _, dir := range []string{root, outside} {
		if err := os.WriteFile(filepath.Join(dir, "a.wav"), []byte("RIFF"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "a.wav"), filepath.Join(root, "alias.wav")); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, Config{MediaRoot: root})
	seg := map[string]any{"start": 0, "end": 1}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"regular file", filepath.Join(root, "a.wav"), http.StatusOK},
		{"link within the root", filepath.Join(root, "alias.wav"), http.StatusOK},
		{"not yet existing file", filepath.Join(root, "new", "b.wav"), http.StatusOK},
		{"directory link leaving the root", filepath.Join(root, "escape", "a.wav"), http.StatusBadRequest},
		{"missing file behind an escaping link", filepath.Join(root, "escape", "nope.wav"), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/speakers/detect", map[string]any{"audioPath": tc.path, "segments": []any{seg}})
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tc.want, w.Body)
			}
		})
	}
}

func detectedTranscript() *transcription.Result {
	segs := []speaker.TranscriptSegment{
		{Start: 0, End: 1.5, Text: " こんにちは "},
		{Start: 1.5, End: 3, Text: "はい"},
	}
	return &transcription.Result{
		Duration: 3,
		Language: "ja",
		Segments: segs,
		SpeakerDetection: &speaker.Result{
			Segments: []speaker.SpeakerSegment{
				{TranscriptSegment: segs[0], SpeakerID: 1, Confidence: 0.8},
				{TranscriptSegment: segs[1], SpeakerID: 2, Confidence: 0.6},
			},
			SpeakerCount: 2,
			SpeakerProfiles: []speaker.SpeakerProfile{
				{ID: 1, Confidence: 0.8},
				{ID: 2, Confidence: 0.6},
			},
		},
	}
}

func TestTranscribeWithSpeakers(t *testing.T) {
	h := newHarness(t, Config{})
	h.transcriber.res = detectedTranscript()

	w := h.do(http.MethodPost, "/api/videos/vid-1/transcribe", map[string]any{
		"mediaPath":              "/media/v.mp4",
		"enableSpeakerDetection": true,
		"captionStyle":           "minimal",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if !h.transcriber.req.EnableSpeakerDetection || h.transcriber.req.MediaPath != "/media/v.mp4" {
		t.Errorf("transcriber request = %+v", h.transcriber.req)
	}

	resp := decodeData[transcribeResponse](t, w)
	if resp.SpeakerCount != 2 || len(resp.Captions) != 2 || resp.Language != "ja" {
		t.Fatalf("response = %+v", resp)
	}
	first := resp.Captions[0]
	if first.Text != "話者1： こんにちは" || first.Color != "#3B82F6" || first.FontSize != "medium" || first.HasBackground {
		t.Errorf("first caption = %+v", first)
	}
	if resp.Captions[1].Color != "#EF4444" || resp.Captions[1].StartTime != 1500 {
		t.Errorf("second caption = %+v", resp.Captions[1])
	}

	w = h.do(http.MethodGet, "/api/videos/vid-1/captions", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":2`) {
		t.Fatalf("list = %d %s", w.Code, w.Body)
	}

	w = h.do(http.MethodGet, "/api/videos/vid-1/speakers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("speakers status = %d, body %s", w.Code, w.Body)
	}
	sp := decodeData[speakersResponse](t, w)
	if len(sp.Speakers) != 2 || sp.Speakers[1].Name != "話者2" {
		t.Errorf("speakers = %+v", sp.Speakers)
	}
	if sp.Detection == nil || sp.Detection.SpeakerCount != 2 {
		t.Errorf("detection = %+v", sp.Detection)
	}
}

func TestTranscribeWithoutSpeakersInvalidatesCache(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	if err := h.cache.Put(ctx, "vid-2", detectedTranscript().SpeakerDetection); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res := detectedTranscript()
	res.SpeakerDetection = nil
	h.transcriber.res = res

	w := h.do(http.MethodPost, "/api/videos/vid-2/transcribe", map[string]any{"mediaPath": "/media/v.mp4"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decodeData[transcribeResponse](t, w)
	if resp.SpeakerCount != 0 || resp.Captions[0].Text != "こんにちは" || resp.Captions[0].SpeakerID != nil {
		t.Errorf("captions = %+v", resp.Captions)
	}
	if resp.Captions[0].FontSize != "small" || !resp.Captions[0].HasBackground {
		t.Errorf("default style not applied: %+v", resp.Captions[0])
	}
	if got, _ := h.cache.Get(ctx, "vid-2"); got != nil {
		t.Error("stale detection should be invalidated")
	}
}

func TestTranscribeErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     any
		res      *transcription.Result
		err      error
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{
			name: "no speech", path: "/api/videos/v/transcribe",
			body: map[string]any{"mediaPath": "/m.mp4"}, res: &transcription.Result{},
			wantCode: http.StatusUnprocessableEntity, wantErr: apperrors.ErrCodeMediaInvalid,
		},
		{
			name: "backend failure", path: "/api/videos/v/transcribe",
			body: map[string]any{"mediaPath": "/m.mp4"}, err: apperrors.TranscriptionFailed(3, errors.New("boom")),
			wantCode: http.StatusBadGateway, wantErr: apperrors.ErrCodeTranscriptionFailed,
		},
		{
			name: "too large", path: "/api/videos/v/transcribe",
			body: map[string]any{"mediaPath": "/m.mp4"}, err: apperrors.MediaTooLarge(30<<20, 25<<20),
			wantCode: http.StatusRequestEntityTooLarge, wantErr: apperrors.ErrCodeMediaTooLarge,
		},
		{
			name: "unknown style", path: "/api/videos/v/transcribe",
			body:     map[string]any{"mediaPath": "/m.mp4", "captionStyle": "neon"},
			wantCode: http.StatusBadRequest, wantErr: apperrors.ErrCodeInvalidInput,
		},
		{
			name: "bad video id", path: "/api/videos/a.b/transcribe",
			body:     map[string]any{"mediaPath": "/m.mp4"},
			wantCode: http.StatusBadRequest, wantErr: apperrors.ErrCodeInvalidInput,
		},
		{
			name: "missing media path", path: "/api/videos/v/transcribe",
			body:     map[string]any{},
			wantCode: http.StatusBadRequest, wantErr: apperrors.ErrCodeInvalidInput,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			h.transcriber.res, h.transcriber.err = tc.res, tc.err
			w := h.do(http.MethodPost, tc.path, tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			if code := errorCode(t, w); code != tc.wantErr {
				t.Errorf("code = %s", code)
			}
			if list, _ := h.store.ListByVideo(context.Background(), "v"); len(list) != 0 {
				t.Errorf("failed job stored %d captions", len(list))
			}
		})
	}
}

func TestExportCaptions(t *testing.T) {
	h := newHarness(t, Config{})
	h.transcriber.res = detectedTranscript()
	if w := h.do(http.MethodPost, "/api/videos/vid/transcribe", map[string]any{
		"mediaPath": "/m.mp4", "enableSpeakerDetection": true,
	}); w.Code != http.StatusCreated {
		t.Fatalf("transcribe = %d %s", w.Code, w.Body)
	}

	w := h.do(http.MethodGet, "/api/videos/vid/captions/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("srt status = %d, body %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-subrip") {
		t.Errorf("content type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="vid.srt"` {
		t.Errorf("disposition = %s", cd)
	}
	if !strings.Contains(w.Body.String(), "00:00:01,500 --> 00:00:03,000\n話者2： はい") {
		t.Errorf("srt body = %q", w.Body.String())
	}

	w = h.do(http.MethodGet, "/api/videos/vid/captions/export?format=ass", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "&H00F6823B") {
		t.Errorf("ass = %d %q", w.Code, w.Body.String())
	}

	if w := h.do(http.MethodGet, "/api/videos/vid/captions/export?format=docx", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", w.Code)
	}
	if w := h.do(http.MethodGet, "/api/videos/none/captions/export", nil); w.Code != http.StatusNotFound {
		t.Errorf("empty video status = %d", w.Code)
	}
}

func TestSpeakersNotFound(t *testing.T) {
	h := newHarness(t, Config{})
	w := h.do(http.MethodGet, "/api/videos/nothing/speakers", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != apperrors.ErrCodeNotFound {
		t.Errorf("status = %d, body %s", w.Code, w.Body)
	}
}

func TestUpdateAndDeleteCaption(t *testing.T) {
	h := newHarness(t, Config{})
	saved, err := h.store.ReplaceForVideo(context.Background(), "vid", caption.FromSegments("vid",
		[]speaker.TranscriptSegment{{Start: 0, End: 1, Text: "a"}}, caption.Style{FontSize: "small", Color: "#FFFFFF"}))
	if err != nil {
		t.Fatalf("ReplaceForVideo: %v", err)
	}
	id := saved[0].ID.String()

	w := h.do(http.MethodPatch, "/api/captions/"+id, map[string]any{"text": "edited", "color": "#10B981"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", w.Code, w.Body)
	}
	updated := decodeData[caption.Caption](t, w)
	if updated.Text != "edited" || updated.Color != "#10B981" {
		t.Errorf("updated = %+v", updated)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"empty patch", http.MethodPatch, "/api/captions/" + id, map[string]any{}, http.StatusBadRequest},
		{"invalid colour", http.MethodPatch, "/api/captions/" + id, map[string]any{"color": "red"}, http.StatusBadRequest},
		{"bad uuid", http.MethodPatch, "/api/captions/123", map[string]any{"text": "x"}, http.StatusBadRequest},
		{"missing", http.MethodPatch, "/api/captions/" + uuid.NewString(), map[string]any{"text": "x"}, http.StatusNotFound},
		{"delete", http.MethodDelete, "/api/captions/" + id, nil, http.StatusNoContent},
		{"delete again", http.MethodDelete, "/api/captions/" + id, nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := h.do(tc.method, tc.path, tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tc.want, w.Body)
			}
		})
	}
}

func TestNewHandlerValidation(t *testing.T) {
	deps := Deps{Detector: &fakeDetector{}, Transcriber: &fakeTranscriber{}, Store: caption.NewGormStore(nil)}
	if _, err := NewHandler(Config{DefaultCaptionStyle: "neon"}, deps); err == nil {
		t.Error("expected error for unknown default style")
	}
	if _, err := NewHandler(Config{MediaRoot: "relative"}, deps); err == nil {
		t.Error("expected error for relative media root")
	}
	if _, err := NewHandler(Config{}, Deps{}); err == nil {
		t.Error("expected error for missing deps")
	}
	if _, err := NewHandler(Config{}, deps); err != nil {
		t.Errorf("NewHandler: %v", err)
	}
}
