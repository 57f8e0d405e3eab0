package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/captionkit/caption"
	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/server"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/subtitle"
	"github.com/kbukum/captionkit/transcription"
	"github.com/kbukum/captionkit/validation"
)

// Detector attributes transcript segments to speakers. *speaker.Engine implements it.
type Detector interface {
	DetectSpeakers(ctx context.Context, audioPath string, segs []speaker.TranscriptSegment) *speaker.Result
}

// Transcriber runs transcription jobs. *transcription.Service implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error)
}

// Deps are the collaborators of a Handler. Cache may be nil.
type Deps struct {
	Detector    Detector
	Transcriber Transcriber
	Store       caption.Store
	Cache       caption.ResultCache
}

// Handler serves the captioning API.
type Handler struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
}

// NewHandler creates a handler.
func NewHandler(cfg Config, deps Deps) (*Handler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := caption.StyleFor(cfg.DefaultCaptionStyle); err != nil {
		return nil, fmt.Errorf("api.default_caption_style: %w", err)
	}
	if deps.Detector == nil || deps.Transcriber == nil || deps.Store == nil {
		return nil, errors.New("api: detector, transcriber and store are required")
	}
	return &Handler{cfg: cfg, deps: deps, log: logger.Get("api")}, nil
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.POST("/speakers/detect", h.detectSpeakers)

	videos := g.Group("/videos/:id")
	videos.POST("/transcribe", h.transcribe)
	videos.GET("/captions", h.listCaptions)
	videos.GET("/captions/export", h.exportCaptions)
	videos.GET("/speakers", h.speakers)

	g.PATCH("/captions/:id", h.updateCaption)
	g.DELETE("/captions/:id", h.deleteCaption)
}

func (h *Handler) detectSpeakers(c *gin.Context) {
	var req detectRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := validation.New().MaxItems("segments", len(req.Segments), h.cfg.MaxSegments).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.checkPath("audioPath", req.AudioPath); err != nil {
		server.RespondWithError(c, err)
		return
	}

	res := h.deps.Detector.DetectSpeakers(c.Request.Context(), req.AudioPath, req.transcriptSegments())
	server.RespondOK(c, res)
}

func (h *Handler) transcribe(c *gin.Context) {
	videoID, err := videoParam(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req transcribeRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.checkPath("mediaPath", req.MediaPath); err != nil {
		server.RespondWithError(c, err)
		return
	}
	styleName := req.CaptionStyle
	if styleName == "" {
		styleName = h.cfg.DefaultCaptionStyle
	}
	style, err := caption.StyleFor(styleName)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	log := h.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldVideoID, videoID))

	res, err := h.deps.Transcriber.Transcribe(ctx, transcription.Request{
		MediaPath:              req.MediaPath,
		Language:               req.Language,
		EnableSpeakerDetection: req.EnableSpeakerDetection,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if len(res.Segments) == 0 {
		server.RespondWithError(c, apperrors.MediaInvalid(req.MediaPath, errors.New("no speech detected")))
		return
	}

	var captions []caption.Caption
	speakerCount := 0
	if req.EnableSpeakerDetection && res.SpeakerDetection != nil {
		captions = caption.FromDetection(videoID, res.SpeakerDetection, style)
		speakerCount = res.SpeakerDetection.SpeakerCount
	} else {
		captions = caption.FromSegments(videoID, res.Segments, style)
	}

	saved, err := h.deps.Store.ReplaceForVideo(ctx, videoID, captions)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.cacheResult(ctx, log, videoID, res.SpeakerDetection)

	log.Info("captions generated", logger.Fields(
		"captions", len(saved),
		logger.FieldSpeakerCount, speakerCount,
		"style", style.Name,
	))
	server.RespondCreated(c, transcribeResponse{
		Captions:     saved,
		Duration:     res.Duration,
		Language:     res.Language,
		SpeakerCount: speakerCount,
	})
}

// cacheResult stores res for the speakers endpoint, or drops a stale entry
// when the new captions carry no detection. Cache failures are logged only.
func (h *Handler) cacheResult(ctx context.Context, log *logger.Logger, videoID string, res *speaker.Result) {
	if h.deps.Cache == nil {
		return
	}
	var err error
	if res != nil {
		err = h.deps.Cache.Put(ctx, videoID, res)
	} else {
		err = h.deps.Cache.Invalidate(ctx, videoID)
	}
	if err != nil {
		log.Warn("speaker result cache update failed", logger.ErrorFields("cache", err))
	}
}

func (h *Handler) listCaptions(c *gin.Context) {
	videoID, err := videoParam(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	captions, err := h.deps.Store.ListByVideo(c.Request.Context(), videoID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if captions == nil {
		captions = []caption.Caption{}
	}
	server.RespondList(c, captions, len(captions))
}

func (h *Handler) exportCaptions(c *gin.Context) {
	videoID, err := videoParam(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	format, err := subtitle.ParseFormat(c.Query("format"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	captions, err := h.deps.Store.ListByVideo(c.Request.Context(), videoID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if len(captions) == 0 {
		server.RespondWithError(c, apperrors.NotFound("captions", videoID))
		return
	}

	var buf bytes.Buffer
	opts := subtitle.ASSOptions{FontName: h.cfg.ExportFont, Accessibility: h.cfg.AccessibleExport}
	if err := subtitle.Write(&buf, format, captions, opts); err != nil {
		server.RespondWithError(c, apperrors.Internal(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, videoID, format.Extension()))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) speakers(c *gin.Context) {
	videoID, err := videoParam(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	captions, err := h.deps.Store.ListByVideo(ctx, videoID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	var detection *speaker.Result
	if h.deps.Cache != nil {
		detection, err = h.deps.Cache.Get(ctx, videoID)
		if err != nil {
			h.log.WithContext(ctx).Warn("speaker result cache read failed", logger.ErrorFields("cache", err))
			detection = nil
		}
	}
	if len(captions) == 0 && detection == nil {
		server.RespondWithError(c, apperrors.NotFound("captions", videoID))
		return
	}
	server.RespondOK(c, speakersResponse{
		Speakers:  caption.SpeakersFromCaptions(captions),
		Detection: detection,
	})
}

func (h *Handler) updateCaption(c *gin.Context) {
	id, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var patch caption.Patch
	if err := bindJSON(c, &patch); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if patch.Empty() {
		server.RespondWithError(c, apperrors.Validation("no fields to update"))
		return
	}
	updated, err := h.deps.Store.Update(c.Request.Context(), id, patch)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, updated)
}

func (h *Handler) deleteCaption(c *gin.Context) {
	id, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.deps.Store.Delete(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// checkPath rejects paths outside MediaRoot. Symlinks are resolved first, so
// a link inside the root cannot reach a file outside it.
func (h *Handler) checkPath(field, path string) error {
	if h.cfg.MediaRoot == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return apperrors.InvalidInput(field, "is not a valid path")
	}
	rel, err := filepath.Rel(resolveExisting(h.cfg.MediaRoot), resolveExisting(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return apperrors.InvalidInput(field, "must be inside the media root")
	}
	return nil
}

// resolveExisting evaluates symlinks along the longest existing prefix of an
// absolute path and appends the part that does not exist yet.
func resolveExisting(path string) string {
	path = filepath.Clean(path)
	rest := ""
	for p := path; ; {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func videoParam(c *gin.Context) (string, error) {
	id := c.Param("id")
	if err := validation.New().
		Required("id", id).
		Custom(id == "" || videoIDPattern.MatchString(id), "id", "must be 1-64 letters, digits, '-' or '_'").
		Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// bindJSON decodes the body into dst and runs struct validation.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.Validation("request body is not valid JSON").WithCause(err)
	}
	return validation.Validate(dst)
}
