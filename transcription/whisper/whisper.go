// Package whisper is a transcription backend for the OpenAI-compatible
// /v1/audio/transcriptions endpoint, which both the hosted Whisper API and
// self-hosted servers such as faster-whisper-server expose.
package whisper

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/captionkit/httpclient"
	"github.com/kbukum/captionkit/provider"
	"github.com/kbukum/captionkit/speaker"
	"github.com/kbukum/captionkit/transcription"
)

const (
	// ProviderName is the registered name of this backend.
	ProviderName = "whisper"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "whisper-1"
	defaultTimeout = 10 * time.Minute

	transcriptionsPath = "/v1/audio/transcriptions"
)

// Config configures the backend.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	// APIKeyHeader sends the key in this header instead of as a bearer
	// token, for self-hosted servers behind a key-checking gateway.
	APIKeyHeader string        `mapstructure:"api_key_header"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate requires an API key for the hosted endpoint.
func (c *Config) Validate() error {
	if c.APIKey == "" && strings.HasPrefix(c.BaseURL, defaultBaseURL) {
		return errors.New("whisper.api_key is required for " + defaultBaseURL)
	}
	return nil
}

// Provider implements transcription.Provider.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// New creates the backend.
func New(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	auth := httpclient.BearerAuth(cfg.APIKey)
	if cfg.APIKeyHeader != "" {
		auth = httpclient.APIKeyAuth(cfg.APIKey, cfg.APIKeyHeader)
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    auth,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory builds providers from a loosely typed map, for provider.Manager.Initialize.
func Factory() provider.Factory[transcription.Provider] {
	return func(m map[string]any) (transcription.Provider, error) {
		var cfg Config
		cfg.BaseURL, _ = m["base_url"].(string)
		cfg.APIKey, _ = m["api_key"].(string)
		cfg.APIKeyHeader, _ = m["api_key_header"].(string)
		cfg.Model, _ = m["model"].(string)
		switch v := m["timeout"].(type) {
		case time.Duration:
			cfg.Timeout = v
		case string:
			cfg.Timeout, _ = time.ParseDuration(v)
		}
		return New(cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the backend is configured. The hosted API has
// no health endpoint, so no request is made.
func (p *Provider) IsAvailable(context.Context) bool {
	return p.cfg.Validate() == nil
}

// Transcribe uploads the audio and requests segment timestamps.
func (p *Provider) Transcribe(ctx context.Context, req transcription.AudioRequest) (*transcription.Transcript, error) {
	fields := map[string]string{
		"model":           p.cfg.Model,
		"response_format": "verbose_json",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}

	var resp verboseResponse
	err := p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   transcriptionsPath,
		Body: &httpclient.MultipartBody{
			Fields:   fields,
			Repeated: map[string][]string{"timestamp_granularities[]": {"segment"}},
			Files: []httpclient.FileField{{
				FieldName:   "file",
				FileName:    filepath.Base(req.AudioPath),
				ContentType: contentType(req.AudioPath),
				Path:        req.AudioPath,
			}},
		},
	}, &resp)
	if err != nil {
		var httpErr *httpclient.Error
		if errors.As(err, &httpErr) {
			return nil, httpErr.AppError(ProviderName)
		}
		return nil, err
	}
	return resp.transcript(), nil
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (r *verboseResponse) transcript() *transcription.Transcript {
	segs := make([]speaker.TranscriptSegment, len(r.Segments))
	for i, s := range r.Segments {
		segs[i] = speaker.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return &transcription.Transcript{
		Text:     r.Text,
		Language: languageCode(r.Language),
		Duration: r.Duration,
		Segments: segs,
	}
}

// The hosted API reports the language by name ("japanese") in verbose_json.
var languageNames = map[string]string{
	"japanese": "ja",
	"english":  "en",
	"korean":   "ko",
	"chinese":  "zh",
	"spanish":  "es",
	"french":   "fr",
	"german":   "de",
}

func languageCode(lang string) string {
	if code, ok := languageNames[strings.ToLower(lang)]; ok {
		return code
	}
	return lang
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	}
	return "application/octet-stream"
}
