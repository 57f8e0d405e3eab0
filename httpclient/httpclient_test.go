package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/captionkit/errors"
)

func TestDoJSONWithAuthAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/v1/items" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("url = %s", r.URL)
		}
		if r.Header.Get("X-Client") != "captionkit" {
			t.Errorf("default header missing")
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 3})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", Auth: BearerAuth("secret"), Headers: map[string]string{"X-Client": "captionkit"}})
	if err != nil {
		t.Fatal(err)
	}
	var out struct{ Count int }
	err = c.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/v1/items", Query: map[string]string{"limit": "5"}}, &out)
	if err != nil || out.Count != 3 {
		t.Fatalf("DoJSON = %+v, %v", out, err)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
		appCode   apperrors.ErrorCode
	}{
		{http.StatusUnauthorized, KindAuth, false, apperrors.ErrCodeExternalService},
		{http.StatusNotFound, KindNotFound, false, apperrors.ErrCodeExternalService},
		{http.StatusTooManyRequests, KindRateLimit, true, apperrors.ErrCodeRateLimited},
		{http.StatusBadRequest, KindClient, false, apperrors.ErrCodeExternalService},
		{http.StatusBadGateway, KindServer, true, apperrors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("resp = %+v", resp)
			}
			if !IsKind(err, tt.kind) || IsRetryable(err) != tt.retryable {
				t.Fatalf("err = %v", err)
			}
			appErr := err.(*Error).AppError("upstream")
			if appErr.Code != tt.appCode || appErr.Retryable != tt.retryable {
				t.Errorf("AppError = %+v", appErr)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsKind(err, KindTimeout) || !IsRetryable(err) {
		t.Fatalf("err = %v, want retryable timeout", err)
	}
}

func TestMultipartUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("ID3-audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("model = %q", r.FormValue("model"))
		}
		if got := r.MultipartForm.Value["granularity[]"]; len(got) != 2 {
			t.Errorf("repeated field = %v", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "ID3-audio" || hdr.Filename != "audio.mp3" || hdr.Header.Get("Content-Type") != "audio/mpeg" {
			t.Errorf("file = %q %q %q", data, hdr.Filename, hdr.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body: &MultipartBody{
			Fields:   map[string]string{"model": "whisper-1"},
			Repeated: map[string][]string{"granularity[]": {"segment", "word"}},
			Files:    []FileField{{FieldName: "file", Path: path, ContentType: "audio/mpeg"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMultipartMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body:   &MultipartBody{Files: []FileField{{FieldName: "file", Path: "/missing.mp3"}}},
	})
	if err == nil || !strings.Contains(err.Error(), "missing.mp3") {
		t.Fatalf("err = %v", err)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	APIKeyAuth("k", "X-API-Key").apply(req)
	if req.Header.Get("X-API-Key") != "k" || req.Header.Get("Authorization") != "" {
		t.Errorf("headers = %v", req.Header)
	}
	var none *AuthConfig
	none.apply(req)
}
