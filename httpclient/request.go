package httpclient

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is already absolute.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body may be an io.Reader, []byte, string, *MultipartBody, or any value
	// to be JSON-encoded.
	Body any
	// Auth overrides the client's auth for this request.
	Auth *AuthConfig
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
