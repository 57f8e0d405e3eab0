// Package httpclient is a small HTTP client for calling external APIs: a
// base URL, default headers, pluggable auth, multipart uploads and status
// codes classified into typed, retry-aware errors.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.openai.com",
//	    Timeout: 2 * time.Minute,
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/v1/audio/transcriptions",
//	    Body:   &httpclient.MultipartBody{Fields: fields, Files: files},
//	})
//
// Retries are left to the caller, usually through provider.WithResilience.
package httpclient
