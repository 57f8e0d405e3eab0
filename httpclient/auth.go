package httpclient

import "net/http"

// AuthConfig adds credentials to a request.
type AuthConfig struct {
	// Token is sent as "Authorization: Bearer <token>" when Header is empty.
	Token string
	// Header, when set, carries Token verbatim instead ("X-API-Key: <token>").
	Header string
}

// BearerAuth authenticates with a bearer token.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Token: token}
}

// APIKeyAuth sends key in the named header.
func APIKeyAuth(key, header string) *AuthConfig {
	return &AuthConfig{Token: key, Header: header}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Token == "" {
		return
	}
	if a.Header != "" {
		req.Header.Set(a.Header, a.Token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}
