package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"llmontreal/internal/pkg/logger"
)

// TokenSource yields the current bearer token; "" means signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// AuthTransport decorates every outgoing request with a request id and, when
// a token is available, an Authorization header. Requests under /auth/ are
// never decorated with a token.
type AuthTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func NewAuthTransport(base http.RoundTripper, tokens TokenSource) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{base: base, tokens: tokens}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}

	if t.tokens != nil && !isAuthPath(out.URL.Path) && out.Header.Get("Authorization") == "" {
		token, err := t.tokens.Token(req.Context())
		if err != nil {
			// a broken store must not block the request itself
			logger.Warnf("read auth token failed: %v", err)
		} else if token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger.WithField("request_id", out.Header.Get("X-Request-ID")).
		Debugf("%s %s", out.Method, out.URL.Path)
	return t.base.RoundTrip(out)
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/")
}
