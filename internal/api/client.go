// Package api is the HTTP client for the document analysis backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

type Config struct {
	BaseURL   string
	ChatModel string
	Timeout   time.Duration
	// Transport defaults to http.DefaultTransport. Wrap it with
	// NewAuthTransport to attach credentials.
	Transport http.RoundTripper
}

type Client struct {
	baseURL    string
	chatModel  string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gemma3:4b"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		chatModel: chatModel,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is returned for any non-2xx reply. Message holds the server's
// own explanation when one could be decoded.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// ServerMessage returns the decoded server message carried by err, or "".
func ServerMessage(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return ""
}

func newStatusError(statusCode int, raw []byte) *StatusError {
	body := strings.TrimSpace(string(raw))
	return &StatusError{
		StatusCode: statusCode,
		Message:    extractMessage(body),
		Body:       body,
	}
}

func extractMessage(body string) string {
	if body == "" {
		return ""
	}
	if strings.HasPrefix(body, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(body), &payload); err == nil {
			for _, key := range []string{"message", "error", "detail"} {
				if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
			return ""
		}
	}
	if strings.HasPrefix(body, "<") {
		// html error page
		return ""
	}
	return body
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends req and returns the raw body of a 2xx reply.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s failed: %w", op, newStatusError(resp.StatusCode, raw))
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("build %s request failed: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s json failed: %w", op, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, op string, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request failed: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build %s request failed: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req, op)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s json failed: %w", op, err)
	}
	return nil
}
