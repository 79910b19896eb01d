package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"llmontreal/internal/model"
)

// GetSummary returns the stored summary as plain text. An empty string means
// the backend has not produced one yet.
func (c *Client) GetSummary(ctx context.Context, documentID string) (string, error) {
	path := "/documents/" + url.PathEscape(documentID) + "/summary"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return "", fmt.Errorf("build get summary request failed: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	raw, err := c.do(req, "get summary")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// RegenerateSummary asks the backend to rebuild the summary. The work is
// asynchronous; callers poll GetSummary for the result.
func (c *Client) RegenerateSummary(ctx context.Context, documentID string) error {
	path := "/documents/" + url.PathEscape(documentID) + "/summary/regenerate"
	return c.postJSON(ctx, path, struct{}{}, "regenerate summary", nil)
}

func (c *Client) Chat(ctx context.Context, documentID, prompt string) (*model.ChatMessage, error) {
	body := model.ChatRequest{
		Model:  c.chatModel,
		Prompt: prompt,
		Stream: false,
	}
	var resp model.ChatResponse
	if err := c.postJSON(ctx, "/chat/"+url.PathEscape(documentID), body, "chat", &resp); err != nil {
		return nil, err
	}
	msg := resp.Message()
	return &msg, nil
}
