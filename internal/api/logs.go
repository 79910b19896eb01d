package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const DefaultLogsFileName = "api_logs.csv"

// DownloadLogs streams the backend request log export into w and returns the
// number of bytes written.
func (c *Client) DownloadLogs(ctx context.Context, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/logs/download", nil), nil)
	if err != nil {
		return 0, fmt.Errorf("build download logs request failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download logs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, fmt.Errorf("download logs failed: %w", newStatusError(resp.StatusCode, raw))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("copy logs failed: %w", err)
	}
	return n, nil
}
