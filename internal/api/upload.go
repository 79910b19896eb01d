package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"llmontreal/internal/model"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadDocument posts file as the multipart field "file". onProgress, when
// set, is called from the transfer goroutine after every chunk handed to the
// connection; Total is the full request size.
func (c *Client) UploadDocument(ctx context.Context, file model.File, onProgress func(model.Progress)) (*model.UploadResult, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("upload file %q has no content", file.Name)
	}
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload file failed: %w", err)
	}
	defer src.Close()

	var envelope bytes.Buffer
	mw := multipart.NewWriter(&envelope)
	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(header); err != nil {
		return nil, fmt.Errorf("build multipart header failed: %w", err)
	}
	prefixLen := envelope.Len()
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart trailer failed: %w", err)
	}
	prefix := envelope.Bytes()[:prefixLen]
	trailer := envelope.Bytes()[prefixLen:]

	total := int64(len(prefix)) + file.Size + int64(len(trailer))
	body := io.MultiReader(bytes.NewReader(prefix), io.LimitReader(src, file.Size), bytes.NewReader(trailer))
	if onProgress != nil {
		body = &progressReader{r: body, total: total, fn: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/documents/upload", nil), body)
	if err != nil {
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(req, "upload")
	if err != nil {
		return nil, err
	}
	var result model.UploadResult
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("parse upload json failed: %w", err)
		}
	}
	return &result, nil
}

type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	fn     func(model.Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(model.Progress{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
