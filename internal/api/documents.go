package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"llmontreal/internal/model"
)

type ListOptions struct {
	Page   int
	Size   int
	Status model.DocumentStatus
	// Sort is passed through as-is, e.g. "createdAt,desc".
	Sort string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	page := o.Page
	if page < 0 {
		page = 0
	}
	size := o.Size
	if size <= 0 {
		size = 10
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	return q
}

func (c *Client) ListDocuments(ctx context.Context, opts ListOptions) (*model.Page[model.Document], error) {
	var page model.Page[model.Document]
	if err := c.getJSON(ctx, "/documents", opts.query(), "list documents", &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []model.Document{}
	}
	return &page, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("document id is empty")
	}
	var doc model.Document
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(id), nil, "get document", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
