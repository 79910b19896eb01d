package model

import (
	"io"
	"strings"
)

// File references a payload selected for upload. Type is the declared MIME
// type and may be empty.
type File struct {
	Name string
	Type string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Progress is one upload progress notification. Total is zero when the
// transfer size is unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// FileTypeLabel turns a MIME type into the short label shown in listings.
func FileTypeLabel(mime string) string {
	v := strings.ToLower(strings.TrimSpace(mime))
	if v == "" {
		return "Unknown"
	}
	switch {
	case strings.Contains(v, "pdf"):
		return "PDF"
	case strings.Contains(v, "word"), strings.Contains(v, "msword"):
		return "Word"
	case strings.Contains(v, "presentation"), strings.Contains(v, "ppt"), strings.Contains(v, "powerpoint"):
		return "PowerPoint"
	case strings.Contains(v, "excel"), strings.Contains(v, "spreadsheet"), strings.Contains(v, "sheet"):
		return "Spreadsheet"
	case strings.Contains(v, "plain"), strings.Contains(v, "text"):
		return "Text"
	case strings.HasPrefix(v, "image/"):
		return "Image"
	case strings.Contains(v, "json"):
		return "JSON"
	case strings.Contains(v, "zip"):
		return "ZIP"
	}
	if _, sub, ok := strings.Cut(v, "/"); ok && sub != "" {
		return sub
	}
	return mime
}
