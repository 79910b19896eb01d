package model

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "PENDENTE"
	DocumentProcessing DocumentStatus = "PROCESSANDO"
	DocumentCompleted  DocumentStatus = "COMPLETO"
	DocumentFailed     DocumentStatus = "ERRO"
)

func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(DocumentPending), "PENDING":
		return DocumentPending, true
	case string(DocumentProcessing), "PROCESSING":
		return DocumentProcessing, true
	case string(DocumentCompleted), "COMPLETED":
		return DocumentCompleted, true
	case string(DocumentFailed), "FAILED":
		return DocumentFailed, true
	}
	return "", false
}

func (s DocumentStatus) Label() string {
	switch s {
	case DocumentPending:
		return "Pending"
	case DocumentProcessing:
		return "Processing"
	case DocumentCompleted:
		return "Ready"
	case DocumentFailed:
		return "Error"
	default:
		return string(s)
	}
}

type Document struct {
	ID        int64          `json:"id"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	FileName  string         `json:"fileName"`
	FileType  string         `json:"fileType"`
	Summary   *string        `json:"summary"`
}

// Page mirrors the paginated envelope returned by the documents endpoint.
type Page[T any] struct {
	Content          []T  `json:"content"`
	TotalPages       int  `json:"totalPages"`
	TotalElements    int  `json:"totalElements"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	NumberOfElements int  `json:"numberOfElements"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	Empty            bool `json:"empty"`
}

// EmptyPage is what listing degrades to when the backend is unreachable.
func EmptyPage[T any](number, size int) Page[T] {
	return Page[T]{
		Content: []T{},
		Size:    size,
		Number:  number,
		First:   true,
		Last:    true,
		Empty:   true,
	}
}

// UploadResult is the reply of POST /documents/upload.
type UploadResult struct {
	ID        string `json:"id"`
	FileName  string `json:"fileName"`
	FileURL   string `json:"fileUrl"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
	CreatedAt string `json:"createdAt"`
	Message   string `json:"message,omitempty"`
}
