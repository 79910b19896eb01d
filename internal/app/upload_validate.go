package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"llmontreal/internal/model"
)

const DefaultMaxUploadSize int64 = 25 * 1024 * 1024

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeText = "text/plain"
	MimeZIP  = "application/zip"
)

var allowedUploadTypes = map[string]struct{}{
	MimePDF:                        {},
	MimeDOCX:                       {},
	MimePNG:                        {},
	MimeJPEG:                       {},
	MimeText:                       {},
	MimeZIP:                        {},
	"application/x-zip-compressed": {},
	"application/x-zip":            {},
	"multipart/x-zip":              {},
}

var uploadTypeByExtension = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".png":  MimePNG,
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".txt":  MimeText,
	".zip":  MimeZIP,
}

// Browsers and OS pickers report these when they do not know better; the
// extension decides instead.
var ambiguousUploadTypes = map[string]struct{}{
	"":                         {},
	"application/octet-stream": {},
	"binary/octet-stream":      {},
}

// uploadValidationError carries the message shown to the user.
type uploadValidationError struct {
	message string
}

func (e *uploadValidationError) Error() string {
	return e.message
}

func (e *uploadValidationError) Unwrap() error {
	return ErrInvalidFile
}

// ResolveUploadType returns the MIME type a file will be accepted as, or ""
// when the file type is not allowed. A file name with an extension outside
// the allow-list is rejected whatever its declared type.
func ResolveUploadType(file model.File) string {
	ext := strings.ToLower(filepath.Ext(file.Name))
	byExt, knownExt := uploadTypeByExtension[ext]
	if ext != "" && !knownExt {
		return ""
	}
	declared := normalizeMime(file.Type)
	if _, ok := allowedUploadTypes[declared]; ok {
		return declared
	}
	if _, ok := ambiguousUploadTypes[declared]; ok {
		return byExt
	}
	return ""
}

func ValidateUpload(file model.File, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if ResolveUploadType(file) == "" {
		return &uploadValidationError{message: "Invalid file type. (Allowed: PDF, DOCX, PNG, JPG, TXT, ZIP)"}
	}
	if file.Size > maxSize {
		return &uploadValidationError{message: fmt.Sprintf("The file exceeds the %s limit.", formatLimit(maxSize))}
	}
	return nil
}

func formatLimit(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return humanize.IBytes(uint64(n))
}

func normalizeMime(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}
