package app

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"llmontreal/internal/model"
	"llmontreal/internal/pkg/logger"
)

// FileFromPath describes a local file for upload. The declared type follows
// the file name, the way a browser fills File.type. Content sniffing only
// decides for files without an extension and flags names that disagree with
// the bytes behind them.
func FileFromPath(path string) (model.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.File{}, fmt.Errorf("stat upload file failed: %w", err)
	}
	if info.IsDir() {
		return model.File{}, fmt.Errorf("%s is a directory: %w", path, ErrInvalidFile)
	}

	name := filepath.Base(path)
	declared := typeByExtension(filepath.Ext(name))

	if info.Size() > 0 {
		sniffed, err := mimetype.DetectFile(path)
		if err != nil {
			return model.File{}, fmt.Errorf("detect file type failed: %w", err)
		}
		switch {
		case declared == "":
			declared = normalizeMime(sniffed.String())
			if declared == "application/octet-stream" {
				declared = ""
			}
		case !sniffedMatches(sniffed, declared):
			logger.Warnf("%s is named as %s but its content looks like %s", name, declared, sniffed.String())
		}
	}

	return model.File{
		Name: name,
		Type: declared,
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func typeByExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext == "" {
		return ""
	}
	if t, ok := uploadTypeByExtension[ext]; ok {
		return t
	}
	return normalizeMime(mime.TypeByExtension(ext))
}

// sniffedMatches reports whether declared is the sniffed type or one of its
// ancestors, so JSON in a .txt or a DOCX read as a zip still matches.
func sniffedMatches(sniffed *mimetype.MIME, declared string) bool {
	for m := sniffed; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
	}
	if _, ok := ambiguousUploadTypes[normalizeMime(sniffed.String())]; ok {
		return true
	}
	return false
}
