// Package pdfextract checks whether a PDF carries a text layer before it is
// sent for summarization.
package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Report describes the text layer of a PDF.
type Report struct {
	Pages int
	Chars int
	// Sample is the leading text, whitespace-collapsed.
	Sample string
}

func (r Report) HasText() bool {
	return r.Chars > 0
}

// ExtractText reads all of r and returns the plain text of the PDF. An empty
// string with a nil error means the PDF has no extractable text.
func ExtractText(r io.Reader) (string, error) {
	reader, err := open(r)
	if err != nil || reader == nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}

func Inspect(r io.Reader, sampleLen int) (*Report, error) {
	reader, err := open(r)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return &Report{}, nil
	}
	report := &Report{Pages: reader.NumPage()}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read pdf text failed: %w", err)
	}
	text := strings.Join(strings.Fields(string(out)), " ")
	report.Chars = len([]rune(text))
	if sampleLen > 0 && report.Chars > sampleLen {
		text = string([]rune(text)[:sampleLen])
	}
	report.Sample = text
	return report, nil
}

func open(r io.Reader) (*pdf.Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	return reader, nil
}
