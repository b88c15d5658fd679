// Package resume pulls plain text out of uploaded resume documents.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxSize bounds accepted documents.
const MaxSize = 10 << 20

var (
	ErrEmpty    = errors.New("document contains no extractable text")
	ErrTooLarge = fmt.Errorf("document is larger than %d bytes", MaxSize)
)

// Extract concatenates the plain text of every page in order. Callers treat
// any error as "no resume context".
func Extract(r io.ReaderAt, size int64) (text string, err error) {
	if size <= 0 {
		return "", ErrEmpty
	}
	if size > MaxSize {
		return "", ErrTooLarge
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		b.WriteString(content)
	}

	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmpty
	}

	return text, nil
}

func ExtractBytes(data []byte) (string, error) {
	return Extract(bytes.NewReader(data), int64(len(data)))
}

func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open resume: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat resume: %w", err)
	}

	return Extract(f, info.Size())
}
