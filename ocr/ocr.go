// Package ocr recognises text in captured rasters. Tesseract support is
// compiled in with the `ocr` build tag; without it New returns
// ErrNotEnabled and callers skip textualization.
package ocr

import (
	"context"
	"errors"
	"strings"
)

// ErrNotEnabled is returned by New when the binary was built without the
// ocr tag.
var ErrNotEnabled = errors.New("ocr: not enabled in this build")

// Recognizer extracts text from image files.
type Recognizer interface {
	Text(ctx context.Context, path string) (string, error)
	Close() error
}

// Paragraphs splits recognised text on blank lines and joins the wrapped
// lines of each paragraph.
func Paragraphs(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}
