//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract wraps one gosseract client. The client is not safe for
// concurrent use, so calls are serialised.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Tesseract recognizer for the given language (e.g. "eng",
// "eng+chi_sim").
func New(lang string) (Recognizer, error) {
	c := gosseract.NewClient()
	if lang != "" {
		if err := c.SetLanguage(lang); err != nil {
			c.Close()
			return nil, fmt.Errorf("ocr: language %q: %w", lang, err)
		}
	}
	return &Tesseract{client: c}, nil
}

func (t *Tesseract) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImage(path); err != nil {
		return "", fmt.Errorf("ocr: set image %s: %w", path, err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognise %s: %w", path, err)
	}
	return text, nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
