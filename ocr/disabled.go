//go:build !ocr

package ocr

// New reports ErrNotEnabled: this build has no Tesseract support.
func New(lang string) (Recognizer, error) {
	return nil, ErrNotEnabled
}
