// CLAUDE:SUMMARY Content classifier: HEAD content type, then paragraph text volume and image presence pick TEXT, IMAGES_ONLY or PARTIAL.
package fetcher

import (
	"context"
	"strings"
)

// Class is the content classification of a URL.
type Class string

const (
	ClassText       Class = "TEXT"
	ClassImagesOnly Class = "IMAGES_ONLY"
	ClassPartial    Class = "PARTIAL"
)

// Classification is the outcome of Classify. Page and Doc are set when the
// GET succeeded, so callers can reuse them instead of fetching twice.
type Classification struct {
	Class  Class
	Reason string
	Page   *Page
	Doc    *Document
	Err    error // fetch or parse error that forced PARTIAL
}

// Classify picks a processing class for a URL:
//   - an image/* Content-Type on HEAD is IMAGES_ONLY;
//   - at least threshold runes of <p> text is TEXT;
//   - images with less than max(50, threshold/5) runes of text is IMAGES_ONLY;
//   - anything else, including fetch errors, is PARTIAL.
//
// HEAD failures are ignored.
func (f *Fetcher) Classify(ctx context.Context, pageURL string, threshold int) Classification {
	if ct, err := f.Head(ctx, pageURL); err == nil && strings.Contains(ct, "image/") {
		return Classification{Class: ClassImagesOnly, Reason: "content-type " + ct}
	} else if err != nil {
		f.logger.Debug("fetcher: head failed", "url", pageURL, "error", err)
	}

	page, err := f.Get(ctx, pageURL)
	if err != nil {
		f.logger.Warn("fetcher: classify fallback to PARTIAL", "url", pageURL, "error", err)
		return Classification{Class: ClassPartial, Reason: "fetch error", Err: err}
	}
	doc, err := ParseDocument(page.HTML)
	if err != nil {
		return Classification{Class: ClassPartial, Reason: "parse error", Page: page, Err: err}
	}

	c := Classification{Page: page, Doc: doc}
	c.Class, c.Reason = ClassifyDocument(doc, threshold)
	if c.Class == ClassPartial && IsShell(page.HTML) {
		c.Reason = "script shell"
	}
	f.logger.Debug("fetcher: classified", "url", pageURL, "class", c.Class,
		"paragraph_chars", doc.ParagraphChars, "images", doc.Images)
	return c
}

// ClassifyDocument applies the text and image thresholds to a parsed page.
func ClassifyDocument(doc *Document, threshold int) (Class, string) {
	if threshold <= 0 {
		threshold = 1000
	}
	switch {
	case doc.ParagraphChars >= threshold:
		return ClassText, "paragraph text above threshold"
	case doc.Images > 0 && doc.ParagraphChars < max(50, threshold/5):
		return ClassImagesOnly, "images with little text"
	default:
		return ClassPartial, "mixed content"
	}
}
