// CLAUDE:SUMMARY Output document writers: page-per-raster PDF via pdfcpu, RTF text documents, Markdown and PNG files, safe file names.
// Package clipdoc writes the documents produced for a captured page.
package clipdoc

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Output subdirectories.
const (
	DocumentsDir      = "documents"
	TextualizationDir = "textualization"
	RastersDir        = "rasters"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeName turns a page title into a file name: runs of characters outside
// [a-zA-Z0-9._-] become one underscore, and the result is cut to 100 bytes.
// An empty result becomes "webpage".
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "_" {
		return "webpage"
	}
	return s
}

// WriteMarkdown writes a Markdown document, creating parent directories.
func WriteMarkdown(path, md string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("clipdoc: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return 0, fmt.Errorf("clipdoc: write markdown: %w", err)
	}
	return int64(len(md)), nil
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("clipdoc: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("clipdoc: create %s: %w", path, err)
	}
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("clipdoc: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("clipdoc: close %s: %w", path, err)
	}
	return fileSize(path), nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
