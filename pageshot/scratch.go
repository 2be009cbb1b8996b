// CLAUDE:SUMMARY Scoped scratch directory for the raster files of one page run, released on every exit path.
package pageshot

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Scratch tracks the raster files written for a run so they can be removed
// together. It is safe for concurrent use. Release is idempotent.
type Scratch struct {
	dir string

	mu    sync.Mutex
	files []string
}

// NewScratch creates dir if needed and returns a handle on it.
func NewScratch(dir string) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pageshot: scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string { return s.dir }

// RegionPath names the capture file of one region.
func (s *Scratch) RegionPath(page, region int) string {
	return filepath.Join(s.dir, fmt.Sprintf("page%03d_region%03d.png", page, region))
}

// ChunkPath names the output raster of one chunk (or of the whole composite,
// chunk 0, when it was not split).
func (s *Scratch) ChunkPath(page, chunk int) string {
	return filepath.Join(s.dir, fmt.Sprintf("page%03d_chunk%05d.png", page, chunk))
}

// WritePNG encodes img to path and tracks the file.
func (s *Scratch) WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	s.Track(path)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// Track registers a file for removal on Release.
func (s *Scratch) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.files, path) {
		s.files = append(s.files, path)
	}
}

// Files returns the tracked files in registration order.
func (s *Scratch) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

// Remove deletes one tracked file early.
func (s *Scratch) Remove(path string) error {
	s.mu.Lock()
	s.files = slices.DeleteFunc(s.files, func(f string) bool { return f == path })
	s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Release removes every tracked file. Files already gone are not an error.
func (s *Scratch) Release() error {
	s.mu.Lock()
	files := s.files
	s.files = nil
	s.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
