package clipdoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// MaxPDFPageHeight is the largest page side, in points, that PDF readers
// are required to support. Rasters are cut into pages no taller than this,
// one pixel per point.
const MaxPDFPageHeight = 14400

// ErrNoPages is returned when a PDF is requested without rasters.
var ErrNoPages = errors.New("clipdoc: no pages")

// WritePDF writes one page per raster file, in order, each page sized to
// its image. An existing file at out is replaced. It returns the page
// count and file size of the written PDF.
func WritePDF(rasters []string, out string) (pages int, size int64, err error) {
	if len(rasters) == 0 {
		return 0, 0, ErrNoPages
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, 0, fmt.Errorf("clipdoc: mkdir: %w", err)
	}
	// ImportImagesFile appends to an existing file.
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, 0, fmt.Errorf("clipdoc: replace %s: %w", out, err)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full
	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(rasters, out, imp, conf); err != nil {
		os.Remove(out)
		return 0, 0, fmt.Errorf("clipdoc: pdf import: %w", err)
	}

	pages, err = PageCount(out)
	if err != nil {
		return 0, 0, err
	}
	return pages, fileSize(out), nil
}

// PageCount returns the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("clipdoc: page count %s: %w", path, err)
	}
	return n, nil
}
