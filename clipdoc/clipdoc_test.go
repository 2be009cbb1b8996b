package clipdoc

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello, World!", "Hello_World_"},
		{"a/b\\c", "a_b_c"},
		{"report-2024.v1_final", "report-2024.v1_final"},
		{"", "webpage"},
		{"???", "webpage"},
		{"日本語 title", "_title"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SafeName(strings.Repeat("x", 300)); len(got) != 100 {
		t.Errorf("len = %d, want 100", len(got))
	}
}

func TestEscapeRTF(t *testing.T) {
	tests := []struct{ in, want string }{
		{`a{b}c\d`, `a\{b\}c\\d`},
		{"é", `\u233?`},
		{"中", `\u20013?`},
		{"line\nx", `line\line x`},
		{"\U0001F600", `\u-10179?\u-8704?`},
	}
	for _, tt := range tests {
		if got := escapeRTF(tt.in); got != tt.want {
			t.Errorf("escapeRTF(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteRTF(t *testing.T) {
	path := filepath.Join(t.TempDir(), TextualizationDir, "page.rtf")
	size, err := WriteRTF(path, "Title", []string{"first", " ", "second {x}"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != size {
		t.Errorf("size = %d, file has %d bytes", size, len(data))
	}
	s := string(data)
	if !strings.HasPrefix(s, `{\rtf1`) || !strings.HasSuffix(s, "}\n") {
		t.Errorf("not an RTF document:\n%s", s)
	}
	if strings.Count(s, `\par\par`) != 3 {
		t.Errorf("want title plus two paragraphs:\n%s", s)
	}
	if !strings.Contains(s, `second \{x\}`) {
		t.Errorf("braces not escaped:\n%s", s)
	}
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	path := filepath.Join(dir, name)
	if _, err := WritePNG(path, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	rasters := []string{
		writeTestPNG(t, dir, "p1.png", 60, 80),
		writeTestPNG(t, dir, "p2.png", 60, 40),
	}
	out := filepath.Join(dir, DocumentsDir, "out.pdf")

	pages, size, err := WritePDF(rasters, out)
	if err != nil {
		t.Fatal(err)
	}
	if pages != 2 || size == 0 {
		t.Errorf("pages = %d, size = %d", pages, size)
	}

	// A second write replaces the file instead of appending.
	pages, _, err = WritePDF(rasters[:1], out)
	if err != nil {
		t.Fatal(err)
	}
	if pages != 1 {
		t.Errorf("rewrite pages = %d, want 1", pages)
	}
}

func TestWritePDF_NoPages(t *testing.T) {
	if _, _, err := WritePDF(nil, filepath.Join(t.TempDir(), "x.pdf")); !errors.Is(err, ErrNoPages) {
		t.Errorf("err = %v, want ErrNoPages", err)
	}
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.md")
	n, err := WriteMarkdown(path, "# T\n")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("n = %d, want 4", n)
	}
}
