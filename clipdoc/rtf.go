package clipdoc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteRTF writes a plain RTF document: the title in bold, then one
// paragraph per entry of paras.
func WriteRTF(path, title string, paras []string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("clipdoc: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("clipdoc: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	w.WriteString(`{\rtf1\ansi\ansicpg1252\deff0{\fonttbl{\f0\fswiss Helvetica;}}` + "\n")
	w.WriteString(`\f0\fs24` + "\n")
	if title != "" {
		w.WriteString(`{\b\fs32 ` + escapeRTF(title) + `}\par\par` + "\n")
	}
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		w.WriteString(escapeRTF(p) + `\par\par` + "\n")
	}
	w.WriteString("}\n")
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, fmt.Errorf("clipdoc: write rtf: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("clipdoc: close %s: %w", path, err)
	}
	return fileSize(path), nil
}

// escapeRTF escapes control characters and encodes non-ASCII runes as
// \uN? sequences. Line breaks become \line.
func escapeRTF(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\line `)
		case r == '\r':
		case r == '\t':
			sb.WriteString(`\tab `)
		case r < 0x80:
			sb.WriteRune(r)
		case r <= 0xffff:
			fmt.Fprintf(&sb, `\u%d?`, int16(r))
		default:
			// Outside the BMP: UTF-16 surrogate pair.
			r -= 0x10000
			fmt.Fprintf(&sb, `\u%d?\u%d?`, int16(0xd800+(r>>10)), int16(0xdc00+(r&0x3ff)))
		}
	}
	return sb.String()
}
