package fetcher

import (
	"bytes"
	"unicode"

	"golang.org/x/net/html"
)

var shellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsShell reports whether static HTML is a script-rendered shell whose
// content only exists after JavaScript runs. The static outline of such a
// page says nothing about what a screenshot will show.
func IsShell(b []byte) bool {
	lower := bytes.ToLower(b)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}

	text, markup := textMarkupRatio(b)
	if text+markup == 0 {
		return true
	}
	return text < 200 || float64(text)/float64(text+markup) < 0.10
}

// textMarkupRatio counts visible non-space characters against tag, script
// and style bytes.
func textMarkupRatio(b []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(b))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return text, markup
		case html.StartTagToken:
			markup += len(z.Raw())
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			markup += len(z.Raw())
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			raw := z.Raw()
			if skip > 0 {
				markup += len(raw)
				continue
			}
			for _, r := range string(raw) {
				if !unicode.IsSpace(r) {
					text++
				}
			}
		default:
			markup += len(z.Raw())
		}
	}
}

func isRawText(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}
