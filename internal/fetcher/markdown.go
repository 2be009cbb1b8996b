package fetcher

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown converts the main content of pages to Markdown. It is safe for
// concurrent use.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a converter with the CommonMark and table plugins.
func NewMarkdown() *Markdown {
	return &Markdown{conv: converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)}
}

// Article renders the main content of doc, headed by its title. Relative
// links are resolved against pageURL.
func (m *Markdown) Article(doc *Document, pageURL string) (string, error) {
	body, err := m.conv.ConvertString(doc.MainHTML(), converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("fetcher: markdown: %w", err)
	}
	title := doc.Title
	if title == "" {
		title = pageURL
	}
	return "# " + title + "\n\n" + strings.TrimSpace(body) + "\n", nil
}

// Outline renders the title, h1 and h2 headings, and paragraphs of doc.
// A non-empty note is written under the title. A nil doc yields an outline
// of the URL alone.
func Outline(doc *Document, pageURL, note string) string {
	var sb strings.Builder
	title := pageURL
	if doc != nil && doc.Title != "" {
		title = doc.Title
	}
	sb.WriteString("# " + title + "\n\n")
	if note != "" {
		sb.WriteString("> [NOTE] " + note + "\n\n")
	}
	if doc == nil {
		return sb.String()
	}
	for _, h := range doc.H1 {
		sb.WriteString("## " + h + "\n\n")
	}
	for _, h := range doc.H2 {
		sb.WriteString("### " + h + "\n\n")
	}
	for _, p := range doc.Paragraphs {
		sb.WriteString(p + "\n\n")
	}
	return sb.String()
}
