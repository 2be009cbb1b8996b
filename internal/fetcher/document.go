package fetcher

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the outline of a parsed HTML page.
type Document struct {
	Title      string
	H1         []string
	H2         []string
	Paragraphs []string
	Images     int

	// ParagraphChars is the rune count of all paragraph text, the signal
	// used by the classifier.
	ParagraphChars int

	root *html.Node
}

// ParseDocument parses HTML and collects its outline.
func ParseDocument(b []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("fetcher: parse html: %w", err)
	}
	d := &Document{root: root}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Title:
				if d.Title == "" {
					d.Title = nodeText(n)
				}
				return
			case atom.H1:
				if t := nodeText(n); t != "" {
					d.H1 = append(d.H1, t)
				}
			case atom.H2:
				if t := nodeText(n); t != "" {
					d.H2 = append(d.H2, t)
				}
			case atom.P:
				t := nodeText(n)
				d.ParagraphChars += utf8.RuneCountInString(t)
				if t != "" {
					d.Paragraphs = append(d.Paragraphs, t)
				}
			case atom.Img:
				d.Images++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return d, nil
}

// MainHTML renders the main content of the page: the <main> or <article>
// landmarks when present, otherwise <body>.
func (d *Document) MainHTML() string {
	nodes := findAllByTag(d.root, atom.Main)
	if len(nodes) == 0 {
		nodes = findAllByTag(d.root, atom.Article)
	}
	if len(nodes) == 0 {
		nodes = findAllByTag(d.root, atom.Body)
	}
	if len(nodes) == 0 {
		nodes = []*html.Node{d.root}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			continue
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// nodeText concatenates the trimmed text nodes under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}
