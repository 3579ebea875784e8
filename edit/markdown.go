package edit

import (
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

var (
	mdOnce sync.Once
	mdConv *converter.Converter
)

// ContextMarkdown renders a selected element's outer HTML as markdown.
// Used for transcripts and debug context attached to edit events — the
// selector alone tells a reader little about what was actually edited.
// Returns the stripped plain text of the fragment when conversion fails.
func ContextMarkdown(outerHTML string) string {
	if strings.TrimSpace(outerHTML) == "" {
		return ""
	}

	mdOnce.Do(func() {
		mdConv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	})

	out, err := mdConv.ConvertString(outerHTML)
	if err != nil || strings.TrimSpace(out) == "" {
		if n := parseFirstElement(outerHTML); n != nil {
			return strings.TrimSpace(collectText(n))
		}
		return ""
	}
	return strings.TrimSpace(out)
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
