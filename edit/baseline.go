package edit

import (
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Baseline is the immutable pre-edit state of a selected element, captured
// once at selection time. Reset always replays the baseline, never an
// intermediate edit state.
type Baseline struct {
	Text       string            `json:"text"`
	TextSafe   bool              `json:"text_safe"` // true when the element has no element children
	Inline     map[string]string `json:"inline"`    // pre-existing inline style properties
	OuterHTML  string            `json:"outer_html"`
	CapturedAt int64             `json:"captured_at"` // epoch milliseconds
}

// CaptureBaseline builds a Baseline from an element's serialised outer HTML
// and its inline style properties. Text-edit eligibility is derived from the
// markup itself: only elements with no element children may have their text
// content rewritten, otherwise nested markup would be destroyed.
func CaptureBaseline(outerHTML string, inline map[string]string) Baseline {
	b := Baseline{
		OuterHTML:  outerHTML,
		Inline:     cloneMap(inline),
		CapturedAt: time.Now().UnixMilli(),
	}
	if b.Inline == nil {
		b.Inline = map[string]string{}
	}

	root := parseFirstElement(outerHTML)
	if root == nil {
		return b
	}

	b.TextSafe = true
	var text strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			b.TextSafe = false
		case html.TextNode:
			text.WriteString(c.Data)
		}
	}
	if b.TextSafe {
		b.Text = text.String()
	}
	return b
}

// InlineCopy returns a mutable copy of the baseline inline styles for replay.
func (b Baseline) InlineCopy() map[string]string {
	return cloneMap(b.Inline)
}

// parseFirstElement parses an HTML fragment and returns its first element
// node, or nil when the fragment has none.
func parseFirstElement(fragment string) *html.Node {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}
