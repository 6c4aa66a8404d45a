package selection

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultColor is the highlight background when none is given.
const DefaultColor = "yellow"

// TextNodesBetween returns the text nodes met walking in document order
// from start up to and including end. If end is never reached the walk
// stops at the end of the document.
func TextNodesBetween(start, end *html.Node) []*html.Node {
	var nodes []*html.Node
	for n := start; n != nil; n = nextNode(n) {
		if n.Type == html.TextNode {
			nodes = append(nodes, n)
		}
		if n == end {
			break
		}
	}
	return nodes
}

// HighlightRange wraps every text node from start to end in a span with the
// given background color and returns how many were wrapped.
func HighlightRange(start, end *html.Node, color string) int {
	count := 0
	for _, n := range TextNodesBetween(start, end) {
		if n.Parent == nil {
			continue
		}
		span := newHighlight(color)
		n.Parent.InsertBefore(span, n)
		n.Parent.RemoveChild(n)
		span.AppendChild(n)
		count++
	}
	return count
}

// HighlightSelector highlights all text inside the elements under root
// that match the CSS selector and returns how many text nodes were
// wrapped. A match nested in an earlier match is covered by it.
func HighlightSelector(root *html.Node, selector, color string) (int, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	if root == nil {
		return 0, nil
	}

	count := 0
	var outer *html.Node
	for _, m := range sel.MatchAll(root) {
		if outer != nil && isAncestor(outer, m) {
			continue
		}
		outer = m
		count += HighlightRange(m, lastDescendant(m), color)
	}
	return count, nil
}

// HighlightText wraps each occurrence of phrase in text under root and
// returns the number of occurrences highlighted. Script and style content
// is left alone.
func HighlightText(root *html.Node, phrase, color string) int {
	if root == nil || phrase == "" {
		return 0
	}

	var targets []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, phrase) {
			targets = append(targets, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	count := 0
	for _, n := range targets {
		parent := n.Parent
		if parent == nil {
			continue
		}
		parts := strings.Split(n.Data, phrase)
		for i, part := range parts {
			if part != "" {
				parent.InsertBefore(&html.Node{Type: html.TextNode, Data: part}, n)
			}
			if i < len(parts)-1 {
				span := newHighlight(color)
				span.AppendChild(&html.Node{Type: html.TextNode, Data: phrase})
				parent.InsertBefore(span, n)
				count++
			}
		}
		parent.RemoveChild(n)
	}
	return count
}

// nextNode steps to the next node in document order.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

func lastDescendant(n *html.Node) *html.Node {
	for n.LastChild != nil {
		n = n.LastChild
	}
	return n
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func newHighlight(color string) *html.Node {
	if color == "" {
		color = DefaultColor
	}
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "style", Val: "background-color: " + color}},
	}
}
