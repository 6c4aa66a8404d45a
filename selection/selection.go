// Package selection extracts and highlights regions of a parsed page.
//
// Every function takes the DOM it works on as an argument; nothing is kept
// between calls.
package selection

import (
	"errors"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned for selectors that do not compile.
var ErrInvalidSelector = errors.New("invalid selector")

// Selection is text picked out of a page.
type Selection struct {
	// Source names where the text came from, e.g. the left or right pane
	// of a comparison view.
	Source   string `json:"source"`
	Content  string `json:"content"`
	Markdown string `json:"markdown,omitempty"`
}

// Extract returns the text of every element under root matching the CSS
// selector, one element per line, plus the same region as Markdown. It
// returns nil when nothing matches or the matched text is blank.
func Extract(source string, root *html.Node, selector string) (*Selection, error) {
	if root == nil {
		return nil, nil
	}
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}

	matched := goquery.NewDocumentFromNode(root).Find(selector)

	var content, markup strings.Builder
	matched.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		content.WriteString(text)
		content.WriteString("\n")

		if outer, err := goquery.OuterHtml(s); err == nil {
			markup.WriteString(outer)
		}
	})

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, nil
	}

	md, err := htmltomarkdown.ConvertString(markup.String())
	if err != nil {
		return nil, fmt.Errorf("converting selection to markdown: %w", err)
	}

	return &Selection{
		Source:   source,
		Content:  text,
		Markdown: strings.TrimSpace(md),
	}, nil
}
