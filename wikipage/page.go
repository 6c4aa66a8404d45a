// Package wikipage loads Wikipedia article HTML from disk or the network
// and exposes it as a parsed DOM.
package wikipage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/wikibox/format"
	"github.com/tsawler/wikibox/infobox"
	"github.com/tsawler/wikibox/selection"
)

var (
	// ErrEmptyURL is returned when a fetch is asked for a blank URL.
	ErrEmptyURL = errors.New("URL cannot be empty")

	// ErrStatus is wrapped with the status code of a non-200 response.
	ErrStatus = errors.New("unexpected status code")

	// ErrTooLarge is returned when a response body exceeds the size cap.
	ErrTooLarge = errors.New("response body too large")

	// ErrNotHTML is returned by Open for files that do not start like an
	// HTML document.
	ErrNotHTML = errors.New("not an HTML document")
)

// Page is a parsed article.
type Page struct {
	// URL is the address the page was loaded from. It is empty for files
	// opened without a base URL.
	URL  string
	Root *html.Node
}

// Open parses an HTML file. The leading bytes are checked first so that
// other files are rejected with ErrNotHTML.
func Open(filename string) (*Page, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if format.DetectFromMagic(head) != format.HTML {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, filename)
	}

	return OpenReader(br, "")
}

// OpenReader parses UTF-8 HTML from r. pageURL is recorded as the page
// address and used to resolve relative resource links.
func OpenReader(r io.Reader, pageURL string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &Page{URL: pageURL, Root: doc}, nil
}

// Title returns the text of the head <title> element.
func (p *Page) Title() string {
	head := findElement(p.Root, "head")
	if head == nil {
		return ""
	}
	title := findElement(head, "title")
	if title == nil {
		return ""
	}
	return getTextContent(title)
}

// Infoboxes parses every infobox on the page.
func (p *Page) Infoboxes() []*infobox.Document {
	return infobox.ParseAll(p.Root)
}

// Selection extracts the text of the elements matching selector. source
// labels the result; it is nil when nothing matches.
func (p *Page) Selection(source, selector string) (*selection.Selection, error) {
	return selection.Extract(source, p.Root, selector)
}

// HTML renders the page back to markup.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.Root); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.String(), nil
}

// TitleURL returns the article URL for a page title on the given wiki,
// e.g. TitleURL("https://zh.wikipedia.org", "唐朝").
func TitleURL(base, title string) string {
	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	return strings.TrimRight(base, "/") + "/wiki/" + url.PathEscape(title)
}

// normalizeURL trims u and adds an https scheme when none is present.
func normalizeURL(u string) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u, nil
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, tagName); result != nil {
			return result
		}
	}
	return nil
}

// getTextContent extracts all text content from a node and its descendants.
func getTextContent(n *html.Node) string {
	var result strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			result.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(result.String())
}

// getAttr returns the value of an attribute on a node, or empty string if not found.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// setAttr replaces the value of an existing attribute.
func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
}
