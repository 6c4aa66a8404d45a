package wikipage

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// resourceAttrs lists the link-bearing attribute per element.
var resourceAttrs = map[string]string{
	"img":    "src",
	"link":   "href",
	"script": "src",
}

var cssURL = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)

// RewriteResources makes image, stylesheet and script links absolute
// against the page URL, along with url(...) references in inline styles,
// so the page renders when served from another origin. It returns the
// number of references changed. Pages without a URL are left alone.
func RewriteResources(p *Page) int {
	if p.URL == "" {
		return 0
	}
	base, err := url.Parse(p.URL)
	if err != nil {
		return 0
	}

	changed := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if key, ok := resourceAttrs[n.Data]; ok {
				if ref := getAttr(n, key); ref != "" {
					if abs := resolve(base, ref); abs != ref {
						setAttr(n, key, abs)
						changed++
					}
				}
			}
			if style := getAttr(n, "style"); style != "" {
				if out, c := rewriteCSS(base, style); c > 0 {
					setAttr(n, "style", out)
					changed += c
				}
			}
			if n.Data == "style" {
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						out, k := rewriteCSS(base, c.Data)
						c.Data = out
						changed += k
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.Root)

	return changed
}

// rewriteCSS resolves every url(...) reference in css.
func rewriteCSS(base *url.URL, css string) (string, int) {
	changed := 0
	out := cssURL.ReplaceAllStringFunc(css, func(m string) string {
		ref := strings.TrimSpace(cssURL.FindStringSubmatch(m)[1])
		abs := resolve(base, ref)
		if abs == ref {
			return m
		}
		changed++
		return `url("` + abs + `")`
	})
	return out, changed
}

// resolve returns ref made absolute against base. Absolute and data URLs
// come back unchanged.
func resolve(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
