// Package format classifies page sources for the wikibox tools.
package format

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a kind of page source.
type Format int

const (
	// Unknown indicates an empty or unrecognized source.
	Unknown Format = iota
	// URL indicates an http or https page address.
	URL
	// HTML indicates a local HTML file.
	HTML
	// Title indicates a bare article title to resolve against the wiki.
	Title
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case URL:
		return "URL"
	case HTML:
		return "HTML"
	case Title:
		return "Title"
	default:
		return "Unknown"
	}
}

// Detect determines what kind of source arg names. Anything that is not an
// http(s) URL, a file with an HTML extension, or an existing file is taken
// as a title.
func Detect(arg string) Format {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Unknown
	}

	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if u, err := url.Parse(arg); err == nil && u.Host != "" {
			return URL
		}
		return Unknown
	}
	if strings.Contains(lower, ".wikipedia.org/") {
		return URL
	}

	switch strings.ToLower(filepath.Ext(arg)) {
	case ".html", ".htm", ".xhtml":
		return HTML
	}
	if fi, err := os.Stat(arg); err == nil && fi.Mode().IsRegular() {
		return HTML
	}

	return Title
}

// Normalize returns arg in the form its format expects: URLs gain a scheme
// when it was omitted; other sources are trimmed.
func Normalize(arg string) string {
	arg = strings.TrimSpace(arg)
	if Detect(arg) == URL && !strings.Contains(strings.ToLower(arg), "://") {
		return "https://" + arg
	}
	return arg
}

// DetectFromMagic checks leading bytes for an HTML document. It returns
// HTML or Unknown.
func DetectFromMagic(data []byte) Format {
	if detectHTMLMagic(data) {
		return HTML
	}
	return Unknown
}

// detectHTMLMagic checks if the data looks like HTML content.
func detectHTMLMagic(data []byte) bool {
	trimmed := strings.TrimLeft(string(data), " \t\r\n\ufeff")
	if trimmed == "" {
		return false
	}

	upper := strings.ToUpper(trimmed[:min(len(trimmed), 512)])
	if strings.HasPrefix(upper, "<!DOCTYPE HTML") || strings.HasPrefix(upper, "<HTML") {
		return true
	}
	// XML declaration followed by html-like content could be XHTML
	if strings.HasPrefix(upper, "<?XML") && strings.Contains(upper, "<HTML") {
		return true
	}
	// Saved fragments such as a lone infobox table
	return strings.HasPrefix(upper, "<TABLE") || strings.HasPrefix(upper, "<DIV")
}
