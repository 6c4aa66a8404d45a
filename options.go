package wikibox

import (
	"time"

	"github.com/tsawler/wikibox/wikipage"
)

// DefaultWiki is the wiki bare page titles resolve against.
const DefaultWiki = "https://zh.wikipedia.org"

// ExtractOptions holds configuration for page loading and infobox output.
type ExtractOptions struct {
	// Page loading
	baseURL   string
	fetcher   wikipage.Fetcher
	browser   bool
	userAgent string
	timeout   time.Duration

	// Output filtering
	sections []string
	fields   []string

	// HTML output
	rewrite        bool
	highlight      string
	highlightColor string
	mark           string
	markColor      string
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		baseURL: DefaultWiki,
	}
}

// clone creates a deep copy of the options.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o
	if o.sections != nil {
		newOpts.sections = make([]string, len(o.sections))
		copy(newOpts.sections, o.sections)
	}
	if o.fields != nil {
		newOpts.fields = make([]string, len(o.fields))
		copy(newOpts.fields, o.fields)
	}
	return newOpts
}

// newFetcher returns the configured fetcher, or builds one from the
// loading options.
func (o ExtractOptions) newFetcher() wikipage.Fetcher {
	if o.fetcher != nil {
		return o.fetcher
	}
	if o.browser {
		f := wikipage.NewBrowserFetcher()
		if o.userAgent != "" {
			f.UserAgent = o.userAgent
		}
		if o.timeout > 0 {
			f.Timeout = o.timeout
		}
		return f
	}
	f := wikipage.NewHTTPFetcher()
	if o.userAgent != "" {
		f.UserAgent = o.userAgent
	}
	if o.timeout > 0 {
		f.Timeout = o.timeout
	}
	return f
}
