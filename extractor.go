package wikibox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tsawler/wikibox/format"
	"github.com/tsawler/wikibox/infobox"
	"github.com/tsawler/wikibox/selection"
	"github.com/tsawler/wikibox/wikipage"
)

var (
	// ErrNoInfobox is returned by Infobox when the page has none.
	ErrNoInfobox = errors.New("no infobox found")

	// ErrFieldNotFound is returned by Lookup when no infobox has the field.
	ErrFieldNotFound = errors.New("field not found")

	// ErrNoPage is returned when an Extractor is built from a nil page.
	ErrNoPage = errors.New("no page")

	// ErrUnknownSource is returned when the source is neither a URL, an
	// HTML file nor a title.
	ErrUnknownSource = errors.New("unknown source")
)

// Extractor provides a fluent interface for extracting infobox data from a
// page. Configuration methods return a new Extractor; terminal operations
// load the page on first use and reuse it afterwards. An Extractor is safe
// for concurrent use.
type Extractor struct {
	source  string
	kind    format.Format
	reader  io.Reader
	state   *loadState
	options ExtractOptions
	err     error
}

// loadState holds the loaded page. Copies made by configuration methods
// share it, so a reader is consumed once however many copies query it.
type loadState struct {
	once sync.Once
	page *wikipage.Page
	err  error
}

// loadedState returns a state already holding p.
func loadedState(p *wikipage.Page) *loadState {
	st := &loadState{page: p}
	st.once.Do(func() {})
	return st
}

// clone creates a copy of the extractor with cloned options.
// The load state is shared.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		source:  e.source,
		kind:    e.kind,
		reader:  e.reader,
		state:   e.state,
		options: e.options.clone(),
		err:     e.err,
	}
}

// refetch is clone for options that change how a page is fetched. URL and
// title sources get a fresh load state so the new options take effect.
func (e *Extractor) refetch() *Extractor {
	newExt := e.clone()
	if newExt.kind == format.URL || newExt.kind == format.Title {
		newExt.state = &loadState{}
	}
	return newExt
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// Wiki sets the wiki that bare titles resolve against.
//
// Example:
//
//	doc, err := wikibox.Open("Japan").Wiki("https://en.wikipedia.org").Infobox(ctx)
func (e *Extractor) Wiki(baseURL string) *Extractor {
	newExt := e.refetch()
	newExt.options.baseURL = strings.TrimRight(baseURL, "/")
	return newExt
}

// WithFetcher loads pages through f instead of the default HTTP fetcher.
func (e *Extractor) WithFetcher(f wikipage.Fetcher) *Extractor {
	newExt := e.refetch()
	newExt.options.fetcher = f
	return newExt
}

// Browser loads pages in headless Chrome so script-built content is seen.
//
// Example:
//
//	docs, err := wikibox.Open("唐朝").Browser().Infoboxes(ctx)
func (e *Extractor) Browser() *Extractor {
	newExt := e.refetch()
	newExt.options.browser = true
	return newExt
}

// UserAgent sets the User-Agent sent when fetching.
func (e *Extractor) UserAgent(ua string) *Extractor {
	newExt := e.refetch()
	newExt.options.userAgent = ua
	return newExt
}

// Timeout bounds a single page fetch.
func (e *Extractor) Timeout(d time.Duration) *Extractor {
	newExt := e.refetch()
	newExt.options.timeout = d
	return newExt
}

// Sections limits infobox output to the named sections.
// Multiple calls are cumulative.
//
// Example:
//
//	docs, err := wikibox.Open("page.html").Sections("经济").Infoboxes(ctx)
func (e *Extractor) Sections(names ...string) *Extractor {
	newExt := e.clone()
	newExt.options.sections = append(newExt.options.sections, names...)
	return newExt
}

// Fields limits infobox output to the named fields. Sections left without
// fields are dropped. Multiple calls are cumulative.
func (e *Extractor) Fields(names ...string) *Extractor {
	newExt := e.clone()
	newExt.options.fields = append(newExt.options.fields, names...)
	return newExt
}

// RewriteResources makes resource links in HTML output absolute.
func (e *Extractor) RewriteResources() *Extractor {
	newExt := e.clone()
	newExt.options.rewrite = true
	return newExt
}

// Highlight wraps every occurrence of phrase in HTML output with a
// coloured span. An empty color uses the default highlight colour.
//
// Example:
//
//	out, err := wikibox.Open("唐朝").Highlight("长安", "").HTML(ctx)
func (e *Extractor) Highlight(phrase, color string) *Extractor {
	newExt := e.clone()
	newExt.options.highlight = phrase
	newExt.options.highlightColor = color
	return newExt
}

// HighlightMatches colours all text inside the elements matching a CSS
// selector in HTML output.
//
// Example:
//
//	out, err := wikibox.Open("唐朝").HighlightMatches(".infobox caption", "orange").HTML(ctx)
func (e *Extractor) HighlightMatches(selector, color string) *Extractor {
	newExt := e.clone()
	newExt.options.mark = selector
	newExt.options.markColor = color
	return newExt
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Page returns the loaded page.
func (e *Extractor) Page(ctx context.Context) (*wikipage.Page, error) {
	return e.load(ctx)
}

// Title returns the page's <title> text.
func (e *Extractor) Title(ctx context.Context) (string, error) {
	p, err := e.load(ctx)
	if err != nil {
		return "", err
	}
	return p.Title(), nil
}

// Infoboxes parses every infobox on the page, applying any section and
// field filters. A page without infoboxes yields an empty slice.
func (e *Extractor) Infoboxes(ctx context.Context) ([]*infobox.Document, error) {
	p, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return e.filter(p.Infoboxes()), nil
}

// Infobox returns the first infobox on the page.
func (e *Extractor) Infobox(ctx context.Context) (*infobox.Document, error) {
	docs, err := e.Infoboxes(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoInfobox
	}
	return docs[0], nil
}

// Lookup returns the first field named field across the page's infoboxes.
// An empty section searches every section.
func (e *Extractor) Lookup(ctx context.Context, section, field string) (*infobox.Field, error) {
	docs, err := e.Infoboxes(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		var f *infobox.Field
		if section == "" {
			f = doc.Find(field)
		} else {
			f = doc.Lookup(section, field)
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
}

// JSON returns the page's infoboxes as an indented JSON array.
func (e *Extractor) JSON(ctx context.Context) ([]byte, error) {
	docs, err := e.Infoboxes(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*infobox.Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding infoboxes: %w", err)
	}
	return data, nil
}

// Markdown renders each infobox as Markdown, separated by blank lines.
func (e *Extractor) Markdown(ctx context.Context) (string, error) {
	docs, err := e.Infoboxes(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, strings.TrimRight(doc.Markdown(), "\n"))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// Select extracts the text matching a CSS selector, labelled with the
// extractor's source. It returns nil when nothing matches.
func (e *Extractor) Select(ctx context.Context, selector string) (*selection.Selection, error) {
	p, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return p.Selection(e.source, selector)
}

// HTML renders the page with any resource rewriting and highlighting
// applied. The loaded page itself is left unchanged.
func (e *Extractor) HTML(ctx context.Context) (string, error) {
	p, err := e.load(ctx)
	if err != nil {
		return "", err
	}
	if !e.options.rewrite && e.options.highlight == "" && e.options.mark == "" {
		return p.HTML()
	}

	out, err := p.HTML()
	if err != nil {
		return "", err
	}
	cp, err := wikipage.OpenReader(strings.NewReader(out), p.URL)
	if err != nil {
		return "", err
	}
	if e.options.rewrite {
		wikipage.RewriteResources(cp)
	}
	if e.options.highlight != "" {
		selection.HighlightText(cp.Root, e.options.highlight, e.options.highlightColor)
	}
	if e.options.mark != "" {
		if _, err := selection.HighlightSelector(cp.Root, e.options.mark, e.options.markColor); err != nil {
			return "", err
		}
	}
	return cp.HTML()
}

// ============================================================================
// Internal Methods
// ============================================================================

// load returns the page, reading or fetching it on first use.
func (e *Extractor) load(ctx context.Context) (*wikipage.Page, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.state.once.Do(func() {
		e.state.page, e.state.err = e.open(ctx)
	})
	return e.state.page, e.state.err
}

func (e *Extractor) open(ctx context.Context) (*wikipage.Page, error) {
	switch {
	case e.reader != nil:
		return wikipage.OpenReader(e.reader, e.source)
	case e.kind == format.HTML:
		return wikipage.Open(e.source)
	case e.kind == format.URL:
		return e.options.newFetcher().Fetch(ctx, format.Normalize(e.source))
	case e.kind == format.Title:
		return e.options.newFetcher().Fetch(ctx, wikipage.TitleURL(e.options.baseURL, e.source))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, e.source)
}

// filter applies the section and field filters. Documents are copied so
// the unfiltered parse is untouched.
func (e *Extractor) filter(docs []*infobox.Document) []*infobox.Document {
	if len(e.options.sections) == 0 && len(e.options.fields) == 0 {
		return docs
	}
	sections := toSet(e.options.sections)
	fields := toSet(e.options.fields)

	out := make([]*infobox.Document, 0, len(docs))
	for _, doc := range docs {
		cp := &infobox.Document{Title: doc.Title, Type: doc.Type}
		for _, s := range doc.Sections {
			if sections != nil && !sections[s.Name] {
				continue
			}
			if fields == nil {
				cp.Sections = append(cp.Sections, s)
				continue
			}
			kept := &infobox.Section{Name: s.Name}
			for _, f := range s.Fields {
				if fields[f.Name] {
					kept.Fields = append(kept.Fields, f)
				}
			}
			if len(kept.Fields) > 0 {
				cp.Sections = append(cp.Sections, kept)
			}
		}
		out = append(out, cp)
	}
	return out
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
