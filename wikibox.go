// Package wikibox pulls infobox data out of Wikipedia articles.
//
// A page may come from a URL, a saved HTML file or a bare article title,
// and the fluent Extractor turns it into typed infobox records, Markdown,
// JSON or text selections.
//
// Basic usage:
//
//	doc, err := wikibox.Open("中华人民共和国").Infobox(ctx)
//
// With options:
//
//	docs, err := wikibox.Open("https://en.wikipedia.org/wiki/Japan").
//	    Sections("Economy").
//	    Infoboxes(ctx)
//
// Saved pages:
//
//	md, err := wikibox.Open("saved/tang.html").Markdown(ctx)
//
// Comparing a field across pages:
//
//	s, err := wikibox.Series(ctx, "GDP", "", "GDP (nominal)",
//	    wikibox.Open("中国"), wikibox.Open("日本"))
package wikibox

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/wikibox/chart"
	"github.com/tsawler/wikibox/format"
	"github.com/tsawler/wikibox/infobox"
	"github.com/tsawler/wikibox/wikipage"
)

// Open creates an Extractor for source, which may be a page URL, the path
// of an HTML file or an article title. The page is not loaded until a
// terminal operation runs.
//
// Example:
//
//	doc, err := wikibox.Open("唐朝").Infobox(ctx)
func Open(source string) *Extractor {
	return &Extractor{
		source:  source,
		kind:    format.Detect(source),
		state:   &loadState{},
		options: defaultOptions(),
	}
}

// FromReader creates an Extractor that parses HTML from r. pageURL is used
// to resolve relative resource links and may be empty. The reader is
// consumed by the first terminal operation on the Extractor or any copy
// of it, and the parsed page is shared between them.
func FromReader(r io.Reader, pageURL string) *Extractor {
	return &Extractor{
		source:  pageURL,
		kind:    format.HTML,
		reader:  r,
		state:   &loadState{},
		options: defaultOptions(),
	}
}

// FromPage creates an Extractor over an already loaded page.
func FromPage(p *wikipage.Page) *Extractor {
	e := &Extractor{
		kind:    format.HTML,
		state:   loadedState(p),
		options: defaultOptions(),
	}
	if p == nil {
		e.err = ErrNoPage
	} else {
		e.source = p.URL
	}
	return e
}

// Series loads every extractor concurrently and builds one chart point per
// page from the first infobox's section/field value. An empty section
// searches all sections. Pages without an infobox contribute a zero point
// labelled with their source. Nil extractors are skipped; an extractor
// passed more than once is loaded once and yields a point each time.
func Series(ctx context.Context, name, section, field string, exts ...*Extractor) (chart.Series, error) {
	live := make([]*Extractor, 0, len(exts))
	for _, ext := range exts {
		if ext != nil {
			live = append(live, ext)
		}
	}
	docs := make([]*infobox.Document, len(live))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ext := range live {
		g.Go(func() error {
			found, err := ext.Infoboxes(gctx)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				docs[i] = found[0]
			} else {
				docs[i] = &infobox.Document{Title: ext.source, Type: infobox.TypeOther}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return chart.Series{}, err
	}
	return chart.SeriesFromDocuments(name, docs, section, field), nil
}

// Must is a helper that panics if err is non-nil.
// It is intended for use in examples and tests where errors are unexpected.
//
// Example:
//
//	doc := wikibox.Must(wikibox.Open("page.html").Infobox(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
