package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/wikibox/chart"
	"github.com/tsawler/wikibox/compare"
	"github.com/tsawler/wikibox/format"
	"github.com/tsawler/wikibox/infobox"
	"github.com/tsawler/wikibox/selection"
	"github.com/tsawler/wikibox/wikipage"
)

// maxChartSources bounds the pages one chart request may compare.
const maxChartSources = 20

// chartRequest is the body of POST /api/chart.
type chartRequest struct {
	URLs    []string `json:"urls"`
	Titles  []string `json:"titles"`
	Section string   `json:"section"`
	Field   string   `json:"field" binding:"required"`
	Type    string   `json:"type"`
	Format  string   `json:"format"`
	Title   string   `json:"title"`
	XLabel  string   `json:"x_label"`
	YLabel  string   `json:"y_label"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
}

// selectionRequest is the body of POST /api/selection.
type selectionRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Selector string `json:"selector" binding:"required"`
	Source   string `json:"source"`
}

// compareRequest is the body of POST /api/compare.
type compareRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleHTML returns the fetched page with resource links made absolute,
// optionally highlighting a phrase and the elements matching a selector.
func (s *Server) handleHTML(c *gin.Context) {
	target, err := s.resolve(c.Query("url"), c.Query("title"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := s.fetcher.Fetch(c.Request.Context(), target)
	if err != nil {
		_ = c.Error(fetchError(err))
		return
	}

	wikipage.RewriteResources(page)
	if phrase := c.Query("highlight"); phrase != "" {
		selection.HighlightText(page.Root, phrase, c.Query("color"))
	}
	if sel := c.Query("highlight_selector"); sel != "" {
		if _, err := selection.HighlightSelector(page.Root, sel, c.Query("color")); err != nil {
			_ = c.Error(err)
			return
		}
	}

	out, err := page.HTML()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// handleInfobox returns every infobox on the page as a JSON array.
func (s *Server) handleInfobox(c *gin.Context) {
	target, err := s.resolve(c.Query("url"), c.Query("title"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	docs, hit, err := s.infoboxes(c.Request.Context(), target)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	if docs == nil {
		docs = []*infobox.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

// handleChart compares one field across pages as a chart image or a
// Chart.js config.
func (s *Server) handleChart(c *gin.Context) {
	var req chartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(NewValidationError("invalid request body: " + err.Error()))
		return
	}

	sources := make([]string, 0, len(req.URLs)+len(req.Titles))
	add := func(rawURL, title string) bool {
		if strings.TrimSpace(rawURL+title) == "" {
			return true
		}
		target, err := s.resolve(rawURL, title)
		if err != nil {
			_ = c.Error(err)
			return false
		}
		sources = append(sources, target)
		return true
	}
	for _, u := range req.URLs {
		if !add(u, "") {
			return
		}
	}
	for _, t := range req.Titles {
		if !add("", t) {
			return
		}
	}
	if len(sources) == 0 {
		_ = c.Error(NewValidationError("at least one url or title is required"))
		return
	}
	if len(sources) > maxChartSources {
		_ = c.Error(NewValidationError("too many pages in one chart"))
		return
	}

	if req.Type == "" {
		req.Type = string(chart.KindBar)
	}
	kind, err := chart.ParseKind(req.Type)
	if err != nil {
		_ = c.Error(NewValidationError(err.Error()))
		return
	}

	outFormat := chart.Format(strings.ToLower(req.Format))
	switch outFormat {
	case "":
		outFormat = chart.FormatPNG
	case chart.FormatPNG, chart.FormatSVG, "json":
	default:
		_ = c.Error(NewValidationError("format must be png, svg or json"))
		return
	}

	docs, err := s.firstInfoboxes(c.Request.Context(), sources)
	if err != nil {
		_ = c.Error(err)
		return
	}

	series := chart.SeriesFromDocuments(req.Field, docs, req.Section, req.Field)
	cfg, err := chart.Build(kind, chart.Axes{X: req.XLabel, Y: req.YLabel}, series)
	if err != nil {
		_ = c.Error(NewValidationError(err.Error()))
		return
	}

	if outFormat == "json" {
		c.JSON(http.StatusOK, cfg)
		return
	}

	var buf bytes.Buffer
	opts := chart.RenderOptions{Title: req.Title, Width: req.Width, Height: req.Height}
	if err := chart.Render(&buf, cfg, outFormat, opts); err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, outFormat.ContentType(), buf.Bytes())
}

// handleSelection extracts the text matching a CSS selector.
func (s *Server) handleSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(NewValidationError("invalid request body: " + err.Error()))
		return
	}

	target, err := s.resolve(req.URL, req.Title)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := s.fetcher.Fetch(c.Request.Context(), target)
	if err != nil {
		_ = c.Error(fetchError(err))
		return
	}

	sel, err := page.Selection(req.Source, req.Selector)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if sel == nil {
		_ = c.Error(NewNotFoundError("no content matched the selector"))
		return
	}
	c.JSON(http.StatusOK, sel)
}

// handleCompare asks the configured chat model to compare two texts.
func (s *Server) handleCompare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(NewValidationError("invalid request body: " + err.Error()))
		return
	}

	result, err := s.comparer.Compare(c.Request.Context(), req.Text1, req.Text2)
	if err != nil {
		if errors.Is(err, compare.ErrEmptyText) || errors.Is(err, compare.ErrNotConfigured) {
			_ = c.Error(err)
			return
		}
		_ = c.Error(NewUpstreamError("comparison failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// resolve turns a url or title parameter into a page URL. A url parameter
// that is really a bare title is resolved against the configured wiki.
func (s *Server) resolve(rawURL, title string) (string, error) {
	src := strings.TrimSpace(rawURL)
	if src == "" {
		src = strings.TrimSpace(title)
		if src == "" {
			return "", wikipage.ErrEmptyURL
		}
		return wikipage.TitleURL(s.cfg.Fetch.BaseURL, src), nil
	}

	switch format.Detect(src) {
	case format.URL:
		return format.Normalize(src), nil
	case format.Title:
		return wikipage.TitleURL(s.cfg.Fetch.BaseURL, src), nil
	default:
		return "", NewValidationError("url must be an http(s) address or a page title")
	}
}

// fetchError reports every fetch failure except a missing URL as an
// upstream error.
func fetchError(err error) error {
	if errors.Is(err, wikipage.ErrEmptyURL) {
		return err
	}
	return NewUpstreamError("fetching page failed", err)
}

// infoboxes returns the parsed infoboxes of a page, reporting whether they
// came from the cache.
func (s *Server) infoboxes(ctx context.Context, pageURL string) ([]*infobox.Document, bool, error) {
	if v, ok := s.cache.Get(pageURL); ok {
		if docs, ok := v.([]*infobox.Document); ok {
			return docs, true, nil
		}
	}

	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, false, fetchError(err)
	}
	docs := page.Infoboxes()
	s.cache.Set(pageURL, docs, gocache.DefaultExpiration)
	return docs, false, nil
}

// firstInfoboxes fetches every source concurrently and returns the first
// infobox of each, in source order. Pages without an infobox yield an empty
// document titled with the source so chart labels stay aligned.
func (s *Server) firstInfoboxes(ctx context.Context, sources []string) ([]*infobox.Document, error) {
	docs := make([]*infobox.Document, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			found, _, err := s.infoboxes(gctx, src)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				docs[i] = found[0]
			} else {
				docs[i] = &infobox.Document{Title: src, Type: infobox.TypeOther}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
