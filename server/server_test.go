package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/wikibox/config"
	"github.com/tsawler/wikibox/internal/logging"
	"github.com/tsawler/wikibox/wikipage"
)

const countryPage = `<html><head><title>%[1]s - 维基百科</title></head><body>
<table class="infobox"><caption>%[1]s</caption>
<tr class="infobox-header"><th colspan="2">经济</th></tr>
<tr><th class="infobox-label">GDP</th><td class="infobox-data">%[2]s</td></tr>
</table>
<p id="intro">%[1]s是一个国家。</p>
<img src="/static/flag.png">
</body></html>`

// fakeFetcher serves canned pages by URL and counts fetches.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*wikipage.Page, error) {
	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	if url == "" {
		return nil, wikipage.ErrEmptyURL
	}
	if strings.HasSuffix(url, "/wiki/Panic") {
		panic("fetcher exploded")
	}
	src, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: 404", wikipage.ErrStatus)
	}
	return wikipage.OpenReader(strings.NewReader(src), url)
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type testEnv struct {
	server  *Server
	fetcher *fakeFetcher
	cfg     *config.Config
}

func titleURL(title string) string {
	return wikipage.TitleURL("https://zh.wikipedia.org", title)
}

func setupTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Server.StaticDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte("<h1>wikibox</h1>"), 0o644))
	for _, m := range mutate {
		m(cfg)
	}

	fetcher := &fakeFetcher{
		pages: map[string]string{
			titleURL("中国"): fmt.Sprintf(countryPage, "中国", "$17 trillion (2023)"),
			titleURL("日本"): fmt.Sprintf(countryPage, "日本", "$4 trillion"),
			titleURL("空白"): `<html><body><p>no infobox</p></body></html>`,
		},
		calls: map[string]int{},
	}

	srv, err := New(cfg, logging.Discard(), WithFetcher(fetcher))
	require.NoError(t, err)

	return &testEnv{server: srv, fetcher: fetcher, cfg: cfg}
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(TraceHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTraceIDPropagates(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/infobox", nil)
	req.Header.Set(TraceHeader, "trace-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get(TraceHeader))
	assert.Equal(t, "trace-123", decodeError(t, rec).TraceID)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodOptions, "/api/chart", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestInfoboxCached(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/infobox?title="+url.QueryEscape("中国"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "中国", docs[0]["title"])

	sections, ok := docs[0]["sections"].(map[string]any)
	require.True(t, ok)
	economy, ok := sections["经济"].(map[string]any)
	require.True(t, ok)
	gdp, ok := economy["GDP"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "currency", gdp["type"])
	assert.Equal(t, "$", gdp["currency"])
	assert.Equal(t, 17e12, gdp["value"])

	rec = env.do(http.MethodGet, "/api/infobox?url="+url.QueryEscape(titleURL("中国")), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, env.fetcher.count(titleURL("中国")))
}

func TestInfoboxEmptyPage(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/infobox?title="+url.QueryEscape("空白"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestInfoboxErrors(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/infobox", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorTypeValidation, decodeError(t, rec).Error.Type)

	rec = env.do(http.MethodGet, "/api/infobox?title="+url.QueryEscape("不存在"), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrorTypeUpstream, decodeError(t, rec).Error.Type)

	rec = env.do(http.MethodGet, "/api/infobox?url=page.html", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPanicRecovered(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/infobox?title=Panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrorTypeInternal, decodeError(t, rec).Error.Type)
}

func TestHTML(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/html?"+url.Values{"title": {"日本"}, "highlight": {"国家"}, "color": {"orange"}}.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `src="https://zh.wikipedia.org/static/flag.png"`)
	assert.Contains(t, body, `<span style="background-color: orange">国家</span>`)
}

func TestHTMLHighlightSelector(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/api/html?"+url.Values{"title": {"日本"}, "highlight_selector": {"caption"}}.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<caption><span style="background-color: yellow">日本</span></caption>`)

	rec = env.do(http.MethodGet, "/api/html?"+url.Values{"title": {"日本"}, "highlight_selector": {"p["}}.Encode(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorTypeValidation, decodeError(t, rec).Error.Type)
}

func TestChartJSON(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodPost, "/api/chart", gin.H{
		"titles":  []string{"中国", "日本", "空白"},
		"section": "经济",
		"field":   "GDP",
		"type":    "bar",
		"format":  "json",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cfg struct {
		Type string `json:"type"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Label string    `json:"label"`
				Data  []float64 `json:"data"`
			} `json:"datasets"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))

	assert.Equal(t, "bar", cfg.Type)
	assert.Equal(t, []string{"中国", "日本", titleURL("空白")}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)
	assert.Equal(t, "GDP", cfg.Data.Datasets[0].Label)
	assert.Equal(t, []float64{17e12, 4e12, 0}, cfg.Data.Datasets[0].Data)
}

func TestChartImage(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodPost, "/api/chart", gin.H{
		"urls":   []string{titleURL("中国")},
		"titles": []string{"日本"},
		"field":  "GDP",
		"type":   "line",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = env.do(http.MethodPost, "/api/chart", gin.H{
		"titles": []string{"中国", "日本"},
		"field":  "GDP",
		"format": "svg",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

func TestChartErrors(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing field", gin.H{"titles": []string{"中国"}}, http.StatusBadRequest},
		{"no sources", gin.H{"field": "GDP"}, http.StatusBadRequest},
		{"bad kind", gin.H{"titles": []string{"中国"}, "field": "GDP", "type": "doughnut"}, http.StatusBadRequest},
		{"bad format", gin.H{"titles": []string{"中国"}, "field": "GDP", "format": "gif"}, http.StatusBadRequest},
		{"radar image", gin.H{"titles": []string{"中国"}, "field": "GDP", "type": "radar"}, http.StatusBadRequest},
		{"unknown page", gin.H{"titles": []string{"不存在"}, "field": "GDP"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/chart", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSelection(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodPost, "/api/selection", gin.H{
		"title":    "中国",
		"selector": "#intro",
		"source":   "left",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sel struct {
		Source  string `json:"source"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Equal(t, "left", sel.Source)
	assert.Equal(t, "中国是一个国家。", sel.Content)

	rec = env.do(http.MethodPost, "/api/selection", gin.H{"title": "中国", "selector": "h1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrorTypeNotFound, decodeError(t, rec).Error.Type)

	rec = env.do(http.MethodPost, "/api/selection", gin.H{"title": "中国", "selector": "p["})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/selection", gin.H{"title": "中国"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxy(t *testing.T) {
	var gotPath, gotQuery, gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotHost = r.URL.Path, r.URL.RawQuery, r.Host
		w.Header().Set("Access-Control-Allow-Origin", "https://zh.wikipedia.org")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>upstream</html>")
	}))
	defer upstream.Close()

	env := setupTestEnv(t, func(c *config.Config) { c.Proxy.Target = upstream.URL })

	rec := env.do(http.MethodGet, "/proxy/wiki/Tang?action=raw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>upstream</html>", rec.Body.String())
	assert.Equal(t, "/wiki/Tang", gotPath)
	assert.Equal(t, "action=raw", gotQuery)
	assert.Equal(t, strings.TrimPrefix(upstream.URL, "http://"), gotHost)
	assert.Equal(t, []string{"*"}, rec.Header().Values("Access-Control-Allow-Origin"))
}

func TestProxyUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	env := setupTestEnv(t, func(c *config.Config) { c.Proxy.Target = target })

	rec := env.do(http.MethodGet, "/proxy/wiki/Tang", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNewRejectsBadProxyTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.Target = "::not a url"
	_, err := New(cfg, logging.Discard())
	assert.Error(t, err)
}

func TestStaticFiles(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>wikibox</h1>")

	rec = env.do(http.MethodGet, "/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunShutsDown(t *testing.T) {
	env := setupTestEnv(t, func(c *config.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = 0
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

// newChatEndpoint fakes an OpenAI-compatible API that always answers reply,
// in whichever wire format the request path asks for.
func newChatEndpoint(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"boom"}}`)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/responses") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "resp_1", "object": "response", "model": "test", "status": "completed",
				"output": []map[string]any{{
					"id": "out_1", "type": "message", "role": "assistant",
					"content": []map[string]any{{"type": "output_text", "text": reply}},
				}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "test",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withLLM(baseURL string) func(*config.Config) {
	return func(c *config.Config) {
		c.LLM.APIKey = "sk-test"
		c.LLM.BaseURL = baseURL
	}
}

func TestCompare(t *testing.T) {
	llm := newChatEndpoint(t, http.StatusOK, "文章1侧重政治，文章2侧重经济。")
	env := setupTestEnv(t, withLLM(llm.URL))

	rec := env.do(http.MethodPost, "/api/compare", compareRequest{Text1: "唐朝政治", Text2: "唐朝经济"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "文章1侧重政治，文章2侧重经济。", body["result"])
}

func TestCompareErrors(t *testing.T) {
	llm := newChatEndpoint(t, http.StatusOK, "ok")
	down := newChatEndpoint(t, http.StatusInternalServerError, "")

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		body     any
		wantCode int
		wantType string
	}{
		{"not configured", func(*config.Config) {}, compareRequest{Text1: "a", Text2: "b"}, http.StatusServiceUnavailable, ErrorTypeUnavailable},
		{"empty text", withLLM(llm.URL), compareRequest{Text1: "a"}, http.StatusBadRequest, ErrorTypeValidation},
		{"bad body", withLLM(llm.URL), "not an object", http.StatusBadRequest, ErrorTypeValidation},
		{"model down", withLLM(down.URL), compareRequest{Text1: "a", Text2: "b"}, http.StatusBadGateway, ErrorTypeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, tt.mutate)
			rec := env.do(http.MethodPost, "/api/compare", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantType, decodeError(t, rec).Error.Type)
		})
	}
}
