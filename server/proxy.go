package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/wikibox/internal/logging"
)

// newProxy returns a reverse proxy to target that rewrites the Host header
// and replaces upstream CORS headers with the server's own.
func newProxy(target string, log *logrus.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q", target)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(u)
			r.Out.Header.Del("Origin")
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Access-Control-Allow-Origin")
			resp.Header.Del("Access-Control-Allow-Methods")
			resp.Header.Del("Access-Control-Allow-Headers")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithFields(logrus.Fields{
				logging.FieldURL:   u.String() + r.URL.Path,
				logging.FieldError: err.Error(),
			}).Error("proxy request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

// handleProxy forwards /proxy/*path to the target with the prefix removed.
func (s *Server) handleProxy(c *gin.Context) {
	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = c.Param("path")
	req.URL.RawPath = ""
	if req.URL.Path == "" {
		req.URL.Path = "/"
	}
	s.proxy.ServeHTTP(c.Writer, req)
}
