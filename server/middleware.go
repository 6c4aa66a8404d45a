package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/wikibox/internal/logging"
)

const (
	// TraceHeader carries the request trace ID in both directions.
	TraceHeader = "X-Trace-ID"

	traceKey = "TraceID"
)

// Logger logs one line per request.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(logrus.Fields{
			logging.FieldStatus:   c.Writer.Status(),
			logging.FieldLatency:  time.Since(start).String(),
			logging.FieldClientIP: c.ClientIP(),
			logging.FieldMethod:   c.Request.Method,
			logging.FieldPath:     path,
			logging.FieldTraceID:  c.GetString(traceKey),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Info("HTTP request")
	}
}

// TraceID propagates the caller's X-Trace-ID or assigns a new one.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceKey, id)
		c.Header(TraceHeader, id)
		c.Next()
	}
}

// CORS allows any origin to call the API and proxy.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+TraceHeader)
		h.Set("Access-Control-Expose-Headers", TraceHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ErrorHandler turns handler errors and panics into JSON error responses.
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					logging.FieldError:   r,
					logging.FieldPath:    c.Request.URL.Path,
					logging.FieldTraceID: c.GetString(traceKey),
					"stack":              string(debug.Stack()),
				}).Error("panic recovered")

				writeError(c, NewInternalError("internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		appErr := classify(c.Errors.Last().Err)

		fields := logrus.Fields{
			"error_type":         appErr.Type,
			logging.FieldPath:    c.Request.URL.Path,
			logging.FieldTraceID: c.GetString(traceKey),
		}
		if appErr.Err != nil {
			fields[logging.FieldError] = appErr.Err.Error()
		}
		if appErr.Code >= http.StatusInternalServerError {
			log.WithFields(fields).Error(appErr.Message)
		} else {
			log.WithFields(fields).Warn(appErr.Message)
		}

		writeError(c, appErr)
	}
}

func writeError(c *gin.Context, e *AppError) {
	c.AbortWithStatusJSON(e.Code, errorBody{
		Error:   errorDetail{Type: e.Type, Message: e.Message},
		TraceID: c.GetString(traceKey),
	})
}
