package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/biome-terrain/internal/logging"
)

// TraceIDKey — ключ trace-ID в gin.Context
const TraceIDKey = "trace_id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Запросы к служебным путям (health, metrics) пишутся на уровне DEBUG.
type RequestLogger struct {
	quiet []string
}

func NewRequestLogger(quietPrefixes ...string) *RequestLogger {
	if len(quietPrefixes) == 0 {
		quietPrefixes = []string{"/health", "/metrics"}
	}
	return &RequestLogger{quiet: quietPrefixes}
}

func (rl *RequestLogger) isQuiet(path string) bool {
	for _, p := range rl.quiet {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-Id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			logging.Error("[HTTP] %s %s %d %s ip=%s trace=%s", method, path, status, latency, c.ClientIP(), traceID)
		case rl.isQuiet(path):
			logging.Debug("[HTTP] %s %s %d %s", method, path, status, latency)
		default:
			logging.Info("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		}
	}
}
