package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type bodySizeContextKey struct{}

var sensitiveHeaders = map[string]struct{}{
	"authorization":  {},
	"x-api-key":      {},
	"api-key":        {},
	"x-goog-api-key": {},
}

type logTransport struct {
	transport http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Any("headers", redactHeaders(req.Header)),
	}
	if size, ok := ctx.Value(bodySizeContextKey{}).(int); ok {
		fields = append(fields, zap.Int("body_bytes", size))
	}

	resp, err := t.transport.RoundTrip(req)

	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		ctxzap.Debug(ctx, "HTTP outbound request failed", append(fields, zap.Error(err))...)
		return resp, err
	}

	ctxzap.Debug(ctx, "HTTP outbound request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = strings.Join(v, ",")
	}
	return out
}

// WithRequestLogging logs method, URL, status and latency of every call at debug level.
// Credential headers are never written to the log.
func WithRequestLogging() HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{
			transport: rt,
		}
	})
}
