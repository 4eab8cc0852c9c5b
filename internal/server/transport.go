package server

import (
	"net/http"
	"time"

	"birdbot/internal/utils"
)

// NewHTTPClient builds the shared outbound client: a sane timeout, the
// configured product User-Agent on every request, and request logging when
// verbose.
func NewHTTPClient(userAgent string) *http.Client {
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: outboundRoundTripper{
			base:      http.DefaultTransport,
			userAgent: userAgent,
		},
	}
}

type outboundRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t outboundRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if !utils.Verbose {
		return base.RoundTrip(req)
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	dur := time.Since(start)
	if err != nil {
		utils.Warn("http outbound error", "method", req.Method, "url", req.URL.Redacted(), "dur", dur.Truncate(time.Millisecond).String(), "err", err)
		return nil, err
	}
	// Never log request headers/body (may contain tokens). Only method/url/status.
	utils.Debug("http outbound", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "dur", dur.Truncate(time.Millisecond).String())
	return resp, nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.Verbose {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		dur := time.Since(start)
		status := lrw.status
		if status == 0 {
			status = http.StatusOK
		}
		utils.Debug(
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", lrw.bytes,
			"dur", dur.Truncate(time.Millisecond).String(),
			"remote", r.RemoteAddr,
		)
	})
}
