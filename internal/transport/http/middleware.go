package http

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LoggingMiddleware creates HTTP middleware for logging requests and responses
type LoggingMiddleware struct {
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		verbose: verbose,
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture response details
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.body != nil && lrw.statusCode >= 400 {
		lrw.body.Write(b)
	}
	return lrw.ResponseWriter.Write(b)
}

// Middleware returns the HTTP logging middleware function
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.verbose {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		log.Printf("[HTTP REQUEST] %s %s from %s", r.Method, r.URL.RequestURI(), r.RemoteAddr)

		if r.Method == http.MethodPost && r.Body != nil {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				log.Printf("[HTTP REQUEST] Error reading request body: %v", err)
			} else {
				r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				if len(bodyBytes) > 0 {
					log.Printf("[HTTP REQUEST] Form: %s", redactForm(string(bodyBytes)))
				}
			}
		}

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP RESPONSE] %s %s -> %d in %v", r.Method, r.URL.Path, lrw.statusCode, duration)

		if location := lrw.Header().Get("Location"); location != "" {
			log.Printf("[HTTP RESPONSE] Location: %s", location)
		}
		if lrw.body.Len() > 0 && strings.HasPrefix(lrw.Header().Get("Content-Type"), "text/plain") {
			log.Printf("[HTTP RESPONSE] Error body: %s", lrw.body.String())
		}
	})
}

// redactForm masks password fields in a urlencoded body
func redactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return "(unparseable form)"
	}
	for key := range values {
		if strings.Contains(strings.ToLower(key), "password") {
			values.Set(key, "***")
		}
	}
	return values.Encode()
}
