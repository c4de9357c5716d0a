package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/privatepub/internal/auth"
	"github.com/nerrad567/privatepub/internal/infrastructure/config"
)

const (
	headerRequestID = "X-Request-ID"

	// maxRequestIDLength bounds a client-supplied request ID before it is
	// echoed back and written to the access log.
	maxRequestIDLength = 128

	// maxRequestBodySize bounds publish payloads and ticket requests (1 MB).
	maxRequestBodySize = 1 << 20
)

type contextKey int

const (
	ctxKeyRequest contextKey = iota
	ctxKeyClaims
)

// requestInfo travels with a request through the middleware chain.
// authMiddleware fills in the calling service once its token is checked,
// so the access log names who published or asked for a ticket.
type requestInfo struct {
	id    string
	actor string
	role  auth.Role
}

// requestFrom returns the request's info, or an empty one outside the chain.
func requestFrom(ctx context.Context) *requestInfo {
	if info, ok := ctx.Value(ctxKeyRequest).(*requestInfo); ok {
		return info
	}
	return &requestInfo{}
}

// requestIDMiddleware honours a sane X-Request-ID from the caller and
// generates one otherwise.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		ctx := context.WithValue(r.Context(), ctxKeyRequest, &requestInfo{id: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLogMiddleware writes one line per request. Server errors log at
// error level, rejected calls at warn.
func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tw := &trackingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(tw, r)

		info := requestFrom(r.Context())
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", tw.status,
			"bytes", tw.written,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", info.id,
		}
		if info.actor != "" {
			args = append(args, "actor", info.actor, "role", string(info.role))
		}

		switch {
		case tw.status >= http.StatusInternalServerError:
			s.logger.Error("http request", args...)
		case tw.status >= http.StatusBadRequest:
			s.logger.Warn("http request", args...)
		default:
			s.logger.Info("http request", args...)
		}
	})
}

// recoveryMiddleware turns a handler panic into a 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				info := requestFrom(r.Context())
				s.logger.Error("handler panicked",
					"panic", p,
					"path", r.URL.Path,
					"request_id", info.id,
					"actor", info.actor,
				)
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsPolicy is the api.cors section resolved once at router build time.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		anyOrigin: len(cfg.AllowedOrigins) == 0,
		origins:   make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:   "GET, POST, OPTIONS",
		headers:   "Authorization, Content-Type, " + headerRequestID,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
		}
		p.origins[o] = struct{}{}
	}
	if len(cfg.AllowedMethods) > 0 {
		p.methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	if len(cfg.AllowedHeaders) > 0 {
		p.headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// corsMiddleware answers preflights and tags allowed origins. An empty
// allowed_origins list allows every origin.
func (s *Server) corsMiddleware(policy corsPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && policy.allows(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", policy.methods)
				h.Set("Access-Control-Allow-Headers", policy.headers)
				h.Set("Access-Control-Max-Age", "86400")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limitBody caps request bodies at n bytes.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// trackingWriter records the status code and body size for the access log.
type trackingWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *trackingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the broker bridge upgrade to a WebSocket.
func (w *trackingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	return h.Hijack()
}
