package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRequestID reuses X-Request-Id when the client sent one and echoes it back.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// WithRecover answers 500 when a handler panics. It must sit inside
// WithAccessLog so the failed request is still logged.
func WithRecover(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err := fmt.Errorf("panic: %v", rec)
				noteError(w, err)
				logger.Printf("[error] %s %s request=%s: %v\n%s", r.Method, r.URL.Path, RequestIDFromContext(r.Context()), err, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLog is one access log line.
type requestLog struct {
	RequestID  string `json:"requestId"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Query      string `json:"query,omitempty"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"durationMs"`
	Remote     string `json:"remote"`
	Error      string `json:"error,omitempty"`
}

// WithAccessLog writes a JSON line per request, including the error the
// handler mapped to its status code.
func WithAccessLog(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &recorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				entry := requestLog{
					RequestID:  RequestIDFromContext(r.Context()),
					Method:     r.Method,
					Path:       r.URL.Path,
					Query:      r.URL.RawQuery,
					Status:     rw.status,
					Bytes:      rw.bytes,
					DurationMS: time.Since(start).Milliseconds(),
					Remote:     remoteHost(r.RemoteAddr),
				}
				if rw.err != nil {
					entry.Error = rw.err.Error()
				}
				line, err := json.Marshal(entry)
				if err != nil {
					logger.Printf("[error] encode access log: %v", err)
					return
				}
				logger.Printf("[info] http %s", line)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// recorder captures what the handler answered.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (rw *recorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recorder) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

// noteError hands err to the access log when w comes from WithAccessLog.
func noteError(w http.ResponseWriter, err error) {
	if rw, ok := w.(*recorder); ok {
		rw.err = err
	}
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
