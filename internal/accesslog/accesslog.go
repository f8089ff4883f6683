// Package accesslog records every request served by either listener as
// newline-delimited JSON in an append-only file.
package accesslog

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"
)

// Entry is a single access log record.
type Entry struct {
	Timestamp  time.Time `json:"ts"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Host       string    `json:"host,omitempty"`
	Status     int       `json:"status"`
	Bytes      int64     `json:"bytes"`
	DurationMS float64   `json:"duration_ms"`
	Remote     string    `json:"remote,omitempty"`
	Listener   string    `json:"listener,omitempty"` // local address that accepted the connection
	TLS        bool      `json:"tls,omitempty"`
}

// Logger writes access entries to an append-only destination.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// Open creates or opens an access log file for appending.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening access log: %w", err)
	}
	return &Logger{w: f, c: f}, nil
}

// New wraps an existing writer. Close is a no-op for loggers built this way.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Log writes an access entry.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling access entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing access entry: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

// Middleware wraps next so every request it serves is logged.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		entry := Entry{
			Timestamp:  start.UTC(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Host:       r.Host,
			Status:     rec.status,
			Bytes:      rec.bytes,
			DurationMS: float64(time.Since(start).Microseconds()) / 1000,
			Remote:     r.RemoteAddr,
			TLS:        r.TLS != nil,
		}
		if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			entry.Listener = addr.String()
		}
		// A failed write must not affect the response, which is already sent.
		_ = l.Log(entry)
	})
}

type recorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
