package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// FallbackDomain is reported when a request carries no Host.
const FallbackDomain = "localhost"

// Info is the diagnostic payload returned by GET /.
type Info struct {
	Domain string `json:"domain"`
	Port   int    `json:"port"`
}

// NewHandler builds the request handling shared by both listeners: the
// diagnostic endpoint at GET / and files under filesPrefix. Anything else is
// a 404.
func NewHandler(filesPrefix string, files http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", serveInfo)
	mux.Handle(filesPrefix, http.StripPrefix(strings.TrimSuffix(filesPrefix, "/"), files))
	return mux
}

func serveInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RequestInfo(r))
}

// RequestInfo reports the host name the client used and the port of the
// listener that accepted the connection.
func RequestInfo(r *http.Request) Info {
	return Info{
		Domain: requestHost(r),
		Port:   localPort(r),
	}
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return FallbackDomain
	}
	return host
}

func localPort(r *http.Request) int {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return 0
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
