// Package static serves fixture files from a directory on disk.
//
// Every open goes through an os.Root bound to the fixture directory, so a
// request can never read outside it: parent segments are rejected before the
// lookup, and symlinks that point out of the root fail to open.
package static

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Handler serves regular files below a fixed root directory. Request paths are
// relative to the root; mount it behind http.StripPrefix.
type Handler struct {
	dir    string
	root   *os.Root
	logger *slog.Logger
}

// NewHandler opens dir as the static file root.
func NewHandler(dir string) (*Handler, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving static dir %s: %w", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("opening static dir %s: %w", abs, err)
	}
	return &Handler{
		dir:    abs,
		root:   root,
		logger: slog.With("component", "static"),
	}, nil
}

// Dir returns the absolute path of the root directory.
func (h *Handler) Dir() string {
	return h.dir
}

// Close releases the root directory handle.
func (h *Handler) Close() error {
	return h.root.Close()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := resolve(r.URL.Path)
	if !ok {
		h.logger.Debug("rejected path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	f, err := h.root.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	// ServeContent picks the Content-Type from the extension, falling back to
	// sniffing, and handles Range and If-Modified-Since.
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolve turns a request path into a root-relative file name. It reports
// false for anything that is not a plain local path.
func resolve(urlPath string) (string, bool) {
	p := strings.TrimPrefix(urlPath, "/")
	if p == "" || strings.ContainsRune(p, 0) {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	name := filepath.FromSlash(p)
	if !filepath.IsLocal(name) {
		return "", false
	}
	return filepath.Clean(name), true
}
