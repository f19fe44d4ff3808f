package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// WebClientHandler serves the built web client. Unknown paths fall back to
// index.html so client-side routes resolve.
type WebClientHandler struct {
	root      string
	indexFile string
}

func NewWebClientHandler(root string) *WebClientHandler {
	return &WebClientHandler{root: root, indexFile: "index.html"}
}

func (h *WebClientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	// path.Clean on a rooted path cannot climb above root.
	rel := path.Clean("/" + r.URL.Path)
	filePath := filepath.Join(h.root, filepath.FromSlash(rel))

	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, filePath)
		return
	}

	indexPath := filepath.Join(h.root, h.indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, indexPath)
}
