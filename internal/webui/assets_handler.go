package webui

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var allowedAssetExtensions = map[string]bool{
	".html": true, ".css": true, ".js": true,
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".ico": true, ".woff2": true,
}

// assetsHandler serves one file from AssetsDir. Only whitelisted
// extensions are served and the resolved path must stay inside the directory.
func (webUI *WebUI) assetsHandler(w http.ResponseWriter, r *http.Request) {
	fileName := r.PathValue("file")
	if fileName == "" {
		fileName = filepath.Base(r.URL.Path)
	}
	if !allowedAssetExtensions[strings.ToLower(filepath.Ext(fileName))] {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, "/\\\x00") {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	dir := webUI.AssetsDir
	if dir == "" {
		dir = "assets"
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		http.Error(w, "Internal configuration error", http.StatusInternalServerError)
		return
	}
	absPath := filepath.Join(root, fileName)
	if rel, err := filepath.Rel(root, absPath); err != nil || strings.HasPrefix(rel, "..") {
		slog.Warn("potential path traversal attempt blocked", "path", absPath)
		http.NotFound(w, r)
		return
	}

	stat, err := os.Stat(absPath)
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, absPath)
}
