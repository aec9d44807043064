package web

// uploads.go handles multipart file uploads into the uploads
// directory tree. The mirror watcher copies anything written here to
// the mirror directory.

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps the size of an uploaded file.
const maxUploadBytes = 10 << 20

// handleUpload accepts a multipart file upload into the given kind's
// subdirectory and returns its relative path for linking from other
// records.
func (web *WebApp) handleUpload() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		kind := mux.Vars(r)["kind"]
		path, err := web.saveUpload(r, kind)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		web.respondJSON(w, http.StatusCreated, struct {
			Success bool   `json:"success"`
			Path    string `json:"path"`
		}{
			Success: true,
			Path:    path,
		})
	})
}

// saveUpload stores the request's "file" form part under the given
// uploads subdirectory, returning its slash-separated relative path.
func (web *WebApp) saveUpload(r *http.Request, kind string) (string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("could not read uploaded file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	name := sanitizeFilename(header.Filename)
	relPath := filepath.Join(kind, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	fullPath := filepath.Join(web.cfg.Uploads.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return filepath.ToSlash(relPath), nil
}

// sanitizeFilename strips any path components and characters outside
// a conservative set from a client-provided filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
