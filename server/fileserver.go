/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server serves stored artifacts over HTTP. Resolution is exact path
// first, then a recursive search by bare filename, so artifacts relocated
// into subdirectories remain reachable by old URLs.
package server

import (
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarlab/thumbcache/imgformat"
)

// cacheControl is the header value applied to every served artifact.
// Artifacts are content-addressed and immutable, so clients may cache them
// for a year.
const cacheControl = "public, max-age=31536000, immutable"

// FileServer resolves request paths to files under a configured asset root
// and streams them with range support.
type FileServer struct {
	root    string
	log     logr.Logger
	metrics *serverMetrics
}

// NewFileServer returns a FileServer rooted at root. If reg is non-nil,
// request outcome metrics are registered on it.
func NewFileServer(root string, log logr.Logger, reg prometheus.Registerer) *FileServer {
	var m *serverMetrics
	if reg != nil {
		m = newServerMetrics(reg)
	}
	return &FileServer{
		root:    root,
		log:     log,
		metrics: m,
	}
}

// ServeHTTP implements the asset read path. The empty path and /health are
// liveness responses; everything else resolves against the asset root.
func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqPath := strings.TrimPrefix(r.URL.Path, "/")

	switch reqPath {
	case "":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
		return
	case "health":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
		return
	}

	filePath, result := s.resolve(reqPath)
	s.metrics.incRequests(result)
	switch result {
	case resultBadRequest:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case resultNotFound:
		http.NotFound(w, r)
	default:
		s.serveFile(w, r, filePath)
	}
}

// resolve maps a request path to a file under the asset root. It returns the
// file path and the outcome label: resultServed or resultFallback on a hit,
// resultBadRequest for traversal attempts, resultNotFound when nothing
// matches.
func (s *FileServer) resolve(reqPath string) (string, string) {
	// Reject parent-directory traversal before touching the filesystem.
	if containsDotDot(reqPath) {
		return "", resultBadRequest
	}

	direct, err := securejoin.SecureJoin(s.root, filepath.FromSlash(reqPath))
	if err != nil {
		return "", resultBadRequest
	}
	if isRegular(direct) {
		return direct, resultServed
	}

	// A bare filename may have been relocated into a subdirectory, e.g. a
	// thumbnails subtree. Walk the root for the first exact name match.
	if name := path.Base(reqPath); name == reqPath && name != "" {
		if match, ok := s.searchByName(name); ok {
			s.log.V(1).Info("resolved by fallback search", "name", name)
			return match, resultFallback
		}
	}

	return "", resultNotFound
}

// searchByName walks the asset root and returns the first regular file whose
// name matches exactly. Walk order is filesystem-defined; the first match
// wins.
func (s *FileServer) searchByName(name string) (string, bool) {
	var match string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			match = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil || match == "" {
		return "", false
	}
	return match, true
}

// serveFile streams the resolved file with immutable caching and byte-range
// support.
func (s *FileServer) serveFile(w http.ResponseWriter, r *http.Request, filePath string) {
	w.Header().Set("Content-Type", contentTypeFor(filePath))
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeFile(w, r, filePath)
}

// contentTypeFor returns the content type for the file's extension. Image
// extensions the store produces are mapped directly; anything else consults
// the system MIME table and falls back to application/octet-stream.
func contentTypeFor(filePath string) string {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".png":
		return imgformat.PNG.ContentType()
	case ".jpg", ".jpeg":
		return imgformat.JPEG.ContentType()
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// containsDotDot reports whether any slash- or backslash-separated segment
// of the path is "..".
func containsDotDot(p string) bool {
	if !strings.Contains(p, "..") {
		return false
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// isRegular reports whether p exists as a regular file.
func isRegular(p string) bool {
	fi, err := os.Lstat(p)
	return err == nil && fi.Mode().IsRegular()
}
