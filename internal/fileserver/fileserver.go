// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fileserver implements the read-only static-file backend
// described in spec.md §4.4: a File-Server service maps a request path to
// a file under a configured base directory, rejecting path traversal and
// never resolving directory requests to index.html.
package fileserver

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// contentTypeByExt is the fixed extension table from spec.md §4.4; unknown
// extensions default to application/octet-stream.
var contentTypeByExt = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".wasm": "application/wasm",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
}

const defaultContentType = "application/octet-stream"

// Server is the read-only mapping from request path to a file under
// BasePath.
type Server struct {
	BasePath string
}

// New builds a Server rooted at basePath.
func New(basePath string) *Server {
	return &Server{BasePath: basePath}
}

// ServeHTTP strips the query (handled by net/http already), resolves the
// remaining path against BasePath, and serves the file. Path traversal
// outside BasePath is rejected with 403. Directory requests return 404
// (no implicit index.html resolution). Content-Type is derived from the
// file extension via the fixed table above.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, seg := range strings.Split(r.URL.Path, "/") {
		if seg == ".." {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	cleaned := filepath.Clean("/" + r.URL.Path)
	full := filepath.Join(s.BasePath, cleaned)

	base, err := filepath.Abs(s.BasePath)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	absFull, err := filepath.Abs(full)
	if err != nil || !withinBase(base, absFull) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(absFull)
	if err != nil {
		if os.IsPermission(err) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(absFull)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(absFull))
	http.ServeContent(w, r, absFull, info.ModTime(), f)
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypeByExt[ext]; ok {
		return ct
	}
	return defaultContentType
}

// withinBase reports whether absFull is base itself or lives under it,
// rejecting any resolved path that escapes the root (spec.md §4.4: "Path
// traversal outside base-path ... must be rejected with HTTP 403").
func withinBase(base, absFull string) bool {
	if absFull == base {
		return true
	}
	return strings.HasPrefix(absFull, base+string(filepath.Separator))
}
