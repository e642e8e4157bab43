package fileserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func setupRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestFileserver_ServesFileWithContentType(t *testing.T) {
	s := New(setupRoot(t))
	req := httptest.NewRequest(http.MethodGet, "/a.css", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/css; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}
}

func TestFileserver_DirectoryRequestIs404(t *testing.T) {
	s := New(setupRoot(t))
	req := httptest.NewRequest(http.MethodGet, "/sub", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (no implicit index.html)", rec.Code)
	}
}

func TestFileserver_PathTraversalIs403(t *testing.T) {
	s := New(setupRoot(t))
	req := httptest.NewRequest(http.MethodGet, "/../../../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestFileserver_UnknownExtensionDefaultsOctetStream(t *testing.T) {
	dir := setupRoot(t)
	if err := os.WriteFile(filepath.Join(dir, "blob.unknownext"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	req := httptest.NewRequest(http.MethodGet, "/blob.unknownext", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}
}

func TestFileserver_MissingFileIs404(t *testing.T) {
	s := New(setupRoot(t))
	req := httptest.NewRequest(http.MethodGet, "/nope.css", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
