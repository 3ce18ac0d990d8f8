package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
)

func serveHandnote(t *testing.T, dir, filename string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/handnotes/x", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("filename", filename)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	Handnote(dir, nil)(w, r)
	return w
}

func TestHandnoteServesPDFInline(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "week-1.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	w := serveHandnote(t, dir, "week-1.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `inline; filename="week-1.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got == "" {
		t.Fatal("expected no-cache headers")
	}
}

func TestHandnoteRejectsTraversalAndNonPDF(t *testing.T) {
	dir := t.TempDir()
	for _, filename := range []string{
		"../secrets.pdf",
		"..\\secrets.pdf",
		"notes/../../etc/passwd.pdf",
		"script.js",
		"",
	} {
		w := serveHandnote(t, dir, filename)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", filename, w.Code)
		}
	}
}

func TestHandnoteMissingFileIs404(t *testing.T) {
	w := serveHandnote(t, t.TempDir(), "missing.pdf")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
