package controllers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/codewithpritom/lms-storefront/api/responses"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
)

// Handnote serves a course handnote PDF inline. Only plain PDF filenames are
// accepted; anything that could escape the handnotes directory is rejected.
func Handnote(dir string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if err := validateHandnoteName(filename); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		path := filepath.Join(dir, filename)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "handnote not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stat handnote"))
			return
		}
		if info.IsDir() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "handnote not found"))
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFile(w, r, path)
	}
}

func validateHandnoteName(filename string) error {
	if filename == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) ||
		filename != filepath.Base(filename) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid filename")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return pkgerrors.New(pkgerrors.CodeValidation, "only pdf handnotes are served")
	}
	return nil
}
