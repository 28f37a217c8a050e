package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

const maxUploadBytes = 50 << 20 // 50 MB

// safeName validates that name is a plain file name (no path separators,
// no traversal, not hidden).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Base(filepath.Clean(name))
	if cleaned != name || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// safeDir normalizes a library-relative directory and rejects traversal.
func safeDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	cleaned := path.Clean(filepath.ToSlash(dir))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid directory: %s", dir)
	}
	return cleaned, nil
}

// Upload handles POST /api/uploads (multipart/form-data, field "file",
// optional field "dir"). A stream with !!!!SEGMENT: markers is split and
// each segment is stored as its own score under dir.
//
//	@Summary		Import a Humdrum file or a segmented multi-score stream
//	@Tags			scores
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Humdrum file"
//	@Param			dir		formData	string	false	"Target directory inside the library"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	dir, err := safeDir(r.FormValue("dir"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.svc.Import(r.Context(), dir, name, data)
	if err != nil {
		writeServiceError(w, "upload", name, err)
		return
	}
	if len(res.Created) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
