package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

const maxUploadBytes = 512 << 20 // request-wide cap for multipart bodies

// saveUploadTemp copies a multipart form file into the temp directory and
// returns its local path. The caller owns the file; the uploader removes it
// after pushing to the blob store.
func saveUploadTemp(tempDir string, file multipart.File, header *multipart.FileHeader) (string, error) {
	defer file.Close()

	tmp, err := os.CreateTemp(tempDir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

// formFileTemp pulls the named file out of the parsed multipart form and
// stages it in the temp directory. Missing files return ("", nil) so callers
// can treat optional uploads uniformly.
func formFileTemp(r *http.Request, tempDir, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apiErr(http.StatusBadRequest, fmt.Sprintf("invalid %s upload", field))
	}

	return saveUploadTemp(tempDir, file, header)
}
