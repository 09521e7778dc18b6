package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StageFile copies the named multipart form file into dir and returns the
// staged path. An absent form field is not an error: the caller gets an empty
// path and decides whether the asset was mandatory.
func StageFile(r *http.Request, field, dir string) (string, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("read form file %q: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	stagedPath := filepath.Join(dir, name)

	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(stagedPath)
		return "", fmt.Errorf("write staged file: %w", err)
	}

	return stagedPath, nil
}
