// Package qr renders short-link QR codes to PNG files and serves them.
package qr

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/skip2/go-qrcode"
)

// PathPrefix is the URL prefix the images are served under.
const PathPrefix = "/static/qr/"

const imageSize = 256

// Store keeps one PNG per short code in dir.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file name of the image for code.
func (s *Store) Path(code string) string {
	return filepath.Join(s.dir, code+".png")
}

// Ensure writes the QR image of baseURL+code unless it already exists.
// The file appears atomically so concurrent callers never serve a partial image.
func (s *Store) Ensure(code, baseURL string) error {
	const op = "adapter.qr.Store.Ensure"

	path := s.Path(code)

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: failed to stat image: %w", op, err)
	}

	png, err := qrcode.Encode(baseURL+code, qrcode.Medium, imageSize)
	if err != nil {
		return fmt.Errorf("%s: failed to encode qr code: %w", op, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%s: failed to create image dir: %w", op, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+code+"-*.png")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: failed to write image: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: failed to close image: %w", op, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%s: failed to chmod image: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: failed to move image into place: %w", op, err)
	}

	return nil
}

// ServeHTTP serves the images under PathPrefix.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.StripPrefix(PathPrefix, http.FileServer(http.Dir(s.dir))).ServeHTTP(w, r)
}
