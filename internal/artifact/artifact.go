// Package artifact writes the rendered dashboard image to disk.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// WriteImage encodes img in the format implied by path's extension (PNG when
// there is none) and replaces path atomically. If anything fails the
// previous file at path is left as it was.
func WriteImage(path string, img image.Image) error {
	if path == "" {
		return errors.New("artifact: output path is empty")
	}
	if img == nil {
		return errors.New("artifact: image is nil")
	}

	format := imaging.PNG
	if filepath.Ext(path) != "" {
		f, err := imaging.FormatFromFilename(path)
		if err != nil {
			return fmt.Errorf("artifact: %s: %w", path, err)
		}
		format = f
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".inkdash-render-*.tmp")
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := imaging.Encode(w, img, format); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	return nil
}
