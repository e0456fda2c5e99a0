package views

import (
	"bufio"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"crashtest-analyzer/models"
)

// WriteFramePNG encodes img to path, replacing any existing file.
func WriteFramePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return &models.IOError{Path: path, Op: "create", Err: err}
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	if err := png.Encode(bw, img); err != nil {
		f.Close()
		return &models.IOError{Path: path, Op: "encode", Err: err}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return &models.IOError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.IOError{Path: path, Op: "close", Err: err}
	}
	return nil
}

// PrepareFrameDir creates dir if needed and removes every PNG left from a
// previous sequence. It returns the number of files removed.
func PrepareFrameDir(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &models.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	old, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, &models.IOError{Path: dir, Op: "glob", Err: err}
	}
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			return 0, &models.IOError{Path: p, Op: "remove", Err: err}
		}
	}
	return len(old), nil
}
