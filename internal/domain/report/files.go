package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore is the file system seen by the download flow.
type FileStore interface {
	Exists(path string) (bool, error)
	Move(src, dst string) error
	Remove(path string) error
}

// Outcome is the informational result of a download.
type Outcome struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

var (
	OutcomeAlreadyExists = Outcome{
		Title:   "File Already Exists!",
		Message: "The report is already downloaded in the Downloads folder. Please check there.",
	}
	OutcomeDownloaded = Outcome{
		Title:   "Download Complete!",
		Message: "PDF downloaded successfully! Check your Downloads folder.",
	}
)

// OSFileStore is the FileStore backed by the local filesystem.
type OSFileStore struct{}

func (OSFileStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Move renames src to dst, copying when the two are on different devices.
func (OSFileStore) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func (OSFileStore) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
