// Package storage gives the triage engine its view of the working directory:
// one flat "input" folder of unsorted images plus one directory per category.
// It is a thin layer over a billy filesystem so tests can run against memfs
// while production uses the host filesystem.
package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/lewtec/triador/internal/domain"
)

// DefaultExtensions are the image extensions accepted when none are
// configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// WorkDir provides file operations rooted at the working directory.
type WorkDir struct {
	fs         billy.Filesystem
	extensions map[string]bool
}

// New creates a WorkDir over an arbitrary billy filesystem.
func New(fs billy.Filesystem, extensions []string) *WorkDir {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &WorkDir{fs: fs, extensions: allowed}
}

// NewOS creates a WorkDir rooted at dir on the host filesystem.
func NewOS(dir string, extensions []string) *WorkDir {
	return New(osfs.New(dir), extensions)
}

// EnsureLayout creates the input folder if it does not exist yet.
func (w *WorkDir) EnsureLayout() error {
	return w.fs.MkdirAll(domain.InputFolder, 0o755)
}

// IsImage reports whether a filename carries an accepted image extension.
func (w *WorkDir) IsImage(name string) bool {
	return w.extensions[strings.ToLower(path.Ext(name))]
}

// ListImages returns the image filenames inside a folder in ascending
// lexicographic order. Non-image files are skipped.
func (w *WorkDir) ListImages(folder string) ([]string, error) {
	entries, err := w.fs.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, fmt.Errorf("while listing folder %q: %w", folder, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !w.IsImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadImage returns the raw bytes of an image inside a folder.
func (w *WorkDir) ReadImage(folder, name string) ([]byte, error) {
	data, err := util.ReadFile(w.fs, w.fs.Join(folder, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("while reading %s/%s: %w", folder, name, err)
	}
	return data, nil
}

// HasImage reports whether the named file exists inside a folder.
func (w *WorkDir) HasImage(folder, name string) (bool, error) {
	_, err := w.fs.Stat(w.fs.Join(folder, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("while checking %s/%s: %w", folder, name, err)
	}
	return true, nil
}

// Move relocates a file between folders. The destination folder must already
// exist.
func (w *WorkDir) Move(srcFolder, dstFolder, name string) error {
	src := w.fs.Join(srcFolder, name)
	dst := w.fs.Join(dstFolder, name)
	if err := w.fs.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrImageNotFound
		}
		return fmt.Errorf("while moving %s to %s: %w", src, dst, err)
	}
	return nil
}

// Hash returns the hex-encoded sha256 digest of image bytes.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// CreateFolder creates a category directory.
func (w *WorkDir) CreateFolder(name string) error {
	return w.fs.MkdirAll(name, 0o755)
}

// RemoveFolder removes a category directory. The caller is responsible for
// checking emptiness first.
func (w *WorkDir) RemoveFolder(name string) error {
	if err := w.fs.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrFolderNotFound
		}
		return fmt.Errorf("while removing folder %q: %w", name, err)
	}
	return nil
}

// HasFolder reports whether a category directory exists.
func (w *WorkDir) HasFolder(name string) (bool, error) {
	info, err := w.fs.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("while checking folder %q: %w", name, err)
	}
	return info.IsDir(), nil
}

// ListFolders returns every category directory name, sorted, excluding the
// reserved input folder.
func (w *WorkDir) ListFolders() ([]string, error) {
	entries, err := w.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("while listing working directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.EqualFold(entry.Name(), domain.InputFolder) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WriteImage stores image bytes inside a folder, creating it if needed. Used
// by ingestion, not by the triage loop.
func (w *WorkDir) WriteImage(folder, name string, data []byte) error {
	if err := w.fs.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("while creating folder %q: %w", folder, err)
	}
	if err := util.WriteFile(w.fs, w.fs.Join(folder, name), data, 0o644); err != nil {
		return fmt.Errorf("while writing %s/%s: %w", folder, name, err)
	}
	return nil
}

// MimeType guesses the mime type of an image from its extension. Unknown
// extensions fall back to JPEG, which matches the bulk of triage datasets.
func MimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
