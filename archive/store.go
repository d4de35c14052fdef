package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxPutAttempts bounds retries when a generated name already exists on disk.
const maxPutAttempts = 16

// Store writes image files into a directory.
type Store struct {
	dir   string
	names *NameGenerator
}

// NewStore creates dir if needed and returns a store writing into it.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	// Names left by an earlier run stay taken.
	names := NewNameGenerator()
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}
	for _, e := range entries {
		if IsImageName(e.Name()) {
			names.Reserve(e.Name())
		}
	}
	return &Store{dir: abs, names: names}, nil
}

// Dir returns the absolute directory path.
func (s *Store) Dir() string {
	return s.dir
}

// ZipPath returns the path of the archive Pack writes: the directory name
// with a .zip suffix.
func (s *Store) ZipPath() string {
	return strings.TrimRight(s.dir, string(filepath.Separator)) + ".zip"
}

// Put writes data under a fresh name for the given slide and returns the
// name and absolute path.
func (s *Store) Put(slide int, ext string, data []byte) (string, string, error) {
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		name := s.names.Name(slide, ext)
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("creating %s: %w", name, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(path)
			return "", "", fmt.Errorf("writing %s: %w", name, werr)
		}
		return name, path, nil
	}
	return "", "", fmt.Errorf("no free name for slide %d after %d attempts", slide, maxPutAttempts)
}

// Pack zips the store directory into ZipPath.
func (s *Store) Pack() (string, error) {
	zipPath := s.ZipPath()
	if err := Pack(s.dir, zipPath); err != nil {
		return "", err
	}
	return zipPath, nil
}
