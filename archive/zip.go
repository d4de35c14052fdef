package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned when an archive has no entry with the given name.
var ErrNotFound = errors.New("archive entry not found")

// Pack writes every file in dir with a recognized image extension into a
// flat zip at zipPath, in name order. Subdirectories are ignored. The zip is
// only replaced once it has been written completely.
func Pack(dir, zipPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsImageName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".pack-*.zip")
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, name := range names {
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			tmp.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), zipPath); err != nil {
		return fmt.Errorf("writing %s: %w", zipPath, err)
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	return nil
}

// Zip reads image files from a zip archive.
type Zip struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

// OpenZip opens an image archive. Entries are addressed by their name; an
// entry stored under a directory is also reachable by its base name when
// that is unambiguous.
func OpenZip(name string) (*Zip, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	z := &Zip{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	bases := make(map[string]int)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		z.files[f.Name] = f
		z.names = append(z.names, f.Name)
		bases[path.Base(f.Name)]++
	}
	for _, f := range zr.File {
		base := path.Base(f.Name)
		if _, exists := z.files[base]; !exists && bases[base] == 1 && !f.FileInfo().IsDir() {
			z.files[base] = f
		}
	}
	sort.Strings(z.names)
	return z, nil
}

// ReadFile returns the content of the named entry.
func (z *Zip) ReadFile(name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Has reports whether the archive contains the named entry.
func (z *Zip) Has(name string) bool {
	_, ok := z.files[name]
	return ok
}

// Names returns the entry names in sorted order.
func (z *Zip) Names() []string {
	return z.names
}

// Close releases the archive.
func (z *Zip) Close() error {
	if z.zr == nil {
		return nil
	}
	err := z.zr.Close()
	z.zr = nil
	return err
}

// Dir reads image files from an extracted archive directory.
type Dir struct {
	root string
	fsys fs.FS
}

// OpenDir returns a Dir rooted at root.
func OpenDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening archive directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &Dir{root: root, fsys: os.DirFS(root)}, nil
}

// ReadFile returns the content of the named file. Names must be flat.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) || path.Base(name) != name {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := fs.ReadFile(d.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Has reports whether the directory contains the named file.
func (d *Dir) Has(name string) bool {
	if !fs.ValidPath(name) || path.Base(name) != name {
		return false
	}
	info, err := fs.Stat(d.fsys, name)
	return err == nil && !info.IsDir()
}

// Close is a no-op; it lets Dir and Zip be used interchangeably.
func (d *Dir) Close() error {
	return nil
}
