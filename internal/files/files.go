// Package files keeps original uploads on local disk.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Disk stores files under a single directory.
type Disk struct {
	dir string
	now func() time.Time
}

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, now: time.Now}, nil
}

// Dir returns the storage directory.
func (d *Disk) Dir() string { return d.dir }

// StoredName returns "<unix millis>-<name>" with whitespace in name
// replaced by underscores and any directory part removed.
func StoredName(name string, at time.Time) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		base = "upload"
	}
	base = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("%d-%s", at.UnixMilli(), base)
}

// maxNameAttempts bounds how many later timestamps Save tries when a
// stored name is taken.
const maxNameAttempts = 100

// Save writes r to a new file named after name and returns the reference to
// record on the dataset. Existing files are never overwritten; when the name
// is taken the timestamp moves forward one millisecond and Save tries again.
func (d *Disk) Save(name string, r io.Reader) (string, error) {
	f, ref, err := d.create(name, d.now())
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", ref, err)
	}
	return ref, nil
}

func (d *Disk) create(name string, at time.Time) (*os.File, string, error) {
	var ref string
	for range maxNameAttempts {
		ref = StoredName(name, at)
		f, err := os.OpenFile(filepath.Join(d.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, ref, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", ref, err)
		}
		at = at.Add(time.Millisecond)
	}
	return nil, "", fmt.Errorf("create %s: %w", ref, fs.ErrExist)
}

// Path resolves a reference. Bare names live in the storage directory;
// references with a directory part were recorded as paths and are used as is.
func (d *Disk) Path(ref string) string {
	if filepath.IsAbs(ref) || filepath.Base(ref) != ref {
		return filepath.Clean(ref)
	}
	return filepath.Join(d.dir, ref)
}

// Exists reports whether ref names a regular file.
func (d *Disk) Exists(ref string) bool {
	if ref == "" {
		return false
	}
	info, err := os.Stat(d.Path(ref))
	return err == nil && info.Mode().IsRegular()
}

// ReadFile returns the content of ref.
func (d *Disk) ReadFile(ref string) ([]byte, error) {
	return os.ReadFile(d.Path(ref))
}

// Remove deletes ref. A file that is already gone is not an error.
func (d *Disk) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(d.Path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
