package prune

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkgslim/pkgslim/internal/scanner"
)

// Entry describes one filesystem entry as seen by the repair loop: its
// original name, whether it is currently soft-deleted, and whether it is a
// directory.
type Entry struct {
	Path        string `json:"path"` // relative to the package root, original name
	IsDir       bool   `json:"is_dir"`
	SoftDeleted bool   `json:"soft_deleted"`
	Size        int64  `json:"size"`
}

// ListChildren returns the immediate children of the directory at rel under
// root, soft-delete aware: a `__DELETED_x` file is reported as `x` with
// SoftDeleted set.
func ListChildren(root, rel string) ([]Entry, error) {
	dir, err := secureJoin(root, rel)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, de := range dirEntries {
		name := de.Name()
		kind := scanner.Classify(name)
		if kind == scanner.KindInitialBackup {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Path:        filepath.Join(rel, scanner.OriginalName(name)),
			IsDir:       de.IsDir(),
			SoftDeleted: kind == scanner.KindSoftDeleted,
			Size:        info.Size(),
		})
	}
	return out, nil
}

// SearchSubstring returns every file under root whose original relative
// path contains the query.
func SearchSubstring(root, query string) ([]Entry, error) {
	files, err := scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, f := range files {
		if f.Kind == scanner.KindInitialBackup {
			continue
		}
		original := originalRelPath(f.Path)
		if !strings.Contains(original, query) {
			continue
		}
		out = append(out, Entry{
			Path:        original,
			SoftDeleted: f.Kind == scanner.KindSoftDeleted,
			Size:        f.Size,
		})
	}
	return out, nil
}

// SearchExact looks up one file by its exact original relative path,
// whether live or soft-deleted.
func SearchExact(root, rel string) (*Entry, error) {
	full, err := secureJoin(root, rel)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		return &Entry{Path: rel, Size: info.Size()}, nil
	}

	backup := filepath.Join(filepath.Dir(full), scanner.DeletedPrefix+filepath.Base(full))
	if info, err := os.Stat(backup); err == nil && !info.IsDir() {
		return &Entry{Path: rel, SoftDeleted: true, Size: info.Size()}, nil
	}
	return nil, nil
}

// originalRelPath strips a soft-delete marker from the base name of a
// relative path.
func originalRelPath(rel string) string {
	dir := filepath.Dir(rel)
	name := scanner.OriginalName(filepath.Base(rel))
	if dir == "." {
		return name
	}
	return filepath.Join(dir, name)
}
