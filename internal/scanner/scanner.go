// Package scanner walks package directory trees and classifies entries by
// the filesystem conventions of the pruning engine: soft-deleted files carry
// the __DELETED_ prefix, pre-edit backups carry the __INITIAL_ prefix.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reserved base-name prefixes. These are bit-exact conventions shared with
// anything that inspects a pruned package; they are not configurable.
const (
	// DeletedPrefix marks a soft-deleted file: content preserved, original
	// name recoverable by stripping the prefix.
	DeletedPrefix = "__DELETED_"

	// InitialPrefix marks the pristine backup of a structurally rewritten
	// file, written once before its first modification.
	InitialPrefix = "__INITIAL_"
)

// InitFileName is the per-directory file marking an importable package.
const InitFileName = "__init__.py"

// Kind classifies a discovered file.
type Kind int

const (
	// KindRegular is an ordinary file.
	KindRegular Kind = iota
	// KindSoftDeleted is a file renamed with the DeletedPrefix.
	KindSoftDeleted
	// KindInitialBackup is a pristine pre-rewrite backup.
	KindInitialBackup
)

// FileInfo describes one file discovered under a package root.
type FileInfo struct {
	Path     string // relative to the scanned root
	FullPath string // absolute
	Kind     Kind
	IsInit   bool // true for package-init files
	Size     int64
}

// Classify returns the Kind implied by a base name.
func Classify(name string) Kind {
	switch {
	case strings.HasPrefix(name, DeletedPrefix):
		return KindSoftDeleted
	case strings.HasPrefix(name, InitialPrefix):
		return KindInitialBackup
	default:
		return KindRegular
	}
}

// OriginalName strips a marker prefix from a base name, if present.
func OriginalName(name string) string {
	switch Classify(name) {
	case KindSoftDeleted:
		return strings.TrimPrefix(name, DeletedPrefix)
	case KindInitialBackup:
		return strings.TrimPrefix(name, InitialPrefix)
	default:
		return name
	}
}

// Scan walks root recursively and returns every file with its
// classification. Walk errors on individual entries are skipped; the scan
// reports what it can reach.
func Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	var files []FileInfo
	walkErr := filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		name := info.Name()
		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Kind:     Classify(name),
			IsInit:   name == InitFileName,
			Size:     info.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, walkErr)
	}
	return files, nil
}

// FindInitFiles returns the absolute path of every live package-init file
// under root. Soft-deleted inits are not included: they no longer take part
// in imports.
func FindInitFiles(root string) ([]string, error) {
	files, err := Scan(root)
	if err != nil {
		return nil, err
	}
	var inits []string
	for _, f := range files {
		if f.IsInit && f.Kind == KindRegular {
			inits = append(inits, f.FullPath)
		}
	}
	return inits, nil
}
