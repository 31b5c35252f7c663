package prune

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkgslim/pkgslim/internal/log"
	"github.com/pkgslim/pkgslim/internal/scanner"
)

// ErrPathEscape is returned when a requested path resolves outside the
// package root. The operation is refused before anything is touched.
var ErrPathEscape = errors.New("path escapes package root")

// FailedOp records a filesystem failure on one entry during a destructive
// pass. Failures never abort the remaining pass.
type FailedOp struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result reports what a prune, restore, or purge pass changed.
type Result struct {
	// Changed lists the affected original paths (relative to the root).
	Changed []string `json:"changed"`

	// Failures lists per-entry filesystem errors.
	Failures []FailedOp `json:"failures,omitempty"`
}

// Pruner soft-deletes, restores, and permanently removes files under a
// package root. The caller must guarantee single-writer access to a given
// root for the duration of a prune/restore cycle; prunes of distinct
// packages are independent.
type Pruner struct {
	logger log.Logger
}

// NewPruner creates a pruner.
func NewPruner(logger log.Logger) *Pruner {
	if logger == nil {
		logger = log.Default()
	}
	return &Pruner{logger: logger}
}

// Prune walks root and soft-deletes every file not present in the used-path
// index. Soft delete copies the file to a sibling name carrying the
// __DELETED_ prefix (preserving bytes and permissions) and removes the
// original, so a crash mid-pass leaves a consistent, resumable state. The
// pass is idempotent: marker-bearing entries are skipped on re-run.
func (p *Pruner) Prune(root string, ix *Index) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("package root is not a directory: %s", root)
	}

	res := &Result{}
	p.pruneDir(absRoot, absRoot, ix, res)
	sort.Strings(res.Changed)
	return res, nil
}

func (p *Pruner) pruneDir(root, dir string, ix *Index, res *Result) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.fail(res, dir, err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if scanner.Classify(name) != scanner.KindRegular {
			continue
		}
		// An initializer survives as long as anything beneath its directory
		// is used; a directory with zero used leaves loses its initializer
		// like any other unused file.
		if name == scanner.InitFileName && ix.ContainsLeaf() {
			continue
		}

		full := filepath.Join(dir, name)
		if entry.IsDir() {
			// A directory missing from the index means "nothing known to be
			// used here yet", not "delete the subtree outright": recurse
			// with an empty sub-index and prune leaves individually.
			sub := ix.Child(name)
			if sub == nil {
				sub = NewIndex()
			}
			p.pruneDir(root, full, sub, res)
			continue
		}
		if ix.IsLeaf(name) {
			continue
		}

		if err := softDelete(full); err != nil {
			p.fail(res, full, err)
			continue
		}
		rel, _ := filepath.Rel(root, full)
		res.Changed = append(res.Changed, rel)
	}
}

// softDelete copies the file to its marker-prefixed sibling, preserving
// content and permissions, then removes the original.
func softDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	backup := filepath.Join(filepath.Dir(path), scanner.DeletedPrefix+filepath.Base(path))
	if err := copyFile(path, backup, info.Mode()); err != nil {
		return err
	}
	return os.Remove(path)
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RestoreAll renames every soft-deleted file under root back to its
// original name. Idempotent; restoring an unpruned tree changes nothing.
func (p *Pruner) RestoreAll(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	files, err := scanner.Scan(absRoot)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, f := range files {
		if f.Kind != scanner.KindSoftDeleted {
			continue
		}
		original := filepath.Join(filepath.Dir(f.FullPath), scanner.OriginalName(filepath.Base(f.FullPath)))
		if err := os.Rename(f.FullPath, original); err != nil {
			p.fail(res, f.FullPath, err)
			continue
		}
		rel, _ := filepath.Rel(absRoot, original)
		res.Changed = append(res.Changed, rel)
	}
	sort.Strings(res.Changed)
	return res, nil
}

// RestoreOne restores a single soft-deleted file. rel is the original
// relative path (without the marker prefix).
func (p *Pruner) RestoreOne(root, rel string) error {
	full, err := secureJoin(root, rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	name := filepath.Base(full)
	backup := filepath.Join(dir, scanner.DeletedPrefix+name)
	if _, err := os.Stat(backup); err != nil {
		return fmt.Errorf("no soft-deleted copy for %s: %w", rel, err)
	}
	if err := os.Rename(backup, full); err != nil {
		return fmt.Errorf("restoring %s: %w", rel, err)
	}
	return nil
}

// Purge permanently unlinks every soft-deleted file under root. This is the
// only transition past SoftDeleted and must be gated by an explicit caller
// confirmation; the engine never advances to it on its own.
func (p *Pruner) Purge(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	files, err := scanner.Scan(absRoot)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, f := range files {
		if f.Kind != scanner.KindSoftDeleted {
			continue
		}
		if err := os.Remove(f.FullPath); err != nil {
			p.fail(res, f.FullPath, err)
			continue
		}
		rel, _ := filepath.Rel(absRoot, f.FullPath)
		res.Changed = append(res.Changed, rel)
	}
	sort.Strings(res.Changed)
	return res, nil
}

func (p *Pruner) fail(res *Result, path string, err error) {
	p.logger.Warn("destructive operation failed", "path", path, "error", err)
	res.Failures = append(res.Failures, FailedOp{Path: path, Err: err.Error()})
}

// secureJoin joins rel onto root and rejects any result that escapes it.
func secureJoin(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	full := filepath.Clean(filepath.Join(absRoot, rel))
	if full != absRoot && !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return full, nil
}
