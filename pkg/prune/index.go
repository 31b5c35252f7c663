// Package prune converts a resolved used-path set into a reversible
// soft-delete pass over a package directory, with exact size accounting.
package prune

import (
	"path/filepath"
	"sort"
	"strings"
)

// Index is the used-path index: a nested mapping mirroring a package's
// directory layout. An entry is a leaf ("this file is used"), a directory
// with further entries, or both when a name is used as a file and later
// gains children.
type Index struct {
	leaf     bool
	children map[string]*Index
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{children: make(map[string]*Index)}
}

// BuildIndex inserts every path that lies beneath root into a fresh index,
// keyed by relative path segments. Paths outside root are ignored; the
// index describes exactly one package. Input order is irrelevant: paths are
// sorted and deduplicated before insertion.
func BuildIndex(root string, paths []string) *Index {
	ix := NewIndex()
	prefix := filepath.Clean(root) + string(filepath.Separator)

	sorted := append([]string{}, paths...)
	sort.Strings(sorted)

	var last string
	for _, p := range sorted {
		if p == last {
			continue
		}
		last = p
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		ix.Insert(strings.TrimPrefix(p, prefix))
	}
	return ix
}

// Insert marks the file at the given relative path as used, creating
// intermediate directory entries as needed.
func (ix *Index) Insert(rel string) {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	cur := ix
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		next, ok := cur.children[seg]
		if !ok {
			next = NewIndex()
			cur.children[seg] = next
		}
		if i == len(segments)-1 {
			next.leaf = true
		}
		cur = next
	}
}

// Child returns the sub-index for a directory entry, or nil when nothing
// beneath that name is known to be used.
func (ix *Index) Child(name string) *Index {
	if ix == nil {
		return nil
	}
	return ix.children[name]
}

// IsLeaf reports whether the named entry is recorded as a used file.
func (ix *Index) IsLeaf(name string) bool {
	if ix == nil {
		return false
	}
	child, ok := ix.children[name]
	return ok && child.leaf
}

// ContainsLeaf reports whether any used file exists at or beneath this
// index. It decides the package-init policy: an initializer stays only when
// something under its directory is actually used.
func (ix *Index) ContainsLeaf() bool {
	if ix == nil {
		return false
	}
	if ix.leaf {
		return true
	}
	for _, child := range ix.children {
		if child.ContainsLeaf() {
			return true
		}
	}
	return false
}

// Len returns the number of direct entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.children)
}

// Names returns the direct entry names in sorted order.
func (ix *Index) Names() []string {
	if ix == nil {
		return nil
	}
	names := make([]string, 0, len(ix.children))
	for name := range ix.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
