package depgraph

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkgslim/pkgslim/internal/log"
	"github.com/pkgslim/pkgslim/pkg/resolver"
)

// Builder expands a single node: it asks the resolver for the file's bound
// names and module references, follows each to its defining file, and
// attaches the results as children or back-references.
type Builder struct {
	client resolver.Client
	env    resolver.Environment
	logger log.Logger

	// lines memoizes file contents for parenthesis checks, validated
	// against mtime and size so a file rewritten mid-run is re-read.
	lines map[string]cachedLines
}

type cachedLines struct {
	lines   []string
	modTime time.Time
	size    int64
}

// NewBuilder creates a builder over the given resolver client and
// environment.
func NewBuilder(client resolver.Client, env resolver.Environment, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		client: client,
		env:    env,
		logger: logger,
		lines:  make(map[string]cachedLines),
	}
}

// Expand populates n.Children from the imports of n's file. Resolution
// failures become unresolved child nodes; only a failure to read or parse
// the file itself is an error.
func (b *Builder) Expand(ctx context.Context, g *Graph, n *Node) error {
	if n.ResolvedPath == "" {
		return nil
	}

	bound, err := b.client.BoundNames(ctx, b.env, n.ResolvedPath)
	if err != nil {
		return fmt.Errorf("listing bound names of %s: %w", n.ResolvedPath, err)
	}
	refs, err := b.client.UnboundModuleRefs(ctx, b.env, n.ResolvedPath)
	if err != nil {
		return fmt.Errorf("listing module references of %s: %w", n.ResolvedPath, err)
	}

	boundLines := make(map[int]bool, len(bound))
	for _, r := range bound {
		boundLines[r.Line] = true
	}

	// Leftmost module reference per line; it names the module an import
	// line was reading from, which the heuristic uses as a fallback match.
	lineToRef := make(map[int]resolver.Ref)
	for _, r := range refs {
		if prev, ok := lineToRef[r.Line]; ok && prev.Column <= r.Column {
			continue
		}
		lineToRef[r.Line] = r
	}

	// A module reference on a line that binds nothing is a wildcard
	// candidate, unless the line contains a call expression: an ordinary
	// call that happens to share a line number with an unrelated reference
	// must not be classified as a wildcard import.
	var wildcards []resolver.Ref
	for _, r := range refs {
		if boundLines[r.Line] {
			continue
		}
		if b.lineHasParens(n.ResolvedPath, r.Line) {
			continue
		}
		wildcards = append(wildcards, r)
	}

	ordered := append(append([]resolver.Ref{}, bound...), wildcards...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Line != ordered[j].Line {
			return ordered[i].Line < ordered[j].Line
		}
		return ordered[i].Column < ordered[j].Column
	})

	for _, r := range ordered {
		isWildcard := !boundLines[r.Line]
		b.explore(ctx, g, n, r, lineToRef, isWildcard)
	}
	return nil
}

// explore follows one reference. A resolved path already in the arena gains
// a back-reference; a new path becomes an owned child at depth+1; no path at
// all becomes an unresolved child carrying enough context for the heuristic.
func (b *Builder) explore(ctx context.Context, g *Graph, parent *Node, ref resolver.Ref, lineToRef map[int]resolver.Ref, isWildcard bool) {
	paths, err := b.client.Resolve(ctx, b.env, parent.ResolvedPath, ref)
	if err != nil {
		b.logger.Debug("resolve failed", "file", parent.ResolvedPath, "name", ref.Name, "error", err)
		paths = nil
	}

	if len(paths) == 0 {
		parent.addChild(&Node{
			Depth:             parent.Depth + 1,
			DisplayName:       ref.Name,
			OriginatingImport: originatingImport(lineToRef, ref),
			SourceLine:        ref.Line,
			Unresolved:        true,
			IsWildcard:        isWildcard,
		})
		return
	}

	for _, path := range paths {
		if path == parent.ResolvedPath {
			continue
		}
		if existing := g.Lookup(path); existing != nil {
			existing.addReferencingPath(parent.ResolvedPath)
			continue
		}
		child := &Node{
			Depth:             parent.Depth + 1,
			DisplayName:       displayName(ref),
			ResolvedPath:      path,
			OriginatingImport: originatingImport(lineToRef, ref),
			SourceLine:        ref.Line,
			IsWildcard:        isWildcard,
		}
		parent.addChild(child)
		g.register(child)
	}
}

// addReferencingPath records a back-edge as a plain path, deduplicated.
func (n *Node) addReferencingPath(path string) {
	for _, p := range n.OtherReferencingPaths {
		if p == path {
			return
		}
	}
	n.OtherReferencingPaths = append(n.OtherReferencingPaths, path)
}

// lineHasParens reports whether the given 1-based line of the file contains
// a parenthesis. Used only for wildcard disambiguation; a read failure is
// treated as "no parens" so the reference still gets followed.
func (b *Builder) lineHasParens(file string, line int) bool {
	info, statErr := os.Stat(file)
	if cached, ok := b.lines[file]; ok && statErr == nil &&
		cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return hasParensAt(cached.lines, line)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		content = nil
	}
	lines := strings.Split(string(content), "\n")
	if statErr == nil {
		b.lines[file] = cachedLines{lines: lines, modTime: info.ModTime(), size: info.Size()}
	}
	return hasParensAt(lines, line)
}

func hasParensAt(lines []string, line int) bool {
	if line < 1 || line > len(lines) {
		return false
	}
	return strings.ContainsAny(lines[line-1], "()")
}

func originatingImport(lineToRef map[int]resolver.Ref, ref resolver.Ref) string {
	if r, ok := lineToRef[ref.Line]; ok {
		return r.Name
	}
	return ""
}

func displayName(ref resolver.Ref) string {
	if ref.Dotted != "" {
		return ref.Dotted
	}
	return ref.Name
}
