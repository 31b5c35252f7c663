// Package depgraph builds and queries the import-dependency graph of a
// Python entry script. Nodes are owned by the parent that first discovered
// them; later discoveries of the same file become path-only back-references,
// so the graph is acyclic by construction and each resolved file appears
// exactly once.
package depgraph

import (
	"sort"
	"strings"
)

// Node is one distinct resolved source file, or one unresolved reference
// when no file could be found.
type Node struct {
	// Depth is the distance from the analysis root.
	Depth int

	// DisplayName is the name the import used, when known.
	DisplayName string

	// ResolvedPath is the absolute file path; empty when Unresolved.
	ResolvedPath string

	// OriginatingImport is the module name of the import line this
	// reference came from, when known. The probable-path heuristic falls
	// back to it when the bare name matches nothing.
	OriginatingImport string

	// SourceLine is the 1-based line of the import in the referencing file.
	SourceLine int

	// Unresolved is set when resolution failed. Failures are data, not
	// errors; the analysis continues.
	Unresolved bool

	// ProbablePaths are files guessed by the heuristic fallback for an
	// unresolved reference.
	ProbablePaths []string

	// IsStub marks a type-stub file standing in for a compiled artifact.
	IsStub bool

	// IsWildcard marks an edge that came from a wildcard-style import.
	IsWildcard bool

	// Analyzed is set once this node's own imports have been expanded.
	Analyzed bool

	// Children are the nodes this node's file imports, first-discovery
	// ownership only.
	Children []*Node

	// Parent is the single node that first discovered this one. It is never
	// reassigned.
	Parent *Node

	// OtherReferencingPaths lists the files (paths, never node references)
	// that also import this resolved path. Storing paths instead of nodes
	// keeps the graph free of reference cycles.
	OtherReferencingPaths []string
}

// addChild appends an owned child and keeps the child list ordered by
// resolved path (unresolved children sort after resolved ones, by name).
// Deterministic ordering keeps traversal output reproducible.
func (n *Node) addChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].sortKey() < n.Children[j].sortKey()
	})
}

func (n *Node) sortKey() string {
	if n.ResolvedPath != "" {
		return "0\x00" + n.ResolvedPath
	}
	return "1\x00" + n.DisplayName
}

// Root walks parent links up to the analysis root.
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Graph owns the dependency tree plus an arena of resolved nodes keyed by
// path. Arena lookups are how repeated discoveries become back-references
// instead of duplicated subtrees.
type Graph struct {
	Root  *Node
	nodes map[string]*Node
}

// New creates a graph rooted at the given script path.
func New(rootPath string) *Graph {
	root := &Node{Depth: 0, ResolvedPath: rootPath}
	g := &Graph{
		Root:  root,
		nodes: map[string]*Node{rootPath: root},
	}
	return g
}

// Lookup returns the node owning the given resolved path, or nil.
func (g *Graph) Lookup(path string) *Node {
	return g.nodes[path]
}

// register records a newly created resolved node in the arena. Exactly one
// node may own a path.
func (g *Graph) register(n *Node) {
	if n.ResolvedPath != "" {
		g.nodes[n.ResolvedPath] = n
	}
}

// Len returns the number of distinct resolved files in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AllNodes returns every node (resolved and unresolved) in depth-first
// preorder.
func (g *Graph) AllNodes() []*Node {
	var all []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		all = append(all, n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(g.Root)
	return all
}

// AllPaths flattens the graph into resolved paths and heuristic probable
// paths. An unresolved node with no probable paths contributes nothing; that
// is the single way a genuinely needed file can be lost, and callers surface
// it via the heuristic miss report.
func (g *Graph) AllPaths() (resolved, probable []string) {
	for _, n := range g.AllNodes() {
		if n.Unresolved {
			probable = append(probable, n.ProbablePaths...)
			continue
		}
		if n.ResolvedPath != "" {
			resolved = append(resolved, n.ResolvedPath)
		}
		probable = append(probable, n.ProbablePaths...)
	}
	return dedupSorted(resolved), dedupSorted(probable)
}

// UsedPaths returns the union of resolved and probable paths, deduplicated
// and sorted. This is the "kept" set the pruner works from.
func (g *Graph) UsedPaths() []string {
	resolved, probable := g.AllPaths()
	return dedupSorted(append(resolved, probable...))
}

// SearchSubstring returns nodes whose display name or resolved path contains
// the query. Matching nodes do not have their subtrees searched further,
// mirroring a "first match per branch" scan.
func (g *Graph) SearchSubstring(query string) []*Node {
	var matches []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if (n.DisplayName != "" && strings.Contains(n.DisplayName, query)) ||
			(n.ResolvedPath != "" && strings.Contains(n.ResolvedPath, query)) {
			matches = append(matches, n)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(g.Root)
	return matches
}

// WildcardNodes returns every node whose edge came from a wildcard import.
func (g *Graph) WildcardNodes() []*Node {
	var out []*Node
	for _, n := range g.AllNodes() {
		if n.IsWildcard {
			out = append(out, n)
		}
	}
	return out
}

// UnresolvedNodes returns every node whose resolution failed.
func (g *Graph) UnresolvedNodes() []*Node {
	var out []*Node
	for _, n := range g.AllNodes() {
		if n.Unresolved {
			out = append(out, n)
		}
	}
	return out
}

func dedupSorted(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)
	out := paths[:1]
	for _, p := range paths[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
