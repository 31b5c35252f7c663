package depgraph

import (
	"os"
	"path/filepath"
	"strings"
)

// stubExtension marks a type-stub file standing in for a compiled or
// alternate-format implementation.
const stubExtension = ".pyi"

// ExpandStubs augments every stub node with its sibling implementation
// artifacts. A resolver can only follow an import to the .pyi stub of a
// compiled extension; the artifact that actually executes sits next to it
// under the same base name with a different extension, and pruning it would
// break the package. Runs over the whole graph after the recursive analysis.
func ExpandStubs(g *Graph) {
	// Snapshot first: expansion appends children while walking.
	nodes := g.AllNodes()
	for _, n := range nodes {
		expandStubNode(g, n)
	}
}

func expandStubNode(g *Graph, n *Node) {
	paths := append([]string{}, n.ProbablePaths...)
	if n.ResolvedPath != "" {
		paths = append(paths, n.ResolvedPath)
	}
	for _, path := range paths {
		if filepath.Ext(path) != stubExtension {
			continue
		}
		n.IsStub = true
		if n.Parent == nil {
			continue
		}
		for _, sibling := range stubSiblings(path) {
			if existing := g.Lookup(sibling); existing != nil {
				existing.addReferencingPath(path)
				continue
			}
			child := &Node{
				Depth:        n.Depth,
				DisplayName:  n.DisplayName,
				ResolvedPath: sibling,
			}
			n.Parent.addChild(child)
			g.register(child)
		}
	}
}

// stubSiblings lists files next to the stub that share its base name up to
// the first dot. `foo.pyi` matches `foo.py` as well as platform-tagged
// artifacts like `foo.cpython-313-x86_64-linux-gnu.so`.
func stubSiblings(stubPath string) []string {
	dir := filepath.Dir(stubPath)
	stubName := filepath.Base(stubPath)
	base := stubName
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Name() == stubName || e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), base) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}
