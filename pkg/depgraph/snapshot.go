package depgraph

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion guards against loading snapshots written by an
// incompatible layout.
const snapshotVersion = 1

// snapshotNode is the flat wire form of a Node. Ownership edges are index
// references; parent pointers are rebuilt on load.
type snapshotNode struct {
	Depth                 int      `msgpack:"depth"`
	DisplayName           string   `msgpack:"display_name,omitempty"`
	ResolvedPath          string   `msgpack:"resolved_path,omitempty"`
	OriginatingImport     string   `msgpack:"originating_import,omitempty"`
	SourceLine            int      `msgpack:"source_line,omitempty"`
	Unresolved            bool     `msgpack:"unresolved,omitempty"`
	IsStub                bool     `msgpack:"is_stub,omitempty"`
	IsWildcard            bool     `msgpack:"is_wildcard,omitempty"`
	Analyzed              bool     `msgpack:"analyzed,omitempty"`
	ProbablePaths         []string `msgpack:"probable_paths,omitempty"`
	OtherReferencingPaths []string `msgpack:"other_referencing_paths,omitempty"`
	Children              []int    `msgpack:"children,omitempty"`
}

type snapshot struct {
	Version int            `msgpack:"version"`
	Nodes   []snapshotNode `msgpack:"nodes"`
}

// Save writes the graph to w in msgpack form. The flat encoding carries no
// parent pointers, so the acyclic tree round-trips without reference cycles.
func (g *Graph) Save(w io.Writer) error {
	ids := make(map[*Node]int)
	ordered := g.AllNodes()
	for i, n := range ordered {
		ids[n] = i
	}

	snap := snapshot{Version: snapshotVersion, Nodes: make([]snapshotNode, len(ordered))}
	for i, n := range ordered {
		sn := snapshotNode{
			Depth:                 n.Depth,
			DisplayName:           n.DisplayName,
			ResolvedPath:          n.ResolvedPath,
			OriginatingImport:     n.OriginatingImport,
			SourceLine:            n.SourceLine,
			Unresolved:            n.Unresolved,
			IsStub:                n.IsStub,
			IsWildcard:            n.IsWildcard,
			Analyzed:              n.Analyzed,
			ProbablePaths:         n.ProbablePaths,
			OtherReferencingPaths: n.OtherReferencingPaths,
		}
		for _, child := range n.Children {
			sn.Children = append(sn.Children, ids[child])
		}
		snap.Nodes[i] = sn
	}

	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encoding graph snapshot: %w", err)
	}
	return nil
}

// Load reads a graph snapshot previously written by Save.
func Load(r io.Reader) (*Graph, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding graph snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}

	nodes := make([]*Node, len(snap.Nodes))
	for i, sn := range snap.Nodes {
		nodes[i] = &Node{
			Depth:                 sn.Depth,
			DisplayName:           sn.DisplayName,
			ResolvedPath:          sn.ResolvedPath,
			OriginatingImport:     sn.OriginatingImport,
			SourceLine:            sn.SourceLine,
			Unresolved:            sn.Unresolved,
			IsStub:                sn.IsStub,
			IsWildcard:            sn.IsWildcard,
			Analyzed:              sn.Analyzed,
			ProbablePaths:         sn.ProbablePaths,
			OtherReferencingPaths: sn.OtherReferencingPaths,
		}
	}

	g := &Graph{Root: nodes[0], nodes: make(map[string]*Node, len(nodes))}
	for i, sn := range snap.Nodes {
		n := nodes[i]
		for _, childID := range sn.Children {
			if childID < 0 || childID >= len(nodes) {
				return nil, fmt.Errorf("snapshot child index %d out of range", childID)
			}
			child := nodes[childID]
			child.Parent = n
			n.Children = append(n.Children, child)
		}
		g.register(n)
	}
	return g, nil
}
