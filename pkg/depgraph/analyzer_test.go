package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgslim/pkgslim/pkg/resolver"
)

// fakeClient answers from fixed maps, keyed by file and then by the ref's
// dotted target (falling back to the bare name).
type fakeClient struct {
	bound   map[string][]resolver.Ref
	refs    map[string][]resolver.Ref
	resolve map[string]map[string][]string

	boundCalls map[string]int
}

func (f *fakeClient) BoundNames(_ context.Context, _ resolver.Environment, file string) ([]resolver.Ref, error) {
	if f.boundCalls == nil {
		f.boundCalls = make(map[string]int)
	}
	f.boundCalls[file]++
	return f.bound[file], nil
}

func (f *fakeClient) UnboundModuleRefs(_ context.Context, _ resolver.Environment, file string) ([]resolver.Ref, error) {
	return f.refs[file], nil
}

func (f *fakeClient) Resolve(_ context.Context, _ resolver.Environment, file string, ref resolver.Ref) ([]string, error) {
	key := ref.Dotted
	if key == "" {
		key = ref.Name
	}
	return f.resolve[file][key], nil
}

func (f *fakeClient) CheckSyntax(context.Context, resolver.Environment, string) ([]resolver.SyntaxIssue, error) {
	return nil, nil
}

func boundRef(name string, line int) resolver.Ref {
	return resolver.Ref{Name: name, Dotted: name, Line: line, Column: 1}
}

func TestAnalyzer_DiamondAndCycleDedup(t *testing.T) {
	site := t.TempDir()
	main := filepath.Join(site, "main.py")
	a := filepath.Join(site, "demo", "a.py")
	b := filepath.Join(site, "demo", "b.py")
	c := filepath.Join(site, "demo", "c.py")
	d := filepath.Join(site, "demo", "d.py")

	// main -> a, a -> {b, c}, b -> d, c -> {d, a}. The second discovery of
	// d and the back-edge c -> a must become path references, not new nodes.
	client := &fakeClient{
		bound: map[string][]resolver.Ref{
			main: {boundRef("a", 1)},
			a:    {boundRef("b", 1), boundRef("c", 2)},
			b:    {boundRef("d", 1)},
			c:    {boundRef("d", 1), boundRef("a", 2)},
		},
		resolve: map[string]map[string][]string{
			main: {"a": {a}},
			a:    {"b": {b}, "c": {c}},
			b:    {"d": {d}},
			c:    {"d": {d}, "a": {a}},
		},
	}

	scope := Scope{RootScript: main, SitePackages: site, Packages: []string{"demo"}}
	analyzer := NewAnalyzer(client, resolver.Environment{SitePackages: site}, scope, nil)

	g, err := analyzer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())

	seen := make(map[string]int)
	for _, n := range g.AllNodes() {
		if n.ResolvedPath != "" {
			seen[n.ResolvedPath]++
		}
	}
	for path, count := range seen {
		assert.Equal(t, 1, count, "path %s must appear once", path)
	}

	nd := g.Lookup(d)
	require.NotNil(t, nd)
	assert.Same(t, g.Lookup(b), nd.Parent, "first discoverer owns the node")
	assert.Equal(t, []string{c}, nd.OtherReferencingPaths)

	na := g.Lookup(a)
	require.NotNil(t, na)
	assert.Contains(t, na.OtherReferencingPaths, c, "cycle edge becomes a back-reference")

	for file, calls := range client.boundCalls {
		assert.Equal(t, 1, calls, "file %s expanded once", file)
	}
}

func TestAnalyzer_WildcardDetection(t *testing.T) {
	site := t.TempDir()
	main := filepath.Join(site, "main.py")
	initFile := filepath.Join(site, "demo", "__init__.py")

	// Line 1 is a wildcard import; line 2 mentions a module-like name inside
	// a call and must not be treated as one.
	require.NoError(t, os.WriteFile(main, []byte("from demo import *\nhelper(other)\n"), 0o644))

	client := &fakeClient{
		refs: map[string][]resolver.Ref{
			main: {
				{Name: "demo", Dotted: "demo", Line: 1, Column: 6},
				{Name: "other", Dotted: "other", Line: 2, Column: 8},
			},
		},
		resolve: map[string]map[string][]string{
			main: {"demo": {initFile}, "other": {filepath.Join(site, "demo", "other.py")}},
		},
	}

	scope := Scope{RootScript: main, SitePackages: site, Packages: []string{"demo"}}
	analyzer := NewAnalyzer(client, resolver.Environment{SitePackages: site}, scope, nil)

	g, err := analyzer.Run(context.Background())
	require.NoError(t, err)

	wild := g.WildcardNodes()
	require.Len(t, wild, 1)
	assert.Equal(t, initFile, wild[0].ResolvedPath)

	assert.Nil(t, g.Lookup(filepath.Join(site, "demo", "other.py")),
		"a parenthesized line is not an import edge")
}

func TestAnalyzer_InitFilesNeverExpanded(t *testing.T) {
	site := t.TempDir()
	main := filepath.Join(site, "main.py")
	initFile := filepath.Join(site, "demo", "__init__.py")

	client := &fakeClient{
		bound: map[string][]resolver.Ref{
			main:     {boundRef("demo", 1)},
			initFile: {boundRef("everything", 1)},
		},
		resolve: map[string]map[string][]string{
			main:     {"demo": {initFile}},
			initFile: {"everything": {filepath.Join(site, "demo", "everything.py")}},
		},
	}

	scope := Scope{RootScript: main, SitePackages: site, Packages: []string{"demo"}}
	analyzer := NewAnalyzer(client, resolver.Environment{SitePackages: site}, scope, nil)

	g, err := analyzer.Run(context.Background())
	require.NoError(t, err)

	n := g.Lookup(initFile)
	require.NotNil(t, n)
	assert.False(t, n.Analyzed)
	assert.Empty(t, n.Children, "expanding an initializer would bulk-include the package")
	assert.Zero(t, client.boundCalls[initFile])
}

func TestAnalyzer_ScopeLimitsExpansion(t *testing.T) {
	site := t.TempDir()
	main := filepath.Join(site, "main.py")
	inScope := filepath.Join(site, "demo", "a.py")
	outOfScope := filepath.Join(site, "vendorlib", "x.py")

	client := &fakeClient{
		bound: map[string][]resolver.Ref{
			main:       {boundRef("a", 1), boundRef("x", 2)},
			inScope:    nil,
			outOfScope: {boundRef("y", 1)},
		},
		resolve: map[string]map[string][]string{
			main:       {"a": {inScope}, "x": {outOfScope}},
			outOfScope: {"y": {filepath.Join(site, "vendorlib", "y.py")}},
		},
	}

	scope := Scope{RootScript: main, SitePackages: site, Packages: []string{"demo"}}
	analyzer := NewAnalyzer(client, resolver.Environment{SitePackages: site}, scope, nil)

	g, err := analyzer.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, g.Lookup(outOfScope), "out-of-scope files still appear in the graph")
	assert.Empty(t, g.Lookup(outOfScope).Children)
	assert.Zero(t, client.boundCalls[outOfScope])
	assert.Nil(t, g.Lookup(filepath.Join(site, "vendorlib", "y.py")))
}

func TestAnalyzer_UnresolvedBecomesNode(t *testing.T) {
	site := t.TempDir()
	main := filepath.Join(site, "main.py")

	client := &fakeClient{
		bound: map[string][]resolver.Ref{
			main: {{Name: "thing", Dotted: "demo.gone.thing", Line: 3, Column: 25}},
		},
		refs: map[string][]resolver.Ref{
			main: {{Name: "gone", Dotted: "demo.gone", Line: 3, Column: 6}},
		},
	}

	scope := Scope{RootScript: main, SitePackages: site, Packages: []string{"demo"}}
	analyzer := NewAnalyzer(client, resolver.Environment{SitePackages: site}, scope, nil)

	g, err := analyzer.Run(context.Background())
	require.NoError(t, err)

	unresolved := g.UnresolvedNodes()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "thing", unresolved[0].DisplayName)
	assert.Equal(t, "gone", unresolved[0].OriginatingImport,
		"the import line's module name is kept for the heuristic")
	assert.Equal(t, 3, unresolved[0].SourceLine)
}

func TestGraph_UsedPaths(t *testing.T) {
	g := New("/tmp/main.py")
	child := &Node{Depth: 1, ResolvedPath: "/tmp/a.py"}
	g.Root.addChild(child)
	g.register(child)
	missing := &Node{Depth: 1, DisplayName: "ext", Unresolved: true,
		ProbablePaths: []string{"/tmp/ext.so", "/tmp/a.py"}}
	g.Root.addChild(missing)

	used := g.UsedPaths()
	assert.Equal(t, []string{"/tmp/a.py", "/tmp/ext.so", "/tmp/main.py"}, used)
}

func TestGraph_SearchSubstringStopsPerBranch(t *testing.T) {
	g := New("/tmp/main.py")
	mid := &Node{Depth: 1, ResolvedPath: "/tmp/pkg/util.py"}
	g.Root.addChild(mid)
	g.register(mid)
	leaf := &Node{Depth: 2, ResolvedPath: "/tmp/pkg/util_extra.py"}
	mid.addChild(leaf)
	g.register(leaf)

	matches := g.SearchSubstring("util")
	require.Len(t, matches, 1)
	assert.Same(t, mid, matches[0], "a matching node's subtree is not searched further")
}
