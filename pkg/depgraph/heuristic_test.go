package depgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
	}
}

func TestGuessProbablePaths_PlatformTaggedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py", "foo_ext.cpython-313-x86_64-linux-gnu.so")

	g := New(filepath.Join(dir, "mod.py"))
	child := &Node{Depth: 1, DisplayName: "foo_ext", Unresolved: true}
	g.Root.addChild(child)

	res := GuessProbablePaths(g, nil)

	require.Len(t, res.Found, 1)
	assert.Empty(t, res.Missed)
	assert.Equal(t,
		[]string{filepath.Join(dir, "foo_ext.cpython-313-x86_64-linux-gnu.so")},
		child.ProbablePaths)
}

func TestGuessProbablePaths_FallsBackToOriginatingImport(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py", "barlib_core.py")

	g := New(filepath.Join(dir, "mod.py"))
	child := &Node{
		Depth:             1,
		DisplayName:       "CoreThing",
		OriginatingImport: "barlib",
		Unresolved:        true,
	}
	g.Root.addChild(child)

	res := GuessProbablePaths(g, nil)

	require.Len(t, res.Found, 1)
	assert.Equal(t, []string{filepath.Join(dir, "barlib_core.py")}, child.ProbablePaths)
}

func TestGuessProbablePaths_DirectoryMatchKeepsEverythingBeneath(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py",
		filepath.Join("subpkg", "a.py"),
		filepath.Join("subpkg", "deeper", "b.py"))

	g := New(filepath.Join(dir, "mod.py"))
	child := &Node{Depth: 1, DisplayName: "subpkg", Unresolved: true}
	g.Root.addChild(child)

	res := GuessProbablePaths(g, nil)

	require.Len(t, res.Found, 1)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "subpkg", "a.py"),
		filepath.Join(dir, "subpkg", "deeper", "b.py"),
	}, child.ProbablePaths)
}

func TestGuessProbablePaths_MissIsReported(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py")

	g := New(filepath.Join(dir, "mod.py"))
	child := &Node{Depth: 1, DisplayName: "nothing_matches", Unresolved: true}
	g.Root.addChild(child)

	res := GuessProbablePaths(g, nil)

	assert.Empty(t, res.Found)
	require.Len(t, res.Missed, 1)
	assert.Same(t, child, res.Missed[0])
	assert.Empty(t, child.ProbablePaths)
}

func TestExpandStubs_SiblingArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py", "fast.pyi", "fast.py", "fast.cpython-313-x86_64-linux-gnu.so")

	g := New(filepath.Join(dir, "mod.py"))
	stub := &Node{Depth: 1, DisplayName: "fast", ResolvedPath: filepath.Join(dir, "fast.pyi")}
	g.Root.addChild(stub)
	g.register(stub)

	ExpandStubs(g)

	assert.True(t, stub.IsStub)
	assert.NotNil(t, g.Lookup(filepath.Join(dir, "fast.py")))
	assert.NotNil(t, g.Lookup(filepath.Join(dir, "fast.cpython-313-x86_64-linux-gnu.so")))

	used := g.UsedPaths()
	assert.Contains(t, used, filepath.Join(dir, "fast.py"))
	assert.Contains(t, used, filepath.Join(dir, "fast.cpython-313-x86_64-linux-gnu.so"))
}

func TestExpandStubs_ExistingSiblingGetsBackReference(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "mod.py", "fast.pyi", "fast.py")

	g := New(filepath.Join(dir, "mod.py"))
	impl := &Node{Depth: 1, DisplayName: "fast", ResolvedPath: filepath.Join(dir, "fast.py")}
	g.Root.addChild(impl)
	g.register(impl)
	stub := &Node{Depth: 1, DisplayName: "fast", ResolvedPath: filepath.Join(dir, "fast.pyi")}
	g.Root.addChild(stub)
	g.register(stub)

	before := g.Len()
	ExpandStubs(g)

	assert.Equal(t, before, g.Len(), "an already known sibling is not duplicated")
	assert.Contains(t, impl.OtherReferencingPaths, stub.ResolvedPath)
}
