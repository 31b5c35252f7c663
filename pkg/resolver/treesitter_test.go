package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePy(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func refNames(refs []Ref) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}

func TestTreeSitterClient_BoundNames(t *testing.T) {
	dir := t.TempDir()
	file := writePy(t, dir, "mod.py", `import os
import numpy as np
from scipy import sparse
from collections import OrderedDict as OD

CONST = 1

def helper():
    import json
    return json

class Thing:
    pass
`)

	c := NewTreeSitterClient()
	bound, err := c.BoundNames(context.Background(), Environment{}, file)
	require.NoError(t, err)

	names := refNames(bound)
	assert.Contains(t, names, "os")
	assert.Contains(t, names, "np")
	assert.Contains(t, names, "sparse")
	assert.Contains(t, names, "OD")
	assert.Contains(t, names, "CONST")
	assert.Contains(t, names, "helper")
	assert.Contains(t, names, "Thing")
	assert.Contains(t, names, "json", "imports nested in functions still bind")

	byName := make(map[string]Ref)
	for _, r := range bound {
		byName[r.Name] = r
	}
	assert.Equal(t, "scipy.sparse", byName["sparse"].Dotted)
	assert.True(t, byName["sparse"].MaybeAttr)
	assert.Equal(t, "numpy", byName["np"].Dotted)
	assert.False(t, byName["np"].MaybeAttr)
	assert.Equal(t, "", byName["CONST"].Dotted, "local definitions have no dotted target")
	assert.Equal(t, 3, byName["sparse"].Line)
}

func TestTreeSitterClient_UnboundModuleRefs(t *testing.T) {
	dir := t.TempDir()
	file := writePy(t, dir, "mod.py", "import os\nfrom scipy import sparse\nfrom demo.sub import *\n")

	c := NewTreeSitterClient()
	refs, err := c.UnboundModuleRefs(context.Background(), Environment{}, file)
	require.NoError(t, err)

	names := refNames(refs)
	assert.NotContains(t, names, "os", "a plain import binds, it does not reference")
	assert.Contains(t, names, "scipy")
	assert.Contains(t, names, "sub")

	byName := make(map[string]Ref)
	for _, r := range refs {
		byName[r.Name] = r
	}
	assert.Equal(t, "demo.sub", byName["sub"].Dotted)
	assert.Equal(t, 3, byName["sub"].Line)
}

func TestTreeSitterClient_ResolveAbsolute(t *testing.T) {
	site := t.TempDir()
	util := writePy(t, site, filepath.Join("demo", "util.py"), "value = 1\n")
	initFile := writePy(t, site, filepath.Join("demo", "__init__.py"), "")
	main := writePy(t, site, "main.py", "")

	c := NewTreeSitterClient()
	env := Environment{SitePackages: site}
	ctx := context.Background()

	paths, err := c.Resolve(ctx, env, main, Ref{Name: "util", Dotted: "demo.util"})
	require.NoError(t, err)
	assert.Equal(t, []string{util}, paths)

	paths, err = c.Resolve(ctx, env, main, Ref{Name: "demo", Dotted: "demo"})
	require.NoError(t, err)
	assert.Equal(t, []string{initFile}, paths, "a package resolves to its initializer")

	paths, err = c.Resolve(ctx, env, main, Ref{Name: "nope", Dotted: "demo.nope"})
	require.NoError(t, err)
	assert.Empty(t, paths, "unresolvable is an empty result, not an error")
}

func TestTreeSitterClient_ResolveAttributeFallback(t *testing.T) {
	site := t.TempDir()
	util := writePy(t, site, filepath.Join("demo", "util.py"), "value = 1\n")
	writePy(t, site, filepath.Join("demo", "__init__.py"), "")
	main := writePy(t, site, "main.py", "")

	c := NewTreeSitterClient()
	env := Environment{SitePackages: site}
	ctx := context.Background()

	// `from demo.util import value`: value is an attribute, so resolution
	// falls back to the module that defines it.
	paths, err := c.Resolve(ctx, env, main, Ref{Name: "value", Dotted: "demo.util.value", MaybeAttr: true})
	require.NoError(t, err)
	assert.Equal(t, []string{util}, paths)

	// The fallback requires the name to actually be bound in the module.
	paths, err = c.Resolve(ctx, env, main, Ref{Name: "absent", Dotted: "demo.util.absent", MaybeAttr: true})
	require.NoError(t, err)
	assert.Empty(t, paths)

	// Without the attribute flag there is no fallback at all.
	paths, err = c.Resolve(ctx, env, main, Ref{Name: "value", Dotted: "demo.util.value"})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestTreeSitterClient_ResolveRelative(t *testing.T) {
	site := t.TempDir()
	sibling := writePy(t, site, filepath.Join("demo", "sibling.py"), "thing = 1\n")
	upper := writePy(t, site, filepath.Join("demo", "upper.py"), "top = 1\n")
	nested := writePy(t, site, filepath.Join("demo", "inner", "mod.py"), "")

	c := NewTreeSitterClient()
	env := Environment{SitePackages: site}
	ctx := context.Background()

	paths, err := c.Resolve(ctx, env, filepath.Join(site, "demo", "mod.py"),
		Ref{Name: "sibling", Dotted: ".sibling"})
	require.NoError(t, err)
	assert.Equal(t, []string{sibling}, paths)

	paths, err = c.Resolve(ctx, env, nested, Ref{Name: "upper", Dotted: "..upper"})
	require.NoError(t, err)
	assert.Equal(t, []string{upper}, paths)
}

func TestTreeSitterClient_ResolveStub(t *testing.T) {
	site := t.TempDir()
	stub := writePy(t, site, filepath.Join("demo", "fast.pyi"), "def go() -> int: ...\n")
	main := writePy(t, site, "main.py", "")

	c := NewTreeSitterClient()
	paths, err := c.Resolve(context.Background(), Environment{SitePackages: site}, main,
		Ref{Name: "fast", Dotted: "demo.fast"})
	require.NoError(t, err)
	assert.Equal(t, []string{stub}, paths)
}

func TestTreeSitterClient_CheckSyntax(t *testing.T) {
	dir := t.TempDir()
	good := writePy(t, dir, "good.py", "x = 1\n")
	bad := writePy(t, dir, "bad.py", "def broken(:\n")

	c := NewTreeSitterClient()
	ctx := context.Background()

	issues, err := c.CheckSyntax(ctx, Environment{}, good)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = c.CheckSyntax(ctx, Environment{}, bad)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}

func TestTreeSitterClient_ReparsesAfterFileChange(t *testing.T) {
	dir := t.TempDir()
	file := writePy(t, dir, "mod.py", "first = 1\n")

	c := NewTreeSitterClient()
	ctx := context.Background()

	bound, err := c.BoundNames(ctx, Environment{}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, refNames(bound))

	require.NoError(t, os.WriteFile(file, []byte("second = 1\nthird = 2\n"), 0o644))

	bound, err = c.BoundNames(ctx, Environment{}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, refNames(bound),
		"facts follow the file on disk, not the first parse")
}

func TestTreeSitterClient_LocalDefinitionResolvesToOwnFile(t *testing.T) {
	dir := t.TempDir()
	file := writePy(t, dir, "mod.py", "def local():\n    pass\n")

	c := NewTreeSitterClient()
	paths, err := c.Resolve(context.Background(), Environment{}, file, Ref{Name: "local"})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)
}
