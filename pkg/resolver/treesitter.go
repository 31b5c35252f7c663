package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// TreeSitterClient is a Client backed by a tree-sitter parse of the source.
// It is deliberately conservative: names it cannot follow to a file on disk
// are reported as unresolved and left to the probable-path heuristic, rather
// than guessed at here.
type TreeSitterClient struct {
	parser *sitter.Parser
	facts  *factsCache
}

// NewTreeSitterClient creates a client with a Python parser and a bounded
// per-file parse cache.
func NewTreeSitterClient() *TreeSitterClient {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &TreeSitterClient{
		parser: parser,
		facts:  newFactsCache(512),
	}
}

// moduleFacts is everything the client learns from one parse of a file.
type moduleFacts struct {
	bound []Ref
	refs  []Ref
}

// BoundNames returns imported names (at any nesting level) plus top-level
// function, class, and assignment definitions.
func (c *TreeSitterClient) BoundNames(ctx context.Context, env Environment, file string) ([]Ref, error) {
	facts, err := c.factsFor(ctx, file)
	if err != nil {
		return nil, err
	}
	return facts.bound, nil
}

// UnboundModuleRefs returns the module targets of from-imports. These are
// references, not bindings: `from scipy import sparse` binds "sparse" but
// merely references "scipy".
func (c *TreeSitterClient) UnboundModuleRefs(ctx context.Context, env Environment, file string) ([]Ref, error) {
	facts, err := c.factsFor(ctx, file)
	if err != nil {
		return nil, err
	}
	return facts.refs, nil
}

// Resolve follows a reference to its defining file within the environment.
// Relative references resolve against the referencing file's directory;
// absolute references resolve against site-packages first, then the
// referencing file's directory (same-distribution absolute imports).
func (c *TreeSitterClient) Resolve(ctx context.Context, env Environment, file string, ref Ref) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Locally defined name: its defining file is the file itself. The graph
	// builder skips self-edges.
	if ref.Dotted == "" {
		return []string{file}, nil
	}

	if strings.HasPrefix(ref.Dotted, ".") {
		dots := 0
		for dots < len(ref.Dotted) && ref.Dotted[dots] == '.' {
			dots++
		}
		base := filepath.Dir(file)
		for i := 1; i < dots; i++ {
			base = filepath.Dir(base)
		}
		return c.resolveDotted(ctx, base, splitDotted(ref.Dotted[dots:]), ref, file), nil
	}

	segments := splitDotted(ref.Dotted)
	for _, base := range []string{env.SitePackages, filepath.Dir(file)} {
		if base == "" {
			continue
		}
		if found := c.resolveDotted(ctx, base, segments, ref, file); found != nil {
			return found, nil
		}
	}
	return nil, nil
}

// CheckSyntax reports tree-sitter ERROR and MISSING nodes in the file.
func (c *TreeSitterClient) CheckSyntax(ctx context.Context, env Environment, file string) ([]SyntaxIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	tree := c.parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", file)
	}
	defer tree.Close()

	var issues []SyntaxIssue
	collectSyntaxIssues(tree.RootNode(), content, &issues)
	return issues, nil
}

func collectSyntaxIssues(node *sitter.Node, content []byte, issues *[]SyntaxIssue) {
	if node == nil {
		return
	}
	if node.IsError() || node.IsMissing() {
		msg := "syntax error"
		if node.IsMissing() {
			msg = "missing " + node.Type()
		}
		*issues = append(*issues, SyntaxIssue{
			Line:    int(node.StartPoint().Row) + 1,
			Column:  int(node.StartPoint().Column) + 1,
			Message: msg,
		})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxIssues(node.Child(i), content, issues)
	}
}

// factsFor parses the file (or returns the cached parse) and extracts bound
// names and module references. Cache hits are validated against the file's
// current mtime and size, so a file rewritten since its last parse is parsed
// again.
func (c *TreeSitterClient) factsFor(ctx context.Context, file string) (*moduleFacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if facts, ok := c.facts.get(file, info.ModTime(), info.Size()); ok {
		return facts, nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	tree := c.parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", file)
	}
	defer tree.Close()

	facts := &moduleFacts{}
	root := tree.RootNode()
	c.walkImports(root, content, facts)
	c.collectTopLevelDefs(root, content, facts)

	c.facts.put(file, facts, info.ModTime(), info.Size())
	return facts, nil
}

// walkImports recursively finds import statements. Imports inside function
// bodies still bind names the analysis must follow.
func (c *TreeSitterClient) walkImports(node *sitter.Node, content []byte, facts *moduleFacts) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement":
		c.parseImportStatement(node, content, facts)
	case "import_from_statement":
		c.parseImportFromStatement(node, content, facts)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		c.walkImports(node.Child(i), content, facts)
	}
}

// parseImportStatement handles "import a.b" and "import a.b as c". The
// imported module itself is the binding, so no separate reference is
// recorded.
func (c *TreeSitterClient) parseImportStatement(node *sitter.Node, content []byte, facts *moduleFacts) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			dotted := nodeText(child, content)
			facts.bound = append(facts.bound, refAt(child, lastSegment(dotted), dotted))
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			dotted := nodeText(name, content)
			bare := lastSegment(dotted)
			if alias != nil {
				bare = nodeText(alias, content)
			}
			facts.bound = append(facts.bound, refAt(child, bare, dotted))
		}
	}
}

// parseImportFromStatement handles "from m import a, b as c" and
// "from m import *". The module is recorded as an unbound reference; each
// imported name is a binding whose dotted target is module.name. A wildcard
// import binds nothing nameable, leaving only the module reference, which is
// how the graph builder recognizes it.
func (c *TreeSitterClient) parseImportFromStatement(node *sitter.Node, content []byte, facts *moduleFacts) {
	var module string
	seenModule := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			text := nodeText(child, content)
			if !seenModule {
				module = text
				seenModule = true
				facts.refs = append(facts.refs, refAt(child, lastSegment(module), module))
			} else {
				r := refAt(child, lastSegment(text), joinDotted(module, text))
				r.MaybeAttr = true
				facts.bound = append(facts.bound, r)
			}
		case "relative_import":
			module = nodeText(child, content)
			seenModule = true
			facts.refs = append(facts.refs, refAt(child, lastSegment(module), module))
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			text := nodeText(name, content)
			bare := lastSegment(text)
			if alias != nil {
				bare = nodeText(alias, content)
			}
			r := refAt(child, bare, joinDotted(module, text))
			r.MaybeAttr = true
			facts.bound = append(facts.bound, r)
		case "wildcard_import":
			// Nothing bound; the module reference above stands alone.
		}
	}
}

// collectTopLevelDefs binds module-level function, class, and assignment
// names. Nested scopes are left out deliberately; they cannot introduce new
// import targets by themselves.
func (c *TreeSitterClient) collectTopLevelDefs(root *sitter.Node, content []byte, facts *moduleFacts) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_definition", "class_definition":
			if name := child.ChildByFieldName("name"); name != nil {
				facts.bound = append(facts.bound, refAt(name, nodeText(name, content), ""))
			}
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				if name := def.ChildByFieldName("name"); name != nil {
					facts.bound = append(facts.bound, refAt(name, nodeText(name, content), ""))
				}
			}
		case "expression_statement":
			for j := 0; j < int(child.ChildCount()); j++ {
				expr := child.Child(j)
				if expr == nil || expr.Type() != "assignment" {
					continue
				}
				left := expr.ChildByFieldName("left")
				if left != nil && left.Type() == "identifier" {
					facts.bound = append(facts.bound, refAt(left, nodeText(left, content), ""))
				}
			}
		}
	}
}

// resolveDotted maps a dotted module path onto the filesystem beneath base.
// When the ref's last segment may be an attribute (from-import bound names),
// resolution falls back one level to the enclosing module's file, and then
// only if that file actually binds the attribute name: `from scipy.sparse
// import csr_matrix` resolves to the sparse package because sparse defines
// csr_matrix. The fallback never climbs higher; a missing intermediate
// module stays unresolved, which is exactly what the broken-reference
// annotator needs to see after pruning. The fallback never selects the
// referencing file itself: an initializer importing a pruned member of its
// own package binds that member only through the broken import line, and
// accepting the self-match would hide exactly the breakage being looked for.
func (c *TreeSitterClient) resolveDotted(ctx context.Context, base string, segments []string, ref Ref, src string) []string {
	min := len(segments)
	if ref.MaybeAttr && min > 0 {
		min--
	}
	for n := len(segments); n >= min; n-- {
		attrFallback := n < len(segments)
		full := filepath.Join(append([]string{base}, segments[:n]...)...)
		for _, candidate := range []string{
			full + ".py",
			full + ".pyi",
			filepath.Join(full, "__init__.py"),
			filepath.Join(full, "__init__.pyi"),
		} {
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			if attrFallback {
				if candidate == src || !c.bindsName(ctx, candidate, segments[len(segments)-1]) {
					continue
				}
			}
			return []string{candidate}
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// bindsName reports whether the module file binds the given bare name at
// import-visible level. Wildcard re-exports cannot be proven statically, so
// a module containing a wildcard import is treated as binding anything;
// conservative over-keep beats a false broken-import annotation.
func (c *TreeSitterClient) bindsName(ctx context.Context, file, name string) bool {
	facts, err := c.factsFor(ctx, file)
	if err != nil {
		return false
	}
	for _, b := range facts.bound {
		if b.Name == name {
			return true
		}
	}
	// A from-import with no bound name on its line is a wildcard.
	boundLines := make(map[int]bool, len(facts.bound))
	for _, b := range facts.bound {
		boundLines[b.Line] = true
	}
	for _, r := range facts.refs {
		if !boundLines[r.Line] {
			return true
		}
	}
	return false
}

func splitDotted(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

func joinDotted(module, name string) string {
	if module == "" {
		return name
	}
	if strings.HasSuffix(module, ".") {
		// Relative module like "." or "..": the dot separator is already
		// there.
		return module + name
	}
	return module + "." + name
}

func lastSegment(dotted string) string {
	trimmed := strings.TrimLeft(dotted, ".")
	if trimmed == "" {
		return dotted
	}
	if idx := strings.LastIndex(trimmed, "."); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func refAt(node *sitter.Node, bare, dotted string) Ref {
	return Ref{
		Name:   bare,
		Dotted: dotted,
		Line:   int(node.StartPoint().Row) + 1,
		Column: int(node.StartPoint().Column) + 1,
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}
