package depgraph

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkgslim/pkgslim/internal/log"
	"github.com/pkgslim/pkgslim/pkg/resolver"
)

// initFileName is the per-directory file that marks a directory as an
// importable package.
const initFileName = "__init__.py"

// Scope limits the recursive analysis to the packages of interest. Files
// outside the scope still appear in the graph (their existence is data) but
// their own imports are never expanded.
type Scope struct {
	// RootScript is the entry script the analysis starts from. It is always
	// expanded regardless of location.
	RootScript string

	// SitePackages is the environment's site-packages directory.
	SitePackages string

	// Packages are directory names under SitePackages to analyze.
	Packages []string
}

// Contains reports whether path lies inside one of the scoped packages.
func (s Scope) Contains(path string) bool {
	for _, pkg := range s.Packages {
		root := filepath.Join(s.SitePackages, pkg) + string(filepath.Separator)
		if strings.HasPrefix(path, root) {
			return true
		}
	}
	return false
}

// Analyzer drives the builder across the scope with an explicit work-list.
// A work-list with a visited set bounds stack depth on pathological import
// chains; duplicate-path suppression in the builder already prevents
// re-expansion through back-edges.
type Analyzer struct {
	builder *Builder
	scope   Scope
	logger  log.Logger
}

// NewAnalyzer creates an analyzer for the given resolver client, environment
// and scope.
func NewAnalyzer(client resolver.Client, env resolver.Environment, scope Scope, logger log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		builder: NewBuilder(client, env, logger),
		scope:   scope,
		logger:  logger,
	}
}

// Run builds the full dependency graph starting from the scope's root
// script. Expansion failures on individual files are logged and skipped;
// only context cancellation stops the run.
func (a *Analyzer) Run(ctx context.Context) (*Graph, error) {
	g := New(a.scope.RootScript)

	queue := []*Node{g.Root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return g, err
		}

		n := queue[0]
		queue = queue[1:]

		if !a.shouldExpand(n) {
			continue
		}
		a.logger.Debug("expanding", "depth", n.Depth, "path", n.ResolvedPath)

		if err := a.builder.Expand(ctx, g, n); err != nil {
			a.logger.Warn("expansion failed", "path", n.ResolvedPath, "error", err)
			continue
		}
		n.Analyzed = true

		for _, child := range n.Children {
			if child.ResolvedPath != "" {
				queue = append(queue, child)
			}
		}
	}
	return g, nil
}

// shouldExpand applies the scope filter and memoization. Package-init files
// are deliberately never expanded directly: expanding an initializer would
// bulk-include an entire package, so its contents are reached only through
// the individual members the script actually uses.
func (a *Analyzer) shouldExpand(n *Node) bool {
	if n.ResolvedPath == "" || n.Analyzed {
		return false
	}
	if filepath.Base(n.ResolvedPath) == initFileName {
		return false
	}
	return n.ResolvedPath == a.scope.RootScript || a.scope.Contains(n.ResolvedPath)
}
