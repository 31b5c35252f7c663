// Package resolver defines the source-intelligence contract consumed by the
// dependency analysis. A Client answers three questions about a Python source
// file: which names it binds, which module-like references it makes that are
// not locally bound, and which file(s) define a given reference.
//
// The package also ships a tree-sitter backed reference implementation
// (TreeSitterClient) that resolves references against an installed
// environment without executing any code.
package resolver

import (
	"context"
	"errors"
	"time"
)

// Environment identifies the interpreter installation to resolve against.
// It is fixed once per analysis run and passed explicitly to every call;
// there is no process-wide resolver state.
type Environment struct {
	// PythonExec is the interpreter binary of the environment.
	PythonExec string `yaml:"python_exec" json:"python_exec"`

	// SitePackages is the site-packages directory of the environment.
	// Absolute module references are resolved beneath it.
	SitePackages string `yaml:"site_packages" json:"site_packages"`
}

// Ref is a named reference at a source position. Line and Column are 1-based.
type Ref struct {
	// Name is the bare name, the last dotted segment (e.g. "sparse").
	Name string `json:"name"`

	// Dotted is the full dotted target as written (e.g. "scipy.sparse").
	// It is empty for names defined locally in the file.
	Dotted string `json:"dotted"`

	// MaybeAttr is set when the last dotted segment may be an attribute of
	// its module rather than a module itself (names bound by from-imports).
	// Resolution may then fall back to the enclosing module's file, but
	// never further up.
	MaybeAttr bool `json:"maybe_attr,omitempty"`

	Line   int `json:"line"`
	Column int `json:"column"`
}

// SyntaxIssue describes a parse problem in a source file.
type SyntaxIssue struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Client is the source-intelligence capability the graph builder drives.
// Implementations must be safe for sequential reuse across files; they are
// not required to be goroutine-safe.
type Client interface {
	// BoundNames returns the names bound directly in the file: imported
	// names and top-level definitions.
	BoundNames(ctx context.Context, env Environment, file string) ([]Ref, error)

	// UnboundModuleRefs returns references to module-like symbols that are
	// not themselves bound names in the file (the module targets of
	// from-imports, including ones a wildcard import would resolve).
	UnboundModuleRefs(ctx context.Context, env Environment, file string) ([]Ref, error)

	// Resolve follows a reference to zero, one, or multiple defining files.
	// An empty result is not an error: it means the reference could not be
	// statically confirmed.
	Resolve(ctx context.Context, env Environment, file string, ref Ref) ([]string, error)

	// CheckSyntax reports parse problems in the file.
	CheckSyntax(ctx context.Context, env Environment, file string) ([]SyntaxIssue, error)
}

// timeoutClient bounds every call into an inner Client. Expiry is reported
// as "nothing found" rather than an error, so a stalled resolution degrades
// to an unresolved node instead of aborting the analysis.
type timeoutClient struct {
	inner   Client
	perCall time.Duration
}

// WithTimeout wraps a Client so that each call is given at most perCall to
// complete. A non-positive duration returns the client unchanged.
func WithTimeout(c Client, perCall time.Duration) Client {
	if perCall <= 0 {
		return c
	}
	return &timeoutClient{inner: c, perCall: perCall}
}

func (t *timeoutClient) BoundNames(ctx context.Context, env Environment, file string) ([]Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, t.perCall)
	defer cancel()
	refs, err := t.inner.BoundNames(ctx, env, file)
	return refs, squashDeadline(err)
}

func (t *timeoutClient) UnboundModuleRefs(ctx context.Context, env Environment, file string) ([]Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, t.perCall)
	defer cancel()
	refs, err := t.inner.UnboundModuleRefs(ctx, env, file)
	return refs, squashDeadline(err)
}

func (t *timeoutClient) Resolve(ctx context.Context, env Environment, file string, ref Ref) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.perCall)
	defer cancel()
	paths, err := t.inner.Resolve(ctx, env, file, ref)
	return paths, squashDeadline(err)
}

func (t *timeoutClient) CheckSyntax(ctx context.Context, env Environment, file string) ([]SyntaxIssue, error) {
	ctx, cancel := context.WithTimeout(ctx, t.perCall)
	defer cancel()
	issues, err := t.inner.CheckSyntax(ctx, env, file)
	return issues, squashDeadline(err)
}

func squashDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
