package rewrite

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkgslim/pkgslim/internal/log"
	"github.com/pkgslim/pkgslim/internal/scanner"
	"github.com/pkgslim/pkgslim/pkg/depgraph"
	"github.com/pkgslim/pkgslim/pkg/resolver"
)

// BrokenImportMarker is the fixed comment tag prepended to an import line
// whose target could not be resolved after pruning. The literal is
// searchable and the edit reversible by removing the tag.
const BrokenImportMarker = "#[PKGSLIM: IMPORT DISABLED, TARGET NOT FOUND AFTER PRUNING] "

// Annotator re-resolves a file's direct imports and comments out the lines
// whose resolution fails.
type Annotator struct {
	client resolver.Client
	env    resolver.Environment
	logger log.Logger
}

// NewAnnotator creates an annotator over the given resolver client and
// environment.
func NewAnnotator(client resolver.Client, env resolver.Environment, logger log.Logger) *Annotator {
	if logger == nil {
		logger = log.Default()
	}
	return &Annotator{client: client, env: env, logger: logger}
}

// AnnotateBroken expands only the direct imports of file through the graph
// builder and prefixes the source line of every unresolved one with the
// marker tag. Returns the annotated line numbers. Lines already carrying
// the marker are left untouched, so repeated annotation is stable.
func (a *Annotator) AnnotateBroken(ctx context.Context, file string) ([]int, error) {
	g := depgraph.New(file)
	builder := depgraph.NewBuilder(a.client, a.env, a.logger)
	if err := builder.Expand(ctx, g, g.Root); err != nil {
		return nil, fmt.Errorf("resolving imports of %s: %w", file, err)
	}

	lineSet := map[int]bool{}
	for _, child := range g.Root.Children {
		if child.Unresolved && child.SourceLine > 0 {
			lineSet[child.SourceLine] = true
		}
	}
	if len(lineSet) == 0 {
		return nil, nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	lines := strings.Split(string(content), "\n")

	var annotated []int
	for lineNo := range lineSet {
		idx := lineNo - 1
		if idx < 0 || idx >= len(lines) {
			continue
		}
		if strings.HasPrefix(lines[idx], BrokenImportMarker) {
			continue
		}
		lines[idx] = BrokenImportMarker + lines[idx]
		annotated = append(annotated, lineNo)
	}
	sort.Ints(annotated)

	if len(annotated) == 0 {
		return nil, nil
	}
	if err := os.WriteFile(file, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	return annotated, nil
}

// CleanedInit reports what happened to one package-init file during a
// cleaning pass.
type CleanedInit struct {
	Path           string `json:"path"`
	AnnotatedLines []int  `json:"annotated_lines,omitempty"`
	Err            string `json:"error,omitempty"`
}

// CleanPackage normalizes then annotates every live package-init file under
// root. Initializers re-export members wholesale, so after pruning they are
// the files most likely to reference deleted targets. Per-file failures are
// recorded and do not stop the pass.
func (a *Annotator) CleanPackage(ctx context.Context, root string) ([]CleanedInit, error) {
	inits, err := scanner.FindInitFiles(root)
	if err != nil {
		return nil, err
	}

	normalizer := NewNormalizer()
	var out []CleanedInit
	for _, init := range inits {
		cleaned := CleanedInit{Path: init}
		if err := normalizer.Normalize(init); err != nil {
			cleaned.Err = err.Error()
			a.logger.Warn("normalization failed", "path", init, "error", err)
			out = append(out, cleaned)
			continue
		}
		lines, err := a.AnnotateBroken(ctx, init)
		if err != nil {
			cleaned.Err = err.Error()
			a.logger.Warn("annotation failed", "path", init, "error", err)
		}
		cleaned.AnnotatedLines = lines
		out = append(out, cleaned)
	}
	return out, nil
}
