// Package rewrite normalizes import statements to one name per source line
// and comments out import lines whose target no longer exists after pruning.
// Normalization first, annotation second: once every import owns exactly one
// line, an unresolved reference maps to one addressable line that can be
// disabled without touching its neighbors.
package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/pkgslim/pkgslim/internal/scanner"
)

// importStmt is one module-level import statement located in the source.
type importStmt struct {
	startLine int // 1-based
	endLine   int // 1-based, inclusive
	rewritten []string
}

// Normalizer rewrites combined import statements structurally, via a
// tree-sitter parse rather than text munging.
type Normalizer struct {
	parser *sitter.Parser
}

// NewNormalizer creates a normalizer with a Python parser.
func NewNormalizer() *Normalizer {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Normalizer{parser: parser}
}

// Normalize rewrites every module-level import statement in file to one
// statement per line. The pre-rewrite content is saved to an __INITIAL_
// backup before the first modification; the backup is written once and
// never overwritten, so repeated normalization keeps the pristine original.
// Where a statement occupied more lines than it produces, blank lines pad
// the difference so following line numbers keep their positions.
func (n *Normalizer) Normalize(file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	stmts, err := n.parseImports(content)
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return nil
	}

	if err := writeBackupOnce(file, content); err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	var out []string
	i := 0
	for i < len(lines) {
		lineNo := i + 1
		stmt := stmtStartingAt(stmts, lineNo)
		if stmt == nil {
			out = append(out, lines[i])
			i++
			continue
		}
		out = append(out, stmt.rewritten...)
		span := stmt.endLine - stmt.startLine + 1
		for pad := len(stmt.rewritten); pad < span; pad++ {
			out = append(out, "")
		}
		i += span
	}

	return os.WriteFile(file, []byte(strings.Join(out, "\n")), 0644)
}

func stmtStartingAt(stmts []importStmt, line int) *importStmt {
	for i := range stmts {
		if stmts[i].startLine == line {
			return &stmts[i]
		}
	}
	return nil
}

// parseImports finds module-level import statements and their one-per-line
// rewritten form. Imports nested in functions or classes are left alone;
// rewriting them would change behavior under conditional import guards.
func (n *Normalizer) parseImports(content []byte) ([]importStmt, error) {
	tree := n.parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	var stmts []importStmt
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		var rewritten []string
		switch child.Type() {
		case "import_statement":
			rewritten = rewriteImport(child, content)
		case "import_from_statement":
			rewritten = rewriteFromImport(child, content)
		default:
			continue
		}
		if len(rewritten) == 0 {
			continue
		}
		stmts = append(stmts, importStmt{
			startLine: int(child.StartPoint().Row) + 1,
			endLine:   int(child.EndPoint().Row) + 1,
			rewritten: rewritten,
		})
	}
	return stmts, nil
}

// rewriteImport turns "import a, b as c" into ["import a", "import b as c"].
func rewriteImport(node *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			out = append(out, "import "+text(child, content))
		case "aliased_import":
			out = append(out, "import "+aliasedText(child, content))
		}
	}
	return out
}

// rewriteFromImport turns "from m import a, b as c" into
// ["from m import a", "from m import b as c"]. A wildcard import already
// names exactly one thing and is reproduced as is.
func rewriteFromImport(node *sitter.Node, content []byte) []string {
	var module string
	seenModule := false
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			if !seenModule {
				module = text(child, content)
				seenModule = true
			} else {
				out = append(out, "from "+module+" import "+text(child, content))
			}
		case "relative_import":
			module = text(child, content)
			seenModule = true
		case "aliased_import":
			out = append(out, "from "+module+" import "+aliasedText(child, content))
		case "wildcard_import":
			out = append(out, "from "+module+" import *")
		}
	}
	return out
}

func aliasedText(node *sitter.Node, content []byte) string {
	name := node.ChildByFieldName("name")
	alias := node.ChildByFieldName("alias")
	if name == nil {
		return ""
	}
	if alias == nil {
		return text(name, content)
	}
	return text(name, content) + " as " + text(alias, content)
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// writeBackupOnce saves the pristine content next to the file under the
// __INITIAL_ prefix, only if no backup exists yet.
func writeBackupOnce(file string, content []byte) error {
	backup := filepath.Join(filepath.Dir(file), scanner.InitialPrefix+filepath.Base(file))
	if _, err := os.Stat(backup); err == nil {
		return nil
	}
	if err := os.WriteFile(backup, content, 0644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// RestoreInitial writes every __INITIAL_ backup under root back over its
// original file. Backups are kept in place afterwards, so the restore is
// repeatable.
func RestoreInitial(root string) ([]string, error) {
	files, err := scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	var restored []string
	for _, f := range files {
		if f.Kind != scanner.KindInitialBackup {
			continue
		}
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			return restored, fmt.Errorf("reading backup %s: %w", f.FullPath, err)
		}
		original := filepath.Join(filepath.Dir(f.FullPath), scanner.OriginalName(filepath.Base(f.FullPath)))
		if err := os.WriteFile(original, content, 0644); err != nil {
			return restored, fmt.Errorf("restoring %s: %w", original, err)
		}
		restored = append(restored, original)
	}
	return restored, nil
}
