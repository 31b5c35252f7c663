package depgraph

import (
	"os"
	"path/filepath"

	"github.com/pkgslim/pkgslim/internal/log"
)

// HeuristicResult reports which unresolved nodes the probable-path fallback
// could cover. Misses are the accepted risk of the design: a file imported
// dynamically under a name that matches nothing on disk stays unknown and is
// eligible for deletion. The caller decides what to do with that list; it is
// never silently dropped.
type HeuristicResult struct {
	Found  []*Node
	Missed []*Node
}

// GuessProbablePaths runs the fallback resolution for every unresolved node
// whose parent has a concrete path. The parent file's directory is scanned
// for entries whose name starts with the unresolved bare name, then with the
// originating import name. A directory match contributes every file beneath
// it: over-keeping costs disk space, under-keeping breaks the package.
func GuessProbablePaths(g *Graph, logger log.Logger) HeuristicResult {
	if logger == nil {
		logger = log.Default()
	}
	var res HeuristicResult
	for _, n := range g.AllNodes() {
		if !n.Unresolved {
			continue
		}
		if n.Parent == nil || n.Parent.ResolvedPath == "" {
			res.Missed = append(res.Missed, n)
			continue
		}

		dir := filepath.Dir(n.Parent.ResolvedPath)
		matches := prefixMatches(dir, n.DisplayName)
		if len(matches) == 0 && n.OriginatingImport != "" {
			matches = prefixMatches(dir, n.OriginatingImport)
		}
		if len(matches) == 0 {
			logger.Debug("heuristic miss", "name", n.DisplayName, "dir", dir)
			res.Missed = append(res.Missed, n)
			continue
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if info.IsDir() {
				n.ProbablePaths = append(n.ProbablePaths, filesBeneath(match)...)
			} else {
				n.ProbablePaths = append(n.ProbablePaths, match)
			}
		}
		res.Found = append(res.Found, n)
	}
	return res
}

// prefixMatches lists dir entries whose name starts with prefix. An empty
// prefix matches nothing rather than everything.
func prefixMatches(dir, prefix string) []string {
	if prefix == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// filesBeneath collects every regular file under root recursively.
func filesBeneath(root string) []string {
	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files
}
