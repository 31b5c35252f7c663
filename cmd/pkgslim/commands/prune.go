package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/depgraph"
	"github.com/pkgslim/pkgslim/pkg/prune"
)

// pruneOutcome is the per-package result prune prints.
type pruneOutcome struct {
	Package  string          `json:"package"`
	Deleted  int             `json:"deleted"`
	Failures []prune.FailedOp `json:"failures,omitempty"`
	Report   *prune.Report   `json:"report"`
}

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Soft-delete files not reachable from the analyzed graph",
	Long: `Builds the used-path index for each selected package from a graph (either
a snapshot saved by analyze, or a fresh analysis of --script) and
soft-deletes every file not in it. Soft-deleted files keep their content
under the __DELETED_ prefix and can be restored at any time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger(cfg)

		packages, err := targetPackages(cmd, cfg)
		if err != nil {
			return err
		}

		graphPath, _ := cmd.Flags().GetString("graph")
		script, _ := cmd.Flags().GetString("script")

		var g *depgraph.Graph
		switch {
		case graphPath != "":
			f, err := os.Open(graphPath)
			if err != nil {
				return fmt.Errorf("opening snapshot: %w", err)
			}
			g, err = depgraph.Load(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}
		case script != "":
			var heur depgraph.HeuristicResult
			g, heur, err = runAnalysis(cmd.Context(), cfg, logger, script, packages)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			for _, n := range heur.Missed {
				logger.Warn("no candidate found; eligible for deletion", "name", n.DisplayName)
			}
		default:
			return fmt.Errorf("either --graph or --script is required")
		}

		used := g.UsedPaths()
		pruner := prune.NewPruner(logger)
		jsonOutput, _ := cmd.Flags().GetBool("json")

		var outcomes []pruneOutcome
		for _, pkg := range packages {
			root := packageRoot(cfg, pkg)
			ix := prune.BuildIndex(root, used)

			res, err := pruner.Prune(root, ix)
			if err != nil {
				return fmt.Errorf("pruning %s: %w", pkg, err)
			}
			report, err := prune.ComputeReport(root)
			if err != nil {
				return fmt.Errorf("sizing %s: %w", pkg, err)
			}
			outcomes = append(outcomes, pruneOutcome{
				Package:  pkg,
				Deleted:  len(res.Changed),
				Failures: res.Failures,
				Report:   report,
			})
		}

		if jsonOutput {
			data, err := json.MarshalIndent(outcomes, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		for _, o := range outcomes {
			fmt.Printf("%s: soft-deleted %d files (%d failures)\n", o.Package, o.Deleted, len(o.Failures))
			fmt.Println(o.Report.String())
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to prune (repeatable)")
	pruneCmd.Flags().StringP("graph", "g", "", "Graph snapshot saved by analyze")
	pruneCmd.Flags().StringP("script", "s", "", "Entry script to analyze in place of a snapshot")
	pruneCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
