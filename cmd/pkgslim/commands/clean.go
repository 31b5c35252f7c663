package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/rewrite"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize package __init__ files and disable broken imports",
	Long: `For every __init__.py under the selected packages: rewrites combined
imports to one name per line (keeping a pristine __INITIAL_ backup), then
re-resolves each import and comments out the lines whose target no longer
exists. Run this after prune; restore --initial reverses it.`,
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
		jsonOutput, _ := cmd.Flags().GetBool("json")

		annotator := rewrite.NewAnnotator(newClient(cfg), environment(cfg), logger)

		results := make(map[string][]rewrite.CleanedInit, len(packages))
		for _, pkg := range packages {
			cleaned, err := annotator.CleanPackage(cmd.Context(), packageRoot(cfg, pkg))
			if err != nil {
				return fmt.Errorf("cleaning %s: %w", pkg, err)
			}
			results[pkg] = cleaned
		}

		if jsonOutput {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		for _, pkg := range packages {
			annotated := 0
			failed := 0
			for _, c := range results[pkg] {
				annotated += len(c.AnnotatedLines)
				if c.Err != "" {
					failed++
				}
			}
			fmt.Printf("%s: cleaned %d init files, disabled %d imports (%d failures)\n",
				pkg, len(results[pkg]), annotated, failed)
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to clean (repeatable)")
	cleanCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
