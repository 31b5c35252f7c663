package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/prune"
	"github.com/pkgslim/pkgslim/pkg/rewrite"
)

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Undo soft-deletes (all, or a single file) and init rewrites",
	Long: `Renames soft-deleted files back to their original names. With --path,
restores a single file; otherwise restores everything under each selected
package. With --initial, also rewrites __init__ files back to their
pre-normalization content from the __INITIAL_ backups.`,
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

		pruner := prune.NewPruner(logger)
		single, _ := cmd.Flags().GetString("path")
		initial, _ := cmd.Flags().GetBool("initial")

		if single != "" {
			if len(packages) != 1 {
				return fmt.Errorf("--path needs exactly one --package")
			}
			root := packageRoot(cfg, packages[0])
			if err := pruner.RestoreOne(root, single); err != nil {
				return err
			}
			fmt.Printf("restored %s\n", single)
			return nil
		}

		for _, pkg := range packages {
			root := packageRoot(cfg, pkg)
			res, err := pruner.RestoreAll(root)
			if err != nil {
				return fmt.Errorf("restoring %s: %w", pkg, err)
			}
			fmt.Printf("%s: restored %d files (%d failures)\n", pkg, len(res.Changed), len(res.Failures))

			if initial {
				restored, err := rewrite.RestoreInitial(root)
				if err != nil {
					return fmt.Errorf("restoring initial backups in %s: %w", pkg, err)
				}
				fmt.Printf("%s: rewrote %d files from initial backups\n", pkg, len(restored))
			}
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to restore (repeatable)")
	restoreCmd.Flags().String("path", "", "Restore a single file by its original relative path")
	restoreCmd.Flags().Bool("initial", false, "Also restore __INITIAL_ backups of rewritten files")
}
