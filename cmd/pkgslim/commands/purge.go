package commands

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/prune"
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove soft-deleted files (asks for confirmation)",
	Long: `Unlinks every __DELETED_ file under the selected packages. This is the
only irreversible step: after purge there is no soft-deleted copy left to
restore. It never runs without an explicit confirmation (or --yes).`,
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

		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Permanently remove soft-deleted files from %v?", packages)).
						Description("Restore will no longer be possible for these files.").
						Affirmative("Yes, remove permanently").
						Negative("No, keep soft-deleted copies").
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				return fmt.Errorf("interactive prompt failed: %w", err)
			}
		}
		if !confirmed {
			fmt.Println("purge cancelled")
			return nil
		}

		pruner := prune.NewPruner(logger)
		for _, pkg := range packages {
			root := packageRoot(cfg, pkg)
			res, err := pruner.Purge(root)
			if err != nil {
				return fmt.Errorf("purging %s: %w", pkg, err)
			}
			fmt.Printf("%s: permanently removed %d files (%d failures)\n", pkg, len(res.Changed), len(res.Failures))
		}
		return nil
	},
}

func init() {
	purgeCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to purge (repeatable)")
	purgeCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
