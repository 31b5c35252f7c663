package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/prune"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show size accounting for pruned packages",
	Long: `Walks each selected package and reports file counts and sizes, split
into kept and soft-deleted. The identity before == after + deleted holds
exactly; soft-deleted copies still carry their original bytes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		packages, err := targetPackages(cmd, cfg)
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")

		reports := make(map[string]*prune.Report, len(packages))
		for _, pkg := range packages {
			report, err := prune.ComputeReport(packageRoot(cfg, pkg))
			if err != nil {
				return fmt.Errorf("sizing %s: %w", pkg, err)
			}
			reports[pkg] = report
		}

		if jsonOutput {
			data, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		for _, pkg := range packages {
			fmt.Printf("%s:\n%s\n", pkg, reports[pkg].String())
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to size (repeatable)")
	reportCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
