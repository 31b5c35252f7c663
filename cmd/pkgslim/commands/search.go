package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/pkg/depgraph"
	"github.com/pkgslim/pkgslim/pkg/prune"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find files in a pruned package or nodes in a saved graph",
	Long: `Searches the selected packages on disk for files whose path contains the
query, soft-delete aware. With --graph, searches the saved dependency graph
instead and prints matching nodes. With --exact, the query is treated as an
exact relative path. With --ls, lists the immediate children of the query
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		query := args[0]
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if graphPath, _ := cmd.Flags().GetString("graph"); graphPath != "" {
			return searchGraph(graphPath, query, jsonOutput)
		}

		packages, err := targetPackages(cmd, cfg)
		if err != nil {
			return err
		}
		exact, _ := cmd.Flags().GetBool("exact")
		list, _ := cmd.Flags().GetBool("ls")

		entries := make(map[string][]prune.Entry, len(packages))
		for _, pkg := range packages {
			root := packageRoot(cfg, pkg)
			switch {
			case list:
				found, err := prune.ListChildren(root, query)
				if err != nil {
					return fmt.Errorf("listing %s in %s: %w", query, pkg, err)
				}
				entries[pkg] = found
			case exact:
				found, err := prune.SearchExact(root, query)
				if err != nil {
					return fmt.Errorf("searching %s: %w", pkg, err)
				}
				if found != nil {
					entries[pkg] = []prune.Entry{*found}
				}
			default:
				found, err := prune.SearchSubstring(root, query)
				if err != nil {
					return fmt.Errorf("searching %s: %w", pkg, err)
				}
				entries[pkg] = found
			}
		}

		if jsonOutput {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		for _, pkg := range packages {
			for _, e := range entries[pkg] {
				state := ""
				if e.SoftDeleted {
					state = " (soft-deleted)"
				}
				fmt.Printf("%s/%s%s\n", pkg, e.Path, state)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceP("package", "p", nil, "Package directory name to search (repeatable)")
	searchCmd.Flags().StringP("graph", "g", "", "Search a graph snapshot instead of the filesystem")
	searchCmd.Flags().Bool("exact", false, "Treat the query as an exact relative path")
	searchCmd.Flags().Bool("ls", false, "List immediate children of the query directory")
	searchCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

func searchGraph(graphPath, query string, jsonOutput bool) error {
	f, err := os.Open(graphPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	g, err := depgraph.Load(f)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	matches := g.SearchSubstring(query)
	if jsonOutput {
		type nodeOut struct {
			DisplayName  string `json:"display_name,omitempty"`
			ResolvedPath string `json:"resolved_path,omitempty"`
			Depth        int    `json:"depth"`
			Unresolved   bool   `json:"unresolved,omitempty"`
		}
		out := make([]nodeOut, 0, len(matches))
		for _, n := range matches {
			out = append(out, nodeOut{
				DisplayName:  n.DisplayName,
				ResolvedPath: n.ResolvedPath,
				Depth:        n.Depth,
				Unresolved:   n.Unresolved,
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	for _, n := range matches {
		label := n.ResolvedPath
		if label == "" {
			label = n.DisplayName + " (unresolved)"
		}
		fmt.Printf("depth=%d %s\n", n.Depth, label)
	}
	return nil
}
