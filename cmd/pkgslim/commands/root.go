package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkgslim/pkgslim/internal/config"
	"github.com/pkgslim/pkgslim/internal/log"
	"github.com/pkgslim/pkgslim/pkg/depgraph"
	"github.com/pkgslim/pkgslim/pkg/resolver"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pkgslim",
	Short: "pkgslim - shrink installed Python packages to what a script actually uses",
	Long: `pkgslim statically resolves the transitive imports of an entry script,
keeps the files inside selected site-packages directories that are reachable,
and soft-deletes the rest. Every prune is reversible until explicitly purged.

Commands:
  analyze     Build the import-dependency graph from an entry script
  prune       Soft-delete files not reachable from the analyzed graph
  restore     Undo soft-deletes (all, or a single file) and init rewrites
  purge       Permanently remove soft-deleted files (asks for confirmation)
  report      Show size accounting for pruned packages
  clean       Normalize package __init__ files and disable broken imports
  search      Find files in a pruned package or nodes in a saved graph

Use "pkgslim [command] --help" for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (overrides discovery)")

	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(pruneCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(purgeCmd)
	RootCmd.AddCommand(reportCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(searchCmd)
}

// loadConfig loads configuration, honoring the persistent --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// newLogger builds the logger the engines share, from config plus flags.
func newLogger(cfg *config.Config) log.Logger {
	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.JSONLogs {
		logger.SetJSONOutput(true)
	}
	return logger
}

// newClient builds the resolver client with the configured per-call bound.
func newClient(cfg *config.Config) resolver.Client {
	return resolver.WithTimeout(resolver.NewTreeSitterClient(), cfg.ResolverTimeout())
}

// environment captures the analysis environment from config. It is passed
// explicitly to every resolver call.
func environment(cfg *config.Config) resolver.Environment {
	return resolver.Environment{
		PythonExec:   cfg.PythonExec,
		SitePackages: cfg.SitePackages,
	}
}

// packageRoot resolves a package directory name against site-packages.
func packageRoot(cfg *config.Config, pkg string) string {
	return filepath.Join(cfg.SitePackages, pkg)
}

// targetPackages returns the --package flag values, or the configured ones.
func targetPackages(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	pkgs, _ := cmd.Flags().GetStringSlice("package")
	if len(pkgs) == 0 {
		pkgs = cfg.Packages
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages selected: pass --package or set packages in config")
	}
	return pkgs, nil
}

// runAnalysis builds the full graph for a script: recursive expansion, then
// the probable-path fallback, then stub expansion.
func runAnalysis(ctx context.Context, cfg *config.Config, logger log.Logger, script string, packages []string) (*depgraph.Graph, depgraph.HeuristicResult, error) {
	absScript, err := filepath.Abs(script)
	if err != nil {
		return nil, depgraph.HeuristicResult{}, fmt.Errorf("getting absolute path: %w", err)
	}

	scope := depgraph.Scope{
		RootScript:   absScript,
		SitePackages: cfg.SitePackages,
		Packages:     packages,
	}
	analyzer := depgraph.NewAnalyzer(newClient(cfg), environment(cfg), scope, logger)

	g, err := analyzer.Run(ctx)
	if err != nil {
		return nil, depgraph.HeuristicResult{}, err
	}
	heur := depgraph.GuessProbablePaths(g, logger)
	depgraph.ExpandStubs(g)
	return g, heur, nil
}
