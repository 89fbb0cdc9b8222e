package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pg-guard/internal/checker"
	"pg-guard/internal/checks"
	"pg-guard/internal/config"
	"pg-guard/internal/model"
	"pg-guard/internal/reporter"
)

var (
	configPath  string
	reportFmt   string
	allowUnsafe bool
)

var rootCmd = &cobra.Command{
	Use:   "pg-guard",
	Short: "A migration safety checker for PostgreSQL",
	Long: `pg-guard scans schema migration SQL for operations that are unsafe to
run against a live production database: statements that take long-held
locks, rewrite whole tables, or break running application instances.

Each finding explains the problem and shows a safe multi-step alternative.`,
	SilenceUsage: true,
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check migration files for unsafe operations",
	Long: `Check a single .sql file or a migrations directory.

A directory is expected to hold one subdirectory per migration containing
up.sql and optionally down.sql; loose .sql files are checked as well.
Exits nonzero when unsafe operations are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "migrations"
		if len(args) > 0 {
			path = args[0]
		}
		return runCheck(cmd.Context(), path)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List all available checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Operation", "Description"})
		for _, def := range checks.Definitions() {
			t.AppendRow(table.Row{def.Name, def.Operation, def.Description})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default pg-guard.yaml to the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.ConfigFileName); err == nil {
			return fmt.Errorf("%s already exists", config.ConfigFileName)
		}
		if err := os.WriteFile(config.ConfigFileName, []byte(config.DefaultYAML), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", config.ConfigFileName, err)
		}
		fmt.Printf("Wrote %s\n", config.ConfigFileName)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./pg-guard.yaml)")
	checkCmd.Flags().StringVarP(&reportFmt, "format", "f", "text", "Output format (text, json)")
	checkCmd.Flags().BoolVar(&allowUnsafe, "allow-unsafe", false, "Report violations but exit zero")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCheck(ctx context.Context, path string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	results, err := checker.New(cfg).CheckPath(ctx, path)
	if err != nil {
		return err
	}

	var rpt model.Reporter
	switch reportFmt {
	case "json":
		rpt = reporter.NewJSONReporter()
	case "text":
		rpt = reporter.NewConsoleReporter()
	default:
		return fmt.Errorf("unknown format %q (expected text or json)", reportFmt)
	}

	if err := rpt.Report(results); err != nil {
		return fmt.Errorf("reporting failed: %w", err)
	}

	unsafe := false
	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("%d file(s) could not be checked", countErrors(results))
		}
		if len(res.Violations) > 0 {
			unsafe = true
		}
	}
	if unsafe && !allowUnsafe {
		// Reported above; a bare error keeps the exit code nonzero without
		// repeating the details.
		return fmt.Errorf("unsafe migration operations found")
	}
	return nil
}

func countErrors(results []model.FileResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
