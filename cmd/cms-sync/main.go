package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cmssync "github.com/goliatone/go-cms-sync"
	"github.com/goliatone/go-cms-sync/internal/commands/synccmd"
	"github.com/goliatone/go-cms-sync/internal/di"
	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

var moduleBuilder = func(cfg cmssync.Config) (*di.Container, error) {
	return di.NewContainer(cfg)
}

type rootOptions struct {
	configPath string
	dryRun     bool
	logLevel   string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cms-sync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "cms-sync",
		Short: "Migrate a legacy content tree into a remote content API",
		Long: `cms-sync replays legacy items onto a remote content tree.

Each legacy item is matched to a destination path through the mapping table,
the destination item is located (and optionally created together with its
missing ancestors) and the item's fields are written in batches.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML configuration file")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Run against an in-memory remote instead of the content API")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Minimum log level (enables logging)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable logging at the configured level")

	root.AddCommand(newSyncCommand(opts), newChildrenCommand(opts), newMappingsCommand(opts))
	return root
}

func loadConfig(opts *rootOptions) (cmssync.Config, error) {
	var cfg cmssync.Config
	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := cmssync.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	} else {
		cfg = cmssync.DefaultConfig()
		cfg.ApplyEnv(os.LookupEnv)
	}
	if opts.dryRun {
		cfg.Features.DryRun = true
	}
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		cfg.Features.Logger = true
		cfg.Logging.Level = level
	}
	if opts.verbose {
		cfg.Features.Logger = true
	}
	return cfg, nil
}

func buildContainer(opts *rootOptions) (*di.Container, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	container, err := moduleBuilder(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return container, nil
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var (
		msg      synccmd.SyncCommand
		asJSON   bool
		showPass bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync legacy items to their mapped destinations",
		Long: `Sync loads the mapping table and the legacy items below --root, then
processes them parents first in batches. Per-item failures are reported and
never stop the run; Ctrl-C stops after the current batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer container.Close()

			var report interfaces.SyncReport
			handler := container.SyncHandler(func(r interfaces.SyncReport) { report = r })
			execErr := handler.Execute(cmd.Context(), msg)

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				writeReport(out, report, showPass)
			}
			return execErr
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&msg.RootPath, "root", "", "Only sync legacy items at or below this path")
	flags.BoolVar(&msg.CreateMissing, "create-missing", false, "Create missing destination items and their ancestors")
	flags.BoolVar(&msg.SyncComponents, "components", false, "Mirror rich-text datasources under each destination item")
	flags.StringVar(&msg.RunName, "run-name", "", "Label for the stored run report")
	flags.BoolVar(&msg.FailOnItemErrors, "fail-on-errors", false, "Exit non-zero when any item fails")
	flags.BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	flags.BoolVar(&showPass, "show-success", false, "List successful items as well as failures")
	return cmd
}

func newChildrenCommand(opts *rootOptions) *cobra.Command {
	var listOpts interfaces.ListOptions
	cmd := &cobra.Command{
		Use:   "children <path>",
		Short: "List the children of a remote item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer container.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTEMPLATE\tPATH")
			count := 0
			for node, err := range container.RemoteClient().ListChildren(cmd.Context(), args[0], listOpts) {
				if err != nil {
					w.Flush()
					return fmt.Errorf("list children of %s: %w", args[0], err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", node.ID, node.Name, node.TemplateID, node.Path)
				count++
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d children\n", count)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&listOpts.PageSize, "page-size", 0, "Children fetched per request (defaults to the remote page size)")
	flags.StringSliceVar(&listOpts.IncludeTemplateIDs, "include-template", nil, "Only list children built from these templates")
	flags.StringSliceVar(&listOpts.ExcludeTemplateIDs, "exclude-template", nil, "Skip children built from these templates")
	return cmd
}

func newMappingsCommand(opts *rootOptions) *cobra.Command {
	mappings := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect the mapping table",
	}

	var msg synccmd.ValidateMappingsCommand
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load the mapping table and report blank and duplicate rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer container.Close()

			var stats mapping.BuildStats
			handler := container.ValidateMappingsHandler(func(s mapping.BuildStats) { stats = s })
			execErr := handler.Execute(cmd.Context(), msg)
			if execErr != nil && stats.Input == 0 {
				return execErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows: %d kept: %d blank: %d duplicates: %d\n", stats.Input, stats.Kept, stats.Blank, stats.Duplicates)
			for _, source := range stats.DuplicateSources {
				fmt.Fprintf(out, "  duplicate: %s\n", source)
			}
			return execErr
		},
	}
	validate.Flags().BoolVar(&msg.Strict, "strict", false, "Fail when rows are blank or duplicated")
	mappings.AddCommand(validate)
	return mappings
}

func writeReport(out io.Writer, report interfaces.SyncReport, showPass bool) {
	for _, result := range report.Results {
		if result.Success && !showPass {
			continue
		}
		status := "FAIL"
		if result.Success {
			status = "ok"
		}
		fmt.Fprintf(out, "%-4s %s -> %s: %s\n", status, result.SourcePath, result.TargetPath, result.Message)
		for _, detail := range result.Errors {
			fmt.Fprintf(out, "       %s\n", detail)
		}
	}
	if report.RunKey != "" {
		fmt.Fprintf(out, "run: %s\n", report.RunKey)
	}
	fmt.Fprintf(out, "total: %d succeeded: %d failed: %d\n", report.Summary.Total, report.Summary.Succeeded, report.Summary.Failed)
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
