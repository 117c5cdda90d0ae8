package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "speedboat"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand(version, programName, app.DefaultRunParams(), args).ExecuteContext(ctx)
}

func newRootCommand(version, programName string, params app.RunParams, args []string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Speedboat document deduplication",
		Long:    "Deduplicates documents gathered from repositories, the web and local files, and serves the results over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunWithDeps(cmd.Context(), params, cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.PersistentFlags())

	dedupCmd := &cobra.Command{
		Use:   "dedup",
		Short: "Deduplicate a document file and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString(app.FlagInput)
			return app.RunDedup(cmd.Context(), params, cmd.Flags(), input)
		},
	}
	app.RegisterDedupFlags(dedupCmd.Flags())

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Deduplicate documents and store the canonical ones in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString(app.FlagInput)
			dir, _ := cmd.Flags().GetString(app.FlagDir)
			return app.RunIngest(cmd.Context(), params, cmd.Flags(), input, dir)
		},
	}
	app.RegisterIngestFlags(ingestCmd.Flags())

	rootCmd.AddCommand(dedupCmd, ingestCmd)
	rootCmd.SetArgs(args)
	return rootCmd
}
