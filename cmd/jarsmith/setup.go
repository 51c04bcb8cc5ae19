package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jarsmith/internal/config"
	"jarsmith/internal/pipeline"
	"jarsmith/internal/transform"
)

func setupCmd() *cobra.Command {
	var (
		configPath  string
		refresh     bool
		dumpRenames bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Run the jar pipeline",
		Long: `Run every stale stage of the pipeline described by a YAML file.

Examples:
  jarsmith setup -c pipeline.yaml            # Run stale stages only
  jarsmith setup -c pipeline.yaml --refresh  # Rebuild every artifact`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			opts := pipeline.BuildOptions{Logger: logger}
			if dumpRenames {
				opts.Hook = &transform.SpewHook{W: cmd.ErrOrStderr()}
			}

			p, err := pipeline.Build(cfg, opts)
			if err != nil {
				return err
			}

			report, err := p.Run(cmd.Context(), refresh)
			if report != nil {
				printReport(cmd, report)
			}

			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), p.Output().Path)

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "Pipeline configuration file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Treat every stage as stale")
	cmd.Flags().BoolVar(&dumpRenames, "dump-renames", false, "Dump every applied rename to stderr")

	return cmd
}

func printReport(cmd *cobra.Command, report *pipeline.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tSTATUS\tREASON\tTOOK")

	for _, s := range report.Stages {
		status := "up to date"
		switch {
		case s.Ran:
			status = "ran"
		case s.Scheduled:
			status = "not run"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Stage, status, s.Reason, s.Duration.Round(time.Millisecond))
	}

	w.Flush()
}
