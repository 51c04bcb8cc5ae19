package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarsmith/internal/config"
	"jarsmith/internal/diagnostic"
	"jarsmith/internal/mapping"
	"jarsmith/internal/merge"
	"jarsmith/internal/pipeline"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Build and edit mapping trees",
		Long: `Build and edit tiny v2 mapping trees.

Examples:
  jarsmith mappings build -c pipeline.yaml -o mappings.tiny
  jarsmith mappings merge base.tiny srg.tsrg --from official --to srg -o out.tiny
  jarsmith mappings inherit out.tiny --to named -o out.tiny
  jarsmith mappings reorder out.tiny --src intermediary --dst named -o by-intermediary.tiny`,
	}

	cmd.AddCommand(mappingsBuildCmd(), mappingsMergeCmd(), mappingsInheritCmd(), mappingsReorderCmd())

	return cmd
}

func mappingsBuildCmd() *cobra.Command {
	var configPath, output string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the mapping tree of a pipeline configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			tree, diags, err := pipeline.BuildTree(cfg.Mappings, logger)
			if err != nil {
				return err
			}

			reportDiagnostics(diags)

			return mapping.WriteFile(tree, output)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "Pipeline configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "mappings.tiny", "Output tiny file")

	return cmd
}

func mappingsMergeCmd() *cobra.Command {
	var (
		m      config.Merge
		output string
	)

	cmd := &cobra.Command{
		Use:   "merge <primary.tiny> <document>",
		Short: "Join a secondary mapping document onto a tree as a new namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, err := mapping.LoadFile(args[0])
			if err != nil {
				return err
			}

			m.File = args[1]
			if m.Format == "" {
				m.Format = config.FormatOf(m.File)
			}

			doc, err := pipeline.LoadDocument(m)
			if err != nil {
				return err
			}

			tree, diags, err := merge.MergeNamespace(primary, doc, merge.Options{
				JoinNamespace:               m.From,
				TargetNamespace:             m.To,
				JoinKey:                     pipeline.JoinKey(m.JoinKey),
				TryMatchRegardlessOfRenames: m.Fallback != "",
				FallbackNamespace:           m.Fallback,
				Lenient:                     m.Lenient,
				Overwrite:                   m.Overwrite,
				Logger:                      logger,
			})
			if err != nil {
				return err
			}

			reportDiagnostics(diags)

			return mapping.WriteFile(tree, output)
		},
	}

	cmd.Flags().StringVar(&m.From, "from", "", "Namespace the document's source names are in")
	cmd.Flags().StringVar(&m.To, "to", "", "Namespace to add")
	cmd.Flags().StringVar(&m.Format, "format", "", "Document format: tiny, tsrg or csv (default from extension)")
	cmd.Flags().StringVar(&m.Fallback, "fallback", "", "Match renamed methods through this namespace")
	cmd.Flags().StringVar(&m.JoinKey, "join-key", config.JoinExact, "Join key: exact, ignore_field_desc or member_name")
	cmd.Flags().BoolVar(&m.Lenient, "lenient", false, "Drop unmatched records with a warning")
	cmd.Flags().BoolVar(&m.Overwrite, "overwrite", false, "Replace names already present in the target namespace")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output tiny file")

	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func mappingsInheritCmd() *cobra.Command {
	var from, to, output string

	cmd := &cobra.Command{
		Use:   "inherit <tree.tiny>",
		Short: "Name unmapped inner classes after their enclosing class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := mapping.LoadFile(args[0])
			if err != nil {
				return err
			}

			if from == "" {
				from = tree.SrcNamespace()
			}

			n, err := merge.InheritInnerClassNames(tree, from, to)
			if err != nil {
				return err
			}

			logger.Info("inherited inner class names", zap.String("namespace", to), zap.Int("classes", n))

			if output == "" {
				output = args[0]
			}

			return mapping.WriteFile(tree, output)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Namespace to compare against (default: source namespace)")
	cmd.Flags().StringVar(&to, "to", "", "Namespace to fill in")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output tiny file (default: overwrite input)")

	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func mappingsReorderCmd() *cobra.Command {
	var (
		src    string
		dst    []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "reorder <tree.tiny>",
		Short: "Rewrite a tree keyed by another namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := mapping.LoadFile(args[0])
			if err != nil {
				return err
			}

			if len(dst) == 0 {
				for _, ns := range tree.Namespaces() {
					if ns != src {
						dst = append(dst, ns)
					}
				}
			}

			out, err := tree.Reorder(src, dst...)
			if err != nil {
				return err
			}

			return mapping.WriteFile(out, output)
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "New source namespace")
	cmd.Flags().StringSliceVar(&dst, "dst", nil, "Destination namespaces in order (default: all others)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output tiny file")

	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func reportDiagnostics(diags *diagnostic.Diagnostics) {
	for _, w := range diags.Warnings {
		logger.Warn(w.String(), zap.String("code", w.Code))
	}

	if n := len(diags.WithCode(merge.CodeFallbackMatch)); n > 0 {
		logger.Info(fmt.Sprintf("%d records matched through the fallback namespace", n))
	}
}
