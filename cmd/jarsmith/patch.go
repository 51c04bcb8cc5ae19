package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarsmith/internal/jar"
	"jarsmith/internal/patch"
)

func patchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Apply and convert legacy binary patch archives",
	}

	cmd.AddCommand(patchApplyCmd(), patchRepackCmd())

	return cmd
}

func patchApplyCmd() *cobra.Command {
	var side, patches string
	var workers int

	cmd := &cobra.Command{
		Use:   "apply <input.jar> <output.jar>",
		Short: "Apply one side of a legacy patch archive to a jar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := patch.LoadArchive(patches, side)
			if err != nil {
				return err
			}

			stats, err := patch.ApplyJar(cmd.Context(), args[0], args[1], set,
				patch.ApplyOptions{Workers: workers, Logger: logger})
			if err != nil {
				return err
			}

			logger.Info("patched jar",
				zap.String("output", args[1]),
				zap.Int("patched", stats.Patched),
				zap.Int("created", stats.Created))

			return nil
		},
	}

	cmd.Flags().StringVarP(&patches, "patches", "p", "", "Legacy patch archive (.pack.lzma or .zip)")
	cmd.Flags().StringVar(&side, "side", patch.SideClient, "Patch side: client or server")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Classes patched concurrently (default GOMAXPROCS)")

	_ = cmd.MarkFlagRequired("patches")

	return cmd
}

func patchRepackCmd() *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "repack <patches> <output.zip>",
		Short: "Convert one side of a legacy patch archive into a console patcher bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := patch.LoadArchive(args[0], side)
			if err != nil {
				return err
			}

			return jar.WriteAtomic(args[1], func(w io.Writer) error {
				return patch.RepackForConsole(w, set)
			})
		},
	}

	cmd.Flags().StringVar(&side, "side", patch.SideClient, "Patch side: client or server")

	return cmd
}
