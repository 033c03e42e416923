package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/app"
)

func newSweepCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stored files that no row references",
		Long: "Removes profile images and document files that are not referenced by any row\n" +
			"and are older than files.orphan_grace_period.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("sweep does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				report, err := env.sweeper.Sweep(ctx)
				if err != nil {
					return err
				}
				return printSweepReport(deps, report)
			})
		},
	}
}

func printSweepReport(deps commandDeps, report app.SweepReport) error {
	if deps.globals.JSON {
		return printJSON(deps.out, map[string]any{
			"removed_images":    report.RemovedImages,
			"removed_documents": report.RemovedDocuments,
		})
	}
	if deps.globals.Quiet {
		return nil
	}
	for _, path := range report.RemovedImages {
		if _, err := fmt.Fprintf(deps.out, "removed image %s\n", path); err != nil {
			return err
		}
	}
	for _, path := range report.RemovedDocuments {
		if _, err := fmt.Fprintf(deps.out, "removed document %s\n", path); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(deps.out, "sweep: %d images, %d documents removed\n",
		len(report.RemovedImages), len(report.RemovedDocuments))
	return err
}
