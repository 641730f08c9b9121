package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushapp/rushcast/internal/backend"
	"github.com/rushapp/rushcast/internal/exporter"
	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/snapshot"
)

func tallyCmd(cfgPath *string) *cobra.Command {
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Export the current vote tally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q (use json|csv)", format)
			}
			return withBackends(*cfgPath, func(ctx context.Context, b *backend.Set) error {
				reader := snapshot.NewReader(b.Store, logging.New(os.Stderr, "warn", "text"))
				out, _, err := exporter.Export(ctx, reader, format)
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					_, err = cmd.OutOrStdout().Write(out)
					return err
				}
				return os.WriteFile(outPath, out, 0644)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "export format: json|csv")
	cmd.Flags().StringVar(&outPath, "out", "-", "output path (or - for stdout)")
	return cmd
}
