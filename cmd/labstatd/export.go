package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danilshahmanov/Infotecs/internal/storage/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export FILE_ID",
	Short: "Write the stored measurements of a file as JSON or Parquet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			fileID := args[0]
			if err := a.exporter.CheckExists(ctx, fileID); err != nil {
				return err
			}

			var w io.Writer = output(cmd)
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			var (
				n   int
				err error
			)
			switch exportFormat {
			case export.FormatJSON:
				n, err = a.exporter.WriteJSON(ctx, fileID, w)
			case export.FormatParquet:
				n, err = a.exporter.WriteParquet(ctx, fileID, w)
			default:
				return fmt.Errorf("unknown format %q", exportFormat)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d rows\n", n)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatJSON, "output format: json or parquet")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout when empty)")
}
