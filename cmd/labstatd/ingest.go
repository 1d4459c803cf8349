package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
)

var (
	ingestAuthor string
	ingestName   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE",
	Short: "Ingest a measurement file from disk and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			fileID := ingestName
			if fileID == "" {
				fileID = filepath.Base(args[0])
			}

			result, err := a.ingestion.ProcessFile(ctx, ingestion.Request{
				FileID: fileID,
				Author: ingestAuthor,
				Source: f,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(output(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(result.Summary)
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestAuthor, "author", "", "author name stored with the file")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "file id (defaults to the base name of FILE)")
	_ = ingestCmd.MarkFlagRequired("author")
}
