package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/scholarrag/internal/indexer"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.docx>",
	Short: "Ingest a compiled .docx of research abstracts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.EqualFold(filepath.Ext(path), indexer.SourceExt) {
			return fmt.Errorf("%s: expected a %s file", path, indexer.SourceExt)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		return run(ctx, false, func(ctx context.Context, a *app) error {
			stats, err := a.indexer.IndexDocx(ctx, filepath.Base(path), raw)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}

			if ingestJSON {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Printf("%s: %d entries, %d indexed (%d replaced), %d failed, %d chunks in %s\n",
				stats.Filename, stats.Entries, stats.Indexed, stats.Replaced, stats.Failed,
				stats.ChunksCreated, stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				cmd.Printf("  error: %s\n", msg)
			}
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the batch result as JSON")
	rootCmd.AddCommand(ingestCmd)
}
