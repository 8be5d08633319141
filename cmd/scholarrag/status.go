package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dshills/scholarrag/internal/storage"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(context.Background(), false, func(ctx context.Context, a *app) error {
			status, err := a.store.GetStatus(ctx)
			if err != nil {
				return err
			}
			if statusJSON {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Printf("Documents:   %d\n", status.Documents)
			cmd.Printf("Sections:    %d\n", status.Sections)
			cmd.Printf("Chunks:      %d\n", status.Chunks)
			cmd.Printf("Embeddings:  %d (dimension %d)\n", status.Embeddings, status.Dimension)
			cmd.Printf("Size:        %.2f MB\n", status.SizeMB)
			cmd.Printf("Embedder:    %s / %s\n", a.embedder.Provider(), a.embedder.Model())
			cmd.Printf("Build:       %s (%s, vector extension %v)\n",
				storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)
			cmd.Printf("Lexical:     %v\n", status.Health.LexicalIndexBuilt)
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
