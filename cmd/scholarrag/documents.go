package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	listOffset int
	listLimit  int
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List, show and delete indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(context.Background(), false, func(ctx context.Context, a *app) error {
			docs, total, err := a.indexer.ListDocuments(ctx, listOffset, listLimit)
			if err != nil {
				return err
			}
			for _, d := range docs {
				year := "n.d."
				if d.Year > 0 {
					year = strconv.Itoa(d.Year)
				}
				cmd.Printf("%6d  %-6s  %s\n", d.ID, year, d.Title)
			}
			cmd.Printf("%d of %d documents\n", len(docs), total)
			return nil
		})
	},
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return run(context.Background(), false, func(ctx context.Context, a *app) error {
			doc, err := a.indexer.Document(ctx, id)
			if err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		})
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document with its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// deleteCmd is the top-level shorthand for "documents delete"
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document with its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return run(context.Background(), false, func(ctx context.Context, a *app) error {
		if err := a.indexer.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("document %d: %w", id, err)
		}
		cmd.Printf("deleted document %d\n", id)
		return nil
	})
}

func init() {
	documentsListCmd.Flags().IntVar(&listOffset, "offset", 0, "number of documents to skip")
	documentsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of documents")
	documentsCmd.AddCommand(documentsListCmd, documentsShowCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd, deleteCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}
