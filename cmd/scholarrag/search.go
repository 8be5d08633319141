package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/scholarrag/pkg/types"
)

var (
	searchK    int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents",
	Long: `Runs hybrid retrieval: semantic similarity over abstract chunks,
boosted for documents that also match the query's keywords.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		ctx, stop := signalContext()
		defer stop()

		return run(ctx, false, func(ctx context.Context, a *app) error {
			k := searchK
			if k <= 0 {
				k = a.cfg.Retrieval.DefaultK
			}
			results, err := a.searcher.Search(ctx, query, k)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if searchJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			printSearchResults(cmd, results)
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of passages to retrieve (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func printSearchResults(cmd *cobra.Command, results []types.DocumentHit) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, r := range results {
		year := "n.d."
		if r.Year > 0 {
			year = fmt.Sprint(r.Year)
		}
		cmd.Printf("[%d] %s (%s) #%d  score %.3f\n", i+1, r.Title, year, r.DocumentID, r.Score)
		for _, s := range r.Snippets {
			cmd.Printf("    %s\n", truncate(s, 160))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
