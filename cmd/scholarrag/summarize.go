package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/scholarrag/pkg/types"
)

var (
	summarizeK    int
	summarizeWait time.Duration
	summarizeJSON bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <query>",
	Short: "Generate a cited summary over the passages a query retrieves",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		ctx, stop := signalContext()
		defer stop()

		return run(ctx, true, func(ctx context.Context, a *app) error {
			k := summarizeK
			if k <= 0 {
				k = a.cfg.Retrieval.DefaultK
			}
			key, state, err := a.summarizer.Summarize(ctx, query, k)
			if err != nil {
				return fmt.Errorf("summarize failed: %w", err)
			}

			a.log.Debug("summary requested", "key", key, "state", state)

			// The cache lives in this process, so wait for the result
			wctx, cancel := context.WithTimeout(ctx, summarizeWait)
			defer cancel()
			summary, ok, err := a.summarizer.Wait(wctx, key, 250*time.Millisecond)
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if !ok {
				return fmt.Errorf("summary %s not ready (state %s)", key, a.summarizer.State(key))
			}
			if summarizeJSON {
				data, err := json.MarshalIndent(map[string]interface{}{
					"key":     key,
					"state":   types.SummaryReady,
					"summary": summary,
				}, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Println(summary.SummaryText)
			if len(summary.References) > 0 {
				cmd.Println()
				cmd.Println("References:")
				for _, ref := range summary.References {
					year := "n.d."
					if ref.Year > 0 {
						year = fmt.Sprint(ref.Year)
					}
					cmd.Printf("[%d] %s (%s). %s\n", ref.Index, ref.Authors, year, ref.Title)
				}
			}
			return nil
		})
	},
}

func init() {
	summarizeCmd.Flags().IntVarP(&summarizeK, "k", "k", 0, "number of passages to retrieve (default from config)")
	summarizeCmd.Flags().DurationVar(&summarizeWait, "wait", 3*time.Minute, "how long to wait for generation")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "output the summary as JSON")
	rootCmd.AddCommand(summarizeCmd)
}
