package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/scholarrag/internal/httpapi"
	"github.com/dshills/scholarrag/internal/mcp"
)

var httpAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return run(ctx, true, func(ctx context.Context, a *app) error {
			mcp.ServerVersion = version
			server, err := mcp.NewServer(mcp.Deps{
				Storage:    a.store,
				Indexer:    a.indexer,
				Searcher:   a.searcher,
				Summarizer: a.summarizer,
				Logger:     a.log,
				DefaultK:   a.cfg.Retrieval.DefaultK,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("MCP server ready, listening on stdio", "version", version)
				errCh <- server.Serve(ctx)
			}()

			select {
			case <-ctx.Done():
				a.log.Info("shutting down")
				return nil
			case err := <-errCh:
				return err
			}
		})
	},
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the REST API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return run(ctx, true, func(ctx context.Context, a *app) error {
			addr := a.cfg.HTTP.Addr
			if httpAddr != "" {
				addr = httpAddr
			}
			server := httpapi.NewServer(httpapi.RouterConfig{
				Storage:    a.store,
				Indexer:    a.indexer,
				Searcher:   a.searcher,
				Summarizer: a.summarizer,
				Logger:     a.log,
				DefaultK:   a.cfg.Retrieval.DefaultK,
			})
			return server.Run(ctx, addr)
		})
	},
}

func init() {
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd, httpCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
