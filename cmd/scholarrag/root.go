package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logMode    string
)

var rootCmd = &cobra.Command{
	Use:   "scholarrag",
	Short: "Search and summarize a research-document collection",
	Long: `scholarrag ingests compiled research abstracts from .docx files,
indexes them for hybrid semantic and keyword search, and produces cited
summaries over the passages a query retrieves.

Run "scholarrag serve" to expose the tools over MCP stdio or
"scholarrag http" for the REST API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode: dev or prod (overrides config)")
}
