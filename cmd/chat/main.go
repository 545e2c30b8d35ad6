package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL  string
	natsURL string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the HMO medical services assistant",
	Long: `Talk to the assistant from a terminal.

Available subcommands:
  chat - Start an interactive conversation (default)
  tail - Stream conversation events from NATS`,
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("HMO_API_URL", "http://localhost:3000"), "Base URL of the REST server")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")
	rootCmd.AddCommand(chatCmd, tailCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
