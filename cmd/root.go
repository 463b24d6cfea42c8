// Package cmd contains the sabio command-line entry points.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sabio-ai/sabio/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "sabio",
	Short: "sabio - RAG backend for a hosted knowledge box",
	Long: `sabio fronts a hosted knowledge-box search service: it answers
questions from indexed documents, annotates every answer with its
sources, and proxies file downloads without exposing the service
credential.

Run "sabio serve" to start the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Local development reads secrets from a .env file; in deployment
	// the environment is already populated and the file is absent.
	_ = godotenv.Load()

	slog.SetDefault(newLogger())
	return rootCmd.Execute()
}

// newLogger builds the process-wide logger. DEBUG in the environment
// (any value) lowers the level; logs go to stderr.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: os.Getenv("SABIO_LOG_JSON") != ""})
}
