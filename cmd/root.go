// Package cmd implements the libro command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/libroai/libro/internal/log"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "libro",
	Short: "Libro - a conversational companion for books",
	Long: `Libro answers questions about ingested books using retrieval-augmented
generation: book text is chunked, embedded, and indexed in a vector store,
and every answer is grounded in the retrieved passages.

Run "libro serve" to start the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// A missing .env is fine; environment variables may come from anywhere.
		_ = godotenv.Load()
		slog.SetDefault(initLogger())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level, JSON: true})
}
