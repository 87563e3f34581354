package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/libroai/libro/internal/app"
	"github.com/libroai/libro/internal/config"
	"github.com/libroai/libro/internal/document"
)

func newIngestCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a book from a text file",
		Long: `Ingest reads a text file, chunks it, embeds the chunks, and indexes
them in the vector store so chat can ground answers in the book.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), args[0], title)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	return cmd
}

func runIngest(ctx context.Context, path, title string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close() //nolint:errcheck

	doc, err := a.Ingestor.Ingest(ctx, title, string(content), document.SourceFullText)
	if err != nil {
		if doc != nil {
			return fmt.Errorf("document %s stored but indexing failed: %w", doc.ID, err)
		}
		return fmt.Errorf("ingesting document: %w", err)
	}

	fmt.Printf("Indexed %q as %s\n", doc.Title, doc.ID)
	return nil
}
