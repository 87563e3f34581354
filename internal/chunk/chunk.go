// Package chunk splits document content into retrieval-sized pieces.
//
// The splitter prefers cutting at sentence endings, then at paragraph breaks,
// and falls back to a hard cut at the target size. Boundaries are searched
// within a bounded window past the target so chunk sizes stay predictable.
package chunk

import "strings"

const (
	// DefaultTargetSize is the default chunk target size in characters.
	DefaultTargetSize = 1000

	// boundaryWindow is how far past the target size the splitter scans
	// for a sentence ending or paragraph break.
	boundaryWindow = 200
)

// Piece is a single chunk of a document, ordered by position.
type Piece struct {
	Order int
	Text  string
}

// Split divides content into pieces of roughly targetSize characters.
// Cuts land just after a sentence ending ('.', '!', '?') when one occurs
// within the boundary window, otherwise just after a paragraph break,
// otherwise exactly at targetSize. Pieces are trimmed of surrounding
// whitespace; empty pieces are dropped and do not consume an order slot.
// Sizes are measured in Unicode code points so multibyte text never gets
// cut mid-character.
func Split(content string, targetSize int) []Piece {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	runes := []rune(content)
	var pieces []Piece
	start := 0
	order := 0

	for start < len(runes) {
		end := start + targetSize

		if end < len(runes) {
			end = findBoundary(runes, end)
		} else {
			end = len(runes)
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			pieces = append(pieces, Piece{Order: order, Text: text})
			order++
		}

		start = end
	}

	return pieces
}

// findBoundary returns the cut position at or after end, preferring a
// sentence ending within the window, then a paragraph break, then end itself.
func findBoundary(runes []rune, end int) int {
	limit := end + boundaryWindow
	if limit > len(runes) {
		limit = len(runes)
	}

	for i := end; i < limit; i++ {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}

	for i := end; i < limit; i++ {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}

	return end
}
