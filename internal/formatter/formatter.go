// package formatter renders merged playlists and sync summaries to various
// formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/jamsync/internal/shared"
	"github.com/desertthunder/jamsync/internal/sync"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ExportToCSV converts a track list to CSV with columns: Position, Title, Artist, Added By, At
func ExportToCSV(playlist string, tracks []sync.TrackEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Added By", "At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		at := ""
		if !track.At.IsZero() {
			at = track.At.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Replica,
			at,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a track list to Markdown
func ExportToMarkdown(playlist string, tracks []sync.TrackEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, trackLine(track)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a track list to plain text
func ExportToText(playlist string, tracks []sync.TrackEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, trackLine(track)))
	}

	return buf.Bytes(), nil
}

// trackLine renders one track as "Artist - Title (replica, MM/DD)" with the
// attribution suffix dropped when nothing is known.
func trackLine(track sync.TrackEntry) string {
	line := fmt.Sprintf("%s - %s", track.Artist, track.Title)

	var meta []string
	if track.Replica != "" {
		meta = append(meta, track.Replica)
	}
	if date := shared.FormatShortDate(track.At); date != "" {
		meta = append(meta, date)
	}
	if len(meta) > 0 {
		line = fmt.Sprintf("%s (%s)", line, strings.Join(meta, ", "))
	}

	return line
}

// FormatSummary renders a one-paragraph sync outcome for terminal display.
func FormatSummary(policy, playlist string, result *sync.SyncResult) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Synced %q (%s)\n", playlist, policy))
	buf.WriteString(fmt.Sprintf("  Merged: %d  Added: %d  Replicas updated: %d\n", result.Total, result.Added, result.UsersUpdated))

	if result.SkippedReads > 0 || result.SkippedWrites > 0 {
		buf.WriteString(fmt.Sprintf("  Skipped: %d reads, %d writes\n", result.SkippedReads, result.SkippedWrites))
	}

	return buf.String()
}

// WriteExport renders a track list in the given format and writes it to path.
//
// An empty path derives a filename from the playlist name. Returns the path
// actually written.
func WriteExport(playlist string, tracks []sync.TrackEntry, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(playlist, tracks)
		ext = ".csv"
	case FormatMarkdown:
		data, err = ExportToMarkdown(playlist, tracks)
		ext = ".md"
	case FormatText, "":
		data, err = ExportToText(playlist, tracks)
		ext = ".txt"
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = slugify(playlist) + ext
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// slugify lowercases a playlist name and replaces runs of non-alphanumerics
// with single underscores.
func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
