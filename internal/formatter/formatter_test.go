package formatter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/jamsync/internal/sync"
)

func sampleTracks() []sync.TrackEntry {
	return []sync.TrackEntry{
		{Title: "Song A", Artist: "Band One", Replica: "alice", At: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)},
		{Title: "Song B", Artist: "Band Two", Replica: "bob", At: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)},
		{Title: "Song C", Artist: "Band Three"},
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV("Heavy Rotation", sampleTracks())
	if err != nil {
		t.Fatalf("ExportToCSV() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse generated CSV: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header + 3 records, got %d rows", len(records))
	}
	if records[0][3] != "Added By" {
		t.Errorf("expected 'Added By' header, got %s", records[0][3])
	}
	if records[1][1] != "Song A" || records[1][3] != "alice" {
		t.Errorf("unexpected first record: %v", records[1])
	}
	if records[3][4] != "" {
		t.Errorf("expected empty timestamp for untimestamped track, got %q", records[3][4])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown("Heavy Rotation", sampleTracks())
	if err != nil {
		t.Fatalf("ExportToMarkdown() error = %v", err)
	}

	text := string(data)
	if !strings.HasPrefix(text, "# Heavy Rotation\n") {
		t.Error("expected playlist name heading")
	}
	if !strings.Contains(text, "**Tracks**: 3") {
		t.Error("expected track count line")
	}
	if !strings.Contains(text, "1. Band One - Song A (alice, 03/05)") {
		t.Errorf("expected attributed track line, got:\n%s", text)
	}
	if !strings.Contains(text, "3. Band Three - Song C\n") {
		t.Errorf("expected bare track line without attribution, got:\n%s", text)
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText("Heavy Rotation", sampleTracks())
	if err != nil {
		t.Fatalf("ExportToText() error = %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Playlist: Heavy Rotation") {
		t.Error("expected playlist header")
	}
	if !strings.Contains(text, "2. Band Two - Song B (bob, 03/03)") {
		t.Errorf("expected numbered track line, got:\n%s", text)
	}
}

func TestFormatSummary(t *testing.T) {
	t.Run("Without Skips", func(t *testing.T) {
		result := &sync.SyncResult{Total: 5, Added: 2, UsersUpdated: 3}
		summary := FormatSummary("rated", "Heavy Rotation", result)

		if !strings.Contains(summary, `Synced "Heavy Rotation" (rated)`) {
			t.Errorf("expected header line, got %q", summary)
		}
		if !strings.Contains(summary, "Merged: 5  Added: 2  Replicas updated: 3") {
			t.Errorf("expected counters line, got %q", summary)
		}
		if strings.Contains(summary, "Skipped") {
			t.Error("expected no skipped line when nothing was skipped")
		}
	})

	t.Run("With Skips", func(t *testing.T) {
		result := &sync.SyncResult{Total: 5, SkippedReads: 1, SkippedWrites: 2}
		summary := FormatSummary("shared", "Shared Jams", result)

		if !strings.Contains(summary, "Skipped: 1 reads, 2 writes") {
			t.Errorf("expected skipped line, got %q", summary)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Writes Requested Format", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.md")

		written, err := WriteExport("Heavy Rotation", sampleTracks(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteExport() error = %v", err)
		}
		if written != path {
			t.Errorf("expected path %s, got %s", path, written)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "# Heavy Rotation") {
			t.Error("expected markdown content")
		}
	})

	t.Run("Derives Filename From Playlist Name", func(t *testing.T) {
		dir := t.TempDir()
		cwd, _ := os.Getwd()
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("failed to enter temp dir: %v", err)
		}
		defer os.Chdir(cwd)

		written, err := WriteExport("Heavy Rotation!", sampleTracks(), FormatCSV, "")
		if err != nil {
			t.Fatalf("WriteExport() error = %v", err)
		}
		if written != "heavy_rotation.csv" {
			t.Errorf("expected derived filename 'heavy_rotation.csv', got %s", written)
		}
		if _, err := os.Stat(written); err != nil {
			t.Errorf("expected file to exist: %v", err)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := WriteExport("X", nil, "yaml", ""); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Heavy Rotation", "heavy_rotation"},
		{"Staff Picks 2025", "staff_picks_2025"},
		{"  spaced  out  ", "spaced_out"},
		{"UPPER", "upper"},
	}

	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
