package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/ticketwatch/internal/config"
	"github.com/nao1215/ticketwatch/internal/crawler"
	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/store"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Use != "crawl [start-url]" {
		t.Errorf("expected use 'crawl [start-url]', got %q", cmd.Use)
	}

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "mode", defValue: ""},
		{name: "persistence", defValue: ""},
		{name: "file", shorthand: "f", defValue: ""},
		{name: "max-pages", shorthand: "p", defValue: "50"},
		{name: "delay", defValue: "1s"},
		{name: "timeout", shorthand: "t", defValue: "30s"},
		{name: "retries", defValue: "3"},
		{name: "no-history", defValue: "false"},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "markdown", shorthand: "m", defValue: "false"},
		{name: "output", shorthand: "o", defValue: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestRunCrawlCmd tests crawling a listing through the command line.
func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	t.Run("crawls every page and overwrites the records file", func(t *testing.T) {
		t.Parallel()

		server, hits := newListingServer(t)
		dir := t.TempDir()
		recordsPath := filepath.Join(dir, "data", "play_titles.json")
		args := append(isolatedArgs(t, dir), "crawl", server.URL+"/bilete-teatru/",
			"-f", recordsPath, "--delay", "0", "--no-history")

		for range 2 {
			stdout, _, err := executeCommand(t, args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(stdout, "CRAWL SUMMARY") || !strings.Contains(stdout, "Records:      3") {
				t.Errorf("expected summary with 3 records, got %q", stdout)
			}
		}
		if got := hits.Load(); got != 4 {
			t.Errorf("expected 4 requests over two crawls, got %d", got)
		}

		batches, err := store.ReadBatches(recordsPath)
		if err != nil {
			t.Fatalf("failed to read records: %v", err)
		}
		if len(batches) != 1 {
			t.Fatalf("expected 1 batch after overwrite, got %d", len(batches))
		}
		titles := make([]string, 0, len(batches[0].Records))
		for _, r := range batches[0].Records {
			titles = append(titles, r.Title)
		}
		if strings.Join(titles, ",") != "Hamlet,National Theatre,Faust" {
			t.Errorf("expected records in page order, got %v", titles)
		}
		if batches[0].Records[0].Link != server.URL+"/event/0" {
			t.Errorf("expected absolute link, got %q", batches[0].Records[0].Link)
		}
	})

	t.Run("append mode keeps one batch per crawl", func(t *testing.T) {
		t.Parallel()

		server, _ := newListingServer(t)
		dir := t.TempDir()
		recordsPath := filepath.Join(dir, "play_titles.json")
		args := append(isolatedArgs(t, dir), "crawl", server.URL+"/bilete-teatru/",
			"-f", recordsPath, "--delay", "0", "--no-history", "--persistence", "append")

		for range 2 {
			if _, _, err := executeCommand(t, args...); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		batches, err := store.ReadBatches(recordsPath)
		if err != nil {
			t.Fatalf("failed to read records: %v", err)
		}
		if len(batches) != 2 {
			t.Fatalf("expected 2 batches, got %d", len(batches))
		}
		for i, b := range batches {
			if _, ok := b.Time(); !ok {
				t.Errorf("expected batch %d to carry a timestamp, got %q", i, b.Timestamp)
			}
		}
	})

	t.Run("site config selects alternating mode", func(t *testing.T) {
		t.Parallel()

		server, _ := newListingServer(t)
		dir := t.TempDir()
		host := strings.TrimPrefix(server.URL, "http://")
		configPath := writeFile(t, dir, "site.yaml", "sites:\n  \""+host+"\":\n    mode: alternating\n")
		recordsPath := filepath.Join(dir, "play_titles.json")

		stdout, _, err := executeCommand(t, "-c", configPath, "--env-file", filepath.Join(dir, "none.env"),
			"crawl", server.URL+"/bilete-teatru/", "-f", recordsPath, "--delay", "0", "--no-history", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var summary struct {
			Result struct {
				Mode    string         `json:"mode"`
				Records []model.Record `json:"records"`
			} `json:"result"`
		}
		if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
			t.Fatalf("expected JSON summary, got %v: %q", err, stdout)
		}
		if summary.Result.Mode != "alternating" {
			t.Errorf("expected alternating mode, got %q", summary.Result.Mode)
		}
		// Pairs are formed per page: Faust is alone on page 2 and dropped.
		if len(summary.Result.Records) != 1 {
			t.Fatalf("expected 1 record, got %+v", summary.Result.Records)
		}
		if summary.Result.Records[0].Title != "Hamlet" || summary.Result.Records[0].Location != "National Theatre" {
			t.Errorf("expected National Theatre as location, got %+v", summary.Result.Records[0])
		}
	})

	t.Run("flag wins over site config", func(t *testing.T) {
		t.Parallel()

		server, _ := newListingServer(t)
		dir := t.TempDir()
		configPath := writeFile(t, dir, "site.yaml", "defaults:\n  mode: alternating\n  maxPages: 1\n")

		stdout, _, err := executeCommand(t, "-c", configPath, "--env-file", filepath.Join(dir, "none.env"),
			"crawl", server.URL+"/bilete-teatru/", "-f", filepath.Join(dir, "out.json"),
			"--delay", "0", "--no-history", "--mode", "link", "--max-pages", "5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Mode:         link") || !strings.Contains(stdout, "Pages:        2") {
			t.Errorf("expected link mode over two pages, got %q", stdout)
		}
	})

	t.Run("page limit truncates the crawl", func(t *testing.T) {
		t.Parallel()

		server, hits := newListingServer(t)
		dir := t.TempDir()
		args := append(isolatedArgs(t, dir), "crawl", server.URL+"/bilete-teatru/",
			"-f", filepath.Join(dir, "out.json"), "--delay", "0", "--no-history", "-p", "1")

		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request, got %d", hits.Load())
		}
		if !strings.Contains(stdout, "Stopped at page limit") {
			t.Errorf("expected truncated status, got %q", stdout)
		}
	})

	t.Run("records the crawl in the history database", func(t *testing.T) {
		t.Parallel()

		server, _ := newListingServer(t)
		dir := t.TempDir()
		dbDir := filepath.Join(dir, "db")
		args := append(isolatedArgs(t, dir), "crawl", server.URL+"/bilete-teatru/",
			"-f", filepath.Join(dir, "out.json"), "--delay", "0", "--db-dir", dbDir)

		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "History ID:   1") {
			t.Errorf("expected history id in summary, got %q", stdout)
		}

		db, err := database.Open(dbDir, database.Options{})
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(t.Context(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].RecordCount != 3 || runs[0].Pages != 2 {
			t.Errorf("expected one run with 3 records over 2 pages, got %+v", runs)
		}
	})

	t.Run("fetch failure leaves the records file untouched", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer server.Close()

		dir := t.TempDir()
		recordsPath := writeFile(t, dir, "play_titles.json", "[]\n")
		args := append(isolatedArgs(t, dir), "crawl", server.URL+"/bilete-teatru/",
			"-f", recordsPath, "--delay", "0", "--no-history", "--retries", "1")

		_, _, err := executeCommand(t, args...)
		if !errors.Is(err, crawler.ErrFetch) {
			t.Fatalf("expected ErrFetch, got %v", err)
		}

		batches, err := store.ReadBatches(recordsPath)
		if err != nil {
			t.Fatalf("failed to read records: %v", err)
		}
		if len(batches) != 1 || len(batches[0].Records) != 0 {
			t.Errorf("expected the previous empty batch, got %+v", batches)
		}
	})

	t.Run("invalid flags are rejected", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		tests := []struct {
			name    string
			args    []string
			wantErr error
		}{
			{name: "unknown mode", args: []string{"--mode", "zigzag"}, wantErr: model.ErrUnknownMode},
			{name: "unknown persistence", args: []string{"--persistence", "merge"}, wantErr: model.ErrUnknownMode},
			{name: "zero retries", args: []string{"--retries", "0"}, wantErr: config.ErrInvalidAttempts},
			{name: "conflicting formats", args: []string{"--json", "--markdown"}, wantErr: config.ErrConflictingReportFormats},
		}

		for _, tt := range tests {
			args := append(isolatedArgs(t, dir), "crawl", "-f", filepath.Join(dir, "out.json"))
			args = append(args, tt.args...)
			_, _, err := executeCommand(t, args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.wantErr, err)
			}
		}
	})

	t.Run("invalid start URL", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		args := append(isolatedArgs(t, dir), "crawl", "ftp://example.com/", "-f", filepath.Join(dir, "out.json"), "--no-history")
		_, _, err := executeCommand(t, args...)
		if !errors.Is(err, crawler.ErrInvalidStartURL) {
			t.Errorf("expected ErrInvalidStartURL, got %v", err)
		}
	})
}

// TestNewParser tests how site settings map to parser options.
func TestNewParser(t *testing.T) {
	t.Parallel()

	page := `<div class="event-item"><div class="text"><a href="/e/1">Faust</a><a href="/b/1">ia bilet</a></div></div>`

	tests := []struct {
		name     string
		sentinel string
		want     int
	}{
		{name: "default sentinel", sentinel: "", want: 1},
		{name: "sentinel disabled", sentinel: config.NoSentinel, want: 2},
		{name: "custom sentinel", sentinel: "Faust", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			p := newParser(cfg, config.SiteConfig{Sentinel: tt.sentinel})
			result, err := p.Parse(strings.NewReader(page), "https://m.iabilet.ro/bilete-teatru/")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Records) != tt.want {
				t.Errorf("expected %d records, got %+v", tt.want, result.Records)
			}
		})
	}
}
