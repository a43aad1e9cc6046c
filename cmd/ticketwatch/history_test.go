package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
)

// seedHistory stores two crawl runs in a database under dir.
func seedHistory(t *testing.T, dir string) {
	t.Helper()

	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*database.Run{
		{
			StartURL: "https://m.iabilet.ro/bilete-teatru/", Mode: model.LinkMode, Persistence: model.Overwrite,
			Pages: 2, StartedAt: started, FinishedAt: started.Add(time.Minute),
			Records: []model.Record{{Title: "Hamlet", Link: "https://m.iabilet.ro/event/1"}, {Title: "Faust", Link: "https://m.iabilet.ro/event/2"}},
		},
		{
			StartURL: "https://m.iabilet.ro/bilete-teatru/", Mode: model.LinkMode, Persistence: model.Overwrite,
			Pages: 50, Truncated: true, StartedAt: started.Add(24 * time.Hour), FinishedAt: started.Add(25 * time.Hour),
			Records: []model.Record{{Title: "Hamlet", Link: "https://m.iabilet.ro/event/1"}},
		},
	}
	for _, run := range runs {
		if _, err := db.SaveRun(t.Context(), run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
}

// TestRunHistoryCmd tests listing and querying the crawl history.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedHistory(t, dir)

	// Subtests share one database and run sequentially.
	t.Run("lists runs newest first", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "--json")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var runs []struct {
			ID        int64 `json:"id"`
			Records   int   `json:"records"`
			Truncated bool  `json:"truncated"`
		}
		if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
			t.Fatalf("invalid JSON: %v: %q", err, stdout)
		}
		if len(runs) != 2 || runs[0].ID != 2 || runs[1].ID != 1 {
			t.Fatalf("expected runs 2 and 1, got %+v", runs)
		}
		if !runs[0].Truncated || runs[1].Records != 2 {
			t.Errorf("unexpected run details %+v", runs)
		}
	})

	t.Run("limit", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "-n", "1")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "50+") {
			t.Errorf("expected the truncated run, got %q", stdout)
		}
		if strings.Contains(stdout, "\n1 ") {
			t.Errorf("expected only the newest run, got %q", stdout)
		}
	})

	t.Run("records of one run", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "--run", "1")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "run 1 (https://m.iabilet.ro/bilete-teatru/)") {
			t.Errorf("expected run header, got %q", stdout)
		}
		if !strings.Contains(stdout, "Hamlet") || !strings.Contains(stdout, "Faust") {
			t.Errorf("expected both records, got %q", stdout)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "--run", "99")
		_, _, err := executeCommand(t, args...)
		if !errors.Is(err, errRunNotFound) {
			t.Errorf("expected errRunNotFound, got %v", err)
		}
	})

	t.Run("last seen title", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "--title", "FAUST")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, 3, 1, 10, 1, 0, 0, time.UTC).Local().Format("2006-01-02 15:04:05")
		if !strings.Contains(stdout, `"FAUST" last seen `+want) {
			t.Errorf("expected last seen %s, got %q", want, stdout)
		}
	})

	t.Run("title never seen", func(t *testing.T) {
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", dir, "--title", "Opera")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, `"Opera" has never been crawled`) {
			t.Errorf("expected never crawled, got %q", stdout)
		}
	})

	t.Run("missing database is an empty history", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "nothing")
		args := append(isolatedArgs(t, t.TempDir()), "history", "--db-dir", empty)
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No crawls recorded") {
			t.Errorf("expected empty history, got %q", stdout)
		}
	})
}
