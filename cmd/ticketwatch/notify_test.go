package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/ticketwatch/internal/config"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/scanner"
	"github.com/nao1215/ticketwatch/internal/store"
)

// sentMessage is a message received by the fake Mailgun server.
type sentMessage struct {
	From    string
	To      string
	Subject string
	Text    string
}

// fakeMailgun records the messages posted to the Mailgun messages endpoint.
type fakeMailgun struct {
	server *httptest.Server

	mu       sync.Mutex
	messages []sentMessage
}

// newFakeMailgun starts a fake Mailgun API for the mg.example.com domain.
func newFakeMailgun(t *testing.T) *fakeMailgun {
	t.Helper()

	f := &fakeMailgun{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/mg.example.com/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.messages = append(f.messages, sentMessage{
			From:    r.FormValue("from"),
			To:      r.FormValue("to"),
			Subject: r.FormValue("subject"),
			Text:    r.FormValue("text"),
		})
		n := len(f.messages)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"<%d@mg.example.com>","message":"Queued. Thank you."}`, n)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// sent returns a copy of the received messages.
func (f *fakeMailgun) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

// envFile writes a .env file pointing the Mailgun client at the fake server.
func (f *fakeMailgun) envFile(t *testing.T, dir string) string {
	t.Helper()

	return writeFile(t, dir, ".env", strings.Join([]string{
		"MAILGUN_API_KEY=key-0123456789abcdef",
		"MAILGUN_DOMAIN=mg.example.com",
		"MAILGUN_API_BASE=" + f.server.URL + "/v3",
		"TICKETWATCH_TO=me@example.com",
	}, "\n")+"\n")
}

// writeRecords writes a records file with the given titles.
func writeRecords(t *testing.T, dir string, titles ...string) string {
	t.Helper()

	records := make([]model.Record, 0, len(titles))
	for i, title := range titles {
		records = append(records, model.Record{Title: title, Link: fmt.Sprintf("https://m.iabilet.ro/event/%d", i)})
	}

	path := filepath.Join(dir, "play_titles.json")
	s, err := store.New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Persist(records, "2024-03-01T10:00:00"); err != nil {
		t.Fatalf("failed to write records: %v", err)
	}
	return path
}

// TestNewNotifyCmd tests the notify command creation.
func TestNewNotifyCmd(t *testing.T) {
	t.Parallel()

	cmd := NewNotifyCmd()
	if cmd.Use != "notify <search term>" {
		t.Errorf("expected use 'notify <search term>', got %q", cmd.Use)
	}
	for _, name := range []string{"file", "to", "from", "dry-run", "json", "markdown", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestRunNotifyCmd tests searching the records file and sending the notification.
func TestRunNotifyCmd(t *testing.T) {
	t.Parallel()

	t.Run("dry run reports matches without sending", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Hamlet", "Faust", "Faust (II)")

		args := append(isolatedArgs(t, dir), "notify", "faust", "-f", recordsPath, "--dry-run")
		stdout, _, err := executeCommand(t, args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "[+] faust: 2 matching event(s)") {
			t.Errorf("expected 2 matches, got %q", stdout)
		}
		if !strings.Contains(stdout, "Dry run, not sent. Subject: FOUND 2 EVENT(S) MATCHING 'faust'") {
			t.Errorf("expected dry run subject, got %q", stdout)
		}
	})

	t.Run("no match sends nothing", func(t *testing.T) {
		t.Parallel()

		mg := newFakeMailgun(t)
		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Hamlet")

		stdout, _, err := executeCommand(t, "-c", writeFile(t, dir, "c.yaml", "{}\n"), "--env-file", mg.envFile(t, dir),
			"notify", "opera", "-f", recordsPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "[-] opera: no matching events") {
			t.Errorf("expected no matches, got %q", stdout)
		}
		if got := len(mg.sent()); got != 0 {
			t.Errorf("expected no message, got %d", got)
		}
	})

	t.Run("sends one message listing every match", func(t *testing.T) {
		t.Parallel()

		mg := newFakeMailgun(t)
		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Hamlet", "Faust", "FAUST")

		stdout, _, err := executeCommand(t, "-c", writeFile(t, dir, "c.yaml", "notify:\n  from: tickets@mg.example.com\n"),
			"--env-file", mg.envFile(t, dir), "notify", "Faust", "-f", recordsPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Notification sent (id <1@mg.example.com>)") {
			t.Errorf("expected sent confirmation, got %q", stdout)
		}

		sent := mg.sent()
		if len(sent) != 1 {
			t.Fatalf("expected 1 message, got %d", len(sent))
		}
		if sent[0].To != "me@example.com" {
			t.Errorf("expected recipient from .env, got %q", sent[0].To)
		}
		if sent[0].From != "tickets@mg.example.com" {
			t.Errorf("expected sender from config file, got %q", sent[0].From)
		}
		if sent[0].Subject != "FOUND 2 EVENT(S) MATCHING 'Faust'" {
			t.Errorf("unexpected subject %q", sent[0].Subject)
		}
		if !strings.Contains(sent[0].Text, "Title: FAUST") {
			t.Errorf("expected every match in the body, got %q", sent[0].Text)
		}
	})

	t.Run("to flag overrides the configured recipient", func(t *testing.T) {
		t.Parallel()

		mg := newFakeMailgun(t)
		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Faust")

		_, _, err := executeCommand(t, "-c", writeFile(t, dir, "c.yaml", "{}\n"), "--env-file", mg.envFile(t, dir),
			"notify", "faust", "-f", recordsPath, "--to", "other@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent := mg.sent(); len(sent) != 1 || sent[0].To != "other@example.com" {
			t.Errorf("expected message to other@example.com, got %+v", sent)
		}
	})

	t.Run("region holding an API base URL", func(t *testing.T) {
		t.Parallel()

		mg := newFakeMailgun(t)
		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Faust")
		envPath := writeFile(t, dir, "region.env", strings.Join([]string{
			"MAILGUN_API_KEY=key-0123456789abcdef",
			"MAILGUN_DOMAIN=mg.example.com",
			"MAILGUN_REGION=" + mg.server.URL + "/v3",
			"TICKETWATCH_TO=me@example.com",
		}, "\n")+"\n")

		_, _, err := executeCommand(t, "-c", writeFile(t, dir, "c.yaml", "{}\n"), "--env-file", envPath,
			"notify", "faust", "-f", recordsPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(mg.sent()); got != 1 {
			t.Errorf("expected 1 message through the region URL, got %d", got)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		recordsPath := writeRecords(t, dir, "Faust")
		badRegion := writeFile(t, dir, "region.env",
			"MAILGUN_API_KEY=k\nMAILGUN_DOMAIN=mg.example.com\nMAILGUN_REGION=mars\nTICKETWATCH_TO=me@example.com\n")
		noRecipient := writeFile(t, dir, "norcpt.env", "MAILGUN_API_KEY=k\nMAILGUN_DOMAIN=mg.example.com\n")
		configPath := writeFile(t, dir, "c.yaml", "{}\n")

		tests := []struct {
			name    string
			args    []string
			wantErr error
		}{
			{
				name:    "missing records file",
				args:    []string{"--env-file", filepath.Join(dir, "none.env"), "notify", "faust", "--dry-run", "-f", filepath.Join(dir, "missing.json")},
				wantErr: scanner.ErrSourceNotFound,
			},
			{
				name:    "blank term",
				args:    []string{"--env-file", filepath.Join(dir, "none.env"), "notify", "   ", "--dry-run", "-f", recordsPath},
				wantErr: errEmptyTerm,
			},
			{
				name:    "missing credentials",
				args:    []string{"--env-file", filepath.Join(dir, "none.env"), "notify", "faust", "-f", recordsPath},
				wantErr: config.ErrMissingMailCredentials,
			},
			{
				name:    "missing recipient",
				args:    []string{"--env-file", noRecipient, "notify", "faust", "-f", recordsPath},
				wantErr: config.ErrNoRecipient,
			},
			{
				name:    "unknown region",
				args:    []string{"--env-file", badRegion, "notify", "faust", "-f", recordsPath},
				wantErr: notify.ErrUnknownRegion,
			},
		}

		for _, tt := range tests {
			args := append([]string{"-c", configPath}, tt.args...)
			_, _, err := executeCommand(t, args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.wantErr, err)
			}
		}
	})

	t.Run("search term is required", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		args := append(isolatedArgs(t, dir), "notify")
		_, _, err := executeCommand(t, args...)
		if err == nil || !strings.Contains(err.Error(), "accepts 1 arg(s)") {
			t.Errorf("expected argument count error, got %v", err)
		}
	})
}
