package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/preprocess"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "json", slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "key", "value")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug line written at info level:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("expected json attrs, got:\n%s", buf.String())
	}

	if _, err := newLogger(&buf, "xml", slog.LevelInfo); err == nil {
		t.Error("newLogger() accepted unknown format")
	}
}

func TestPreprocessReport(t *testing.T) {
	ix := document.NewIndex()
	ix.Titles["01-GEN.html"] = "Genesis"
	ix.BookCodes["01-GEN.html"] = "gen"
	ix.BookCodes["02-EXO.html"] = "exo"

	r := newPreprocessReport("Bible", preprocess.Result{
		FilesWritten: 2,
		Warnings:     []string{"missing chapter"},
		Index:        ix,
	})
	if r.Titles != 1 {
		t.Errorf("Titles = %d, want 1", r.Titles)
	}
	if len(r.Books) != 2 || r.Books[0] != "exo" {
		t.Errorf("Books = %v, want sorted codes", r.Books)
	}

	headers, rows := r.Table()
	if len(headers) != 2 {
		t.Fatalf("headers = %v", headers)
	}
	last := rows[len(rows)-1]
	if last[0] != "warning" || last[1] != "missing chapter" {
		t.Errorf("last row = %v, want warning", last)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"version", "preprocess", "template", "stage", "complete", "deploy", "callback", "config", "watch"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
