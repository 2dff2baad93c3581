package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/groupgrab/internal/domain"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "groupgrab dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	want := []string{"serve", "ingest", "links", "drive-token", "version"}
	for _, name := range want {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestPrintLinks(t *testing.T) {
	size := int64(2048)
	links := []*domain.ArchivedLink{
		{
			ID:           2,
			URL:          "https://x.com/a/status/1#/dl/1.jpg",
			Platform:     domain.PlatformTwitter,
			GroupName:    "Family",
			FilePath:     "/dl/1.jpg",
			FileSize:     &size,
			RemoteID:     "drive-1",
			DownloadedAt: time.Now().Add(-time.Hour),
		},
		{
			ID:           1,
			URL:          "https://instagram.com/p/abc",
			Platform:     domain.PlatformInstagram,
			GroupName:    "Family",
			FilePath:     "/dl/2.jpg",
			DownloadedAt: time.Now(),
		},
	}

	var out bytes.Buffer
	if err := printLinks(&out, links); err != nil {
		t.Fatalf("printLinks() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], "2.0 kB") || !strings.Contains(lines[1], "yes") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "instagram") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestIngestSummaryPrint(t *testing.T) {
	var out bytes.Buffer
	ingestSummary{Events: 2, Messages: 3, Recorded: 1, Failed: 1}.print(&out)

	want := "events=2 messages=3 ignored=0 recorded=1 skipped=0 failed=1\n"
	if out.String() != want {
		t.Errorf("print() = %q, want %q", out.String(), want)
	}
}
