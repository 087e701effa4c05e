package logbook

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestLevelsAndMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "session.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail before first entry, got %v %d", lines, total)
	}
	book.Warn("deal rejected: %s", "High share out of range")
	book.Error("deliver %s: %s", "acceptDeal", "timeout")
	lines, total := book.Tail(10)
	if total != 2 || len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d/%d", len(lines), total)
	}
	if !strings.Contains(lines[0], "WARN ") || !strings.Contains(lines[1], "ERROR") {
		t.Fatalf("levels missing: %q", lines)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
	if nilBook.Path() != "" {
		t.Fatalf("nil logbook has no path")
	}
}
