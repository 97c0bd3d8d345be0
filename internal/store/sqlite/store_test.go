package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verbetes/verbete-server/internal/store"
	"github.com/verbetes/verbete-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"tags", "categories", "authors", "submissions", "submission_status_history",
		"articles", "article_tags", "article_categories", "article_authors",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reopen.db")

	s1, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	// The schema is idempotent.
	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

func TestFormatTime_SortsLexically(t *testing.T) {
	whole := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	frac := whole.Add(500 * time.Millisecond)

	if formatTime(whole) >= formatTime(frac) {
		t.Errorf("expected %q < %q", formatTime(whole), formatTime(frac))
	}

	got, err := parseTime(formatTime(frac))
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !got.Equal(frac) {
		t.Errorf("round trip: got %v, want %v", got, frac)
	}
}

func TestArticleWhere_EscapesLike(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if taken, err := s.ArticleSlugTaken(ctx, "anything", 1); err != nil || taken {
		t.Fatalf("empty store: taken=%v err=%v", taken, err)
	}
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike: got %q", got)
	}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}
