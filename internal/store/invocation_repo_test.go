package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// openTestRepo needs a disposable Postgres database named by VISION_TEST_DATABASE_URL.
func openTestRepo(t *testing.T) *InvocationRepo {
	t.Helper()
	dsn := os.Getenv("VISION_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("VISION_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewInvocationRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return repo
}

func TestRecentNewestFirstAndPurge(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	source := "test-" + uuid.NewString()[:8]
	now := time.Now().UTC().Truncate(time.Millisecond)

	old := Entry{CreatedAt: now.Add(-48 * time.Hour), RequestID: "r-old", Source: source, Op: "classify url", Method: "POST", Endpoint: "https://cv.example.com/a", StatusCode: 200, Duration: 120 * time.Millisecond}
	fresh := Entry{CreatedAt: now, RequestID: "r-new", Source: source, Op: "analyze url", Method: "POST", Endpoint: "https://cv.example.com/b", StatusCode: 401, FaultKind: "service", Error: "analyze url: service fault (401 Unauthorized)"}
	for _, e := range []Entry{old, fresh} {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].RequestID != "r-new" || got[1].RequestID != "r-old" {
		t.Fatalf("Recent(2) = %+v", got)
	}
	if got[1].Duration != 120*time.Millisecond || got[0].FaultKind != "service" || got[0].ID == uuid.Nil {
		t.Errorf("round trip lost fields: %+v", got)
	}

	n, err := repo.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan() error = %v", err)
	}
	if n < 1 {
		t.Errorf("PurgeOlderThan() removed %d rows, want the old entry", n)
	}
	got, err = repo.Recent(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range got {
		if e.RequestID == "r-old" && e.Source == source {
			t.Errorf("old entry survived the purge")
		}
	}
}
