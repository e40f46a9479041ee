package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fr0stylo/tiletrack/internal/app/ports"
	"github.com/fr0stylo/tiletrack/internal/db"
)

func TestTrackStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := db.New(filepath.Join(t.TempDir(), "track-store-test"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	store := NewTrackStore(database)

	_, ok, err := store.HighWaterMark(ctx, "keys")
	if err != nil {
		t.Fatalf("high-water mark on empty store: %v", err)
	}
	if ok {
		t.Fatal("expected empty track to have no high-water mark")
	}

	appended, err := store.AppendPositions(ctx, "keys", []ports.PositionRecord{
		{TimestampMS: 1000, Latitude: 51.5, Longitude: -0.12},
		{TimestampMS: 3000, Latitude: 51.6, Longitude: -0.13},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if appended != 2 {
		t.Fatalf("expected 2 appended, got %d", appended)
	}

	mark, ok, err := store.HighWaterMark(ctx, "keys")
	if err != nil {
		t.Fatalf("high-water mark: %v", err)
	}
	if !ok || mark != 3000 {
		t.Fatalf("expected high-water mark 3000, got %d ok=%v", mark, ok)
	}

	existing, err := store.ExistingTimestamps(ctx, "keys", 0)
	if err != nil {
		t.Fatalf("existing timestamps: %v", err)
	}
	if _, found := existing[1000]; !found {
		t.Fatalf("expected timestamp 1000 in dedup set, got %v", existing)
	}
	if len(existing) != 2 {
		t.Fatalf("expected 2 timestamps, got %d", len(existing))
	}

	stats, err := store.Stats(ctx, "keys")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 2 || stats.MinTimestampMS != 1000 || stats.MaxTimestampMS != 3000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
