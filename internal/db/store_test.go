package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "store-test"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestEnsureMetaFirstWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openTestDB(t)

	first, err := database.EnsureMeta(ctx, "client_id", "generated-1")
	if err != nil {
		t.Fatalf("ensure meta: %v", err)
	}
	if first != "generated-1" {
		t.Fatalf("expected fallback stored, got %q", first)
	}

	second, err := database.EnsureMeta(ctx, "client_id", "generated-2")
	if err != nil {
		t.Fatalf("ensure meta again: %v", err)
	}
	if second != "generated-1" {
		t.Fatalf("expected stable value across calls, got %q", second)
	}
}

func TestGetMetaMissingKey(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	_, err := database.GetMeta(context.Background(), "absent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAppendPositionsIgnoresDuplicateTimestamps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openTestDB(t)

	inserted, err := database.AppendPositions(ctx, "keys", []PositionRow{
		{TSMilli: 1000, Latitude: 1.0, Longitude: 2.0},
		{TSMilli: 2000, Latitude: 1.1, Longitude: 2.1},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}

	inserted, err = database.AppendPositions(ctx, "keys", []PositionRow{
		{TSMilli: 2000, Latitude: 9.9, Longitude: 9.9},
		{TSMilli: 3000, Latitude: 1.2, Longitude: 2.2},
	})
	if err != nil {
		t.Fatalf("append overlap: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted for overlapping batch, got %d", inserted)
	}

	rows, err := database.ListPositionsAscending(ctx, "keys")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].TSMilli >= rows[i].TSMilli {
			t.Fatalf("rows not strictly ascending: %v then %v", rows[i-1].TSMilli, rows[i].TSMilli)
		}
	}
	// The original coordinates survive a duplicate-timestamp insert.
	if rows[1].Latitude != 1.1 {
		t.Fatalf("duplicate insert overwrote row: %+v", rows[1])
	}
}

func TestAppendPositionsIsolatesTracks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openTestDB(t)

	if _, err := database.AppendPositions(ctx, "keys", []PositionRow{{TSMilli: 1000, Latitude: 1, Longitude: 1}}); err != nil {
		t.Fatalf("append keys: %v", err)
	}
	if _, err := database.AppendPositions(ctx, "wallet", []PositionRow{{TSMilli: 1000, Latitude: 2, Longitude: 2}}); err != nil {
		t.Fatalf("append wallet: %v", err)
	}

	stats, err := database.GetTrackStats(ctx, "keys")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("expected 1 row in keys track, got %d", stats.Count)
	}
}

func TestMaxPositionTimestamp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openTestDB(t)

	_, ok, err := database.MaxPositionTimestamp(ctx, "keys")
	if err != nil {
		t.Fatalf("max on empty track: %v", err)
	}
	if ok {
		t.Fatal("expected no high-water mark for empty track")
	}

	if _, err := database.AppendPositions(ctx, "keys", []PositionRow{
		{TSMilli: 5000, Latitude: 1, Longitude: 1},
		{TSMilli: 7000, Latitude: 2, Longitude: 2},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	maxTS, ok, err := database.MaxPositionTimestamp(ctx, "keys")
	if err != nil {
		t.Fatalf("max: %v", err)
	}
	if !ok || maxTS != 7000 {
		t.Fatalf("expected high-water mark 7000, got %d ok=%v", maxTS, ok)
	}
}

func TestListPositionTimestampsSince(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openTestDB(t)

	if _, err := database.AppendPositions(ctx, "keys", []PositionRow{
		{TSMilli: 1000, Latitude: 1, Longitude: 1},
		{TSMilli: 2000, Latitude: 2, Longitude: 2},
		{TSMilli: 3000, Latitude: 3, Longitude: 3},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := database.ListPositionTimestampsSince(ctx, "keys", 2000)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(got) != 2 || got[0] != 2000 || got[1] != 3000 {
		t.Fatalf("unexpected timestamps: %v", got)
	}
}
