package track

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeAcceptsFieldAliases(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		{"location_timestamp": float64(1000), "latitude": 51.5, "longitude": -0.12},
		{"timestamp": float64(2000), "lat": 40.7, "lng": -74.0},
		{"ts": float64(3000), "lat": 35.6, "lon": 139.7},
	}

	positions, dropped := Normalize(context.Background(), discardLogger(), raw)
	if dropped != 0 {
		t.Fatalf("expected no drops, got %d", dropped)
	}
	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}
	if !positions[0].Timestamp.Equal(time.UnixMilli(1000)) {
		t.Fatalf("unexpected first timestamp: %v", positions[0].Timestamp)
	}
	if positions[1].Longitude != -74.0 {
		t.Fatalf("lng alias not honored: %+v", positions[1])
	}
	if positions[2].Longitude != 139.7 {
		t.Fatalf("lon alias not honored: %+v", positions[2])
	}
}

func TestNormalizeAcceptsBoundaryCoordinates(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		{"timestamp": float64(1000), "latitude": -90.0, "longitude": -180.0},
		{"timestamp": float64(2000), "latitude": 90.0, "longitude": 180.0},
	}

	positions, dropped := Normalize(context.Background(), discardLogger(), raw)
	if dropped != 0 || len(positions) != 2 {
		t.Fatalf("boundary values must be accepted, got %d positions, %d dropped", len(positions), dropped)
	}
}

func TestNormalizeRejectsOutOfRangeCoordinates(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		{"timestamp": float64(1000), "latitude": 91.0, "longitude": 0.0},
		{"timestamp": float64(2000), "latitude": -91.0, "longitude": 0.0},
		{"timestamp": float64(3000), "latitude": 0.0, "longitude": 181.0},
		{"timestamp": float64(4000), "latitude": 0.0, "longitude": -181.0},
	}

	positions, dropped := Normalize(context.Background(), discardLogger(), raw)
	if len(positions) != 0 {
		t.Fatalf("expected all entries rejected, got %d", len(positions))
	}
	if dropped != 4 {
		t.Fatalf("expected 4 drops, got %d", dropped)
	}
}

func TestNormalizeRejectsMalformedEntries(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		{"latitude": 1.0, "longitude": 2.0},
		{"timestamp": float64(-5), "latitude": 1.0, "longitude": 2.0},
		{"timestamp": "abc", "latitude": 1.0, "longitude": 2.0},
		{"timestamp": float64(1000), "latitude": math.NaN(), "longitude": 2.0},
		{"timestamp": float64(2000), "latitude": 1.0},
		{"timestamp": float64(3000), "latitude": true, "longitude": 2.0},
		// String-typed numbers coerce and survive.
		{"timestamp": float64(4000), "latitude": "51.5", "longitude": "-0.12"},
	}

	positions, dropped := Normalize(context.Background(), discardLogger(), raw)
	if len(positions) != 1 {
		t.Fatalf("expected exactly the string-coercible entry to survive, got %d", len(positions))
	}
	if dropped != 6 {
		t.Fatalf("expected 6 drops, got %d", dropped)
	}
	if positions[0].Latitude != 51.5 || positions[0].Longitude != -0.12 {
		t.Fatalf("string coercion produced wrong values: %+v", positions[0])
	}
}

func TestNormalizePreservesInputOrder(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		{"timestamp": float64(3000), "latitude": 3.0, "longitude": 3.0},
		{"timestamp": float64(1000), "latitude": 1.0, "longitude": 1.0},
		{"timestamp": float64(2000), "latitude": 2.0, "longitude": 2.0},
	}

	positions, _ := Normalize(context.Background(), discardLogger(), raw)
	if len(positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(positions))
	}
	// No sorting at this stage; that is the merger's job.
	if !positions[0].Timestamp.Equal(time.UnixMilli(3000)) ||
		!positions[1].Timestamp.Equal(time.UnixMilli(1000)) ||
		!positions[2].Timestamp.Equal(time.UnixMilli(2000)) {
		t.Fatalf("input order not preserved: %v", positions)
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	t.Parallel()

	positions, dropped := Normalize(context.Background(), discardLogger(), nil)
	if len(positions) != 0 || dropped != 0 {
		t.Fatalf("expected empty result, got %d positions %d dropped", len(positions), dropped)
	}
}
