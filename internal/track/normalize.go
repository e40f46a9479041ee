// Package track holds the canonical location sample model and the
// normalization of raw history payloads into it.
package track

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// Position is one canonical location sample. Timestamp carries millisecond
// precision; its millisecond value is the deduplication key in the store.
type Position struct {
	Timestamp time.Time
	Latitude  float64
	Longitude float64
}

// Field alias tables, first match wins. The API has renamed fields across
// versions, so each logical field accepts its known spellings.
var (
	timestampAliases = []string{"location_timestamp", "timestamp", "ts"}
	latitudeAliases  = []string{"latitude", "lat"}
	longitudeAliases = []string{"longitude", "lng", "lon"}
)

// Warnings about invalid entries are capped per batch so a pathological
// payload cannot flood the log.
const maxInvalidEntryWarnings = 5

// Normalize converts raw history entries into Positions, preserving input
// order. Entries missing a required field, failing numeric coercion, or
// falling outside valid geographic ranges are dropped and counted; dropped
// entries never fail the batch. Boundary coordinates (±90, ±180) are valid.
func Normalize(ctx context.Context, log *slog.Logger, raw []map[string]any) (positions []Position, dropped int) {
	if log == nil {
		log = slog.Default()
	}

	positions = make([]Position, 0, len(raw))
	for i, entry := range raw {
		pos, reason := normalizeEntry(entry)
		if reason != "" {
			dropped++
			if dropped <= maxInvalidEntryWarnings {
				log.WarnContext(ctx, "dropping invalid history entry", "index", i, "reason", reason)
			}
			continue
		}
		positions = append(positions, pos)
	}
	if dropped > maxInvalidEntryWarnings {
		log.WarnContext(ctx, "further invalid history entries suppressed",
			"dropped_total", dropped, "warned", maxInvalidEntryWarnings)
	}
	return positions, dropped
}

func normalizeEntry(entry map[string]any) (Position, string) {
	tsRaw, ok := lookupAlias(entry, timestampAliases)
	if !ok {
		return Position{}, "missing timestamp"
	}
	tsMs, ok := coerceFloat(tsRaw)
	if !ok || !isFinite(tsMs) || tsMs <= 0 {
		return Position{}, "invalid timestamp"
	}

	latRaw, ok := lookupAlias(entry, latitudeAliases)
	if !ok {
		return Position{}, "missing latitude"
	}
	lat, ok := coerceFloat(latRaw)
	if !ok || !isFinite(lat) || lat < -90 || lat > 90 {
		return Position{}, "latitude out of range"
	}

	lonRaw, ok := lookupAlias(entry, longitudeAliases)
	if !ok {
		return Position{}, "missing longitude"
	}
	lon, ok := coerceFloat(lonRaw)
	if !ok || !isFinite(lon) || lon < -180 || lon > 180 {
		return Position{}, "longitude out of range"
	}

	return Position{
		Timestamp: time.UnixMilli(int64(tsMs)).UTC(),
		Latitude:  lat,
		Longitude: lon,
	}, ""
}

func lookupAlias(entry map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if value, ok := entry[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
