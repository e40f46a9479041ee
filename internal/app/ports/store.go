package ports

import "context"

// PositionRecord is one location sample as the store sees it.
type PositionRecord struct {
	TimestampMS int64
	Latitude    float64
	Longitude   float64
}

// TrackStats summarizes one track's data region.
type TrackStats struct {
	Count          int64
	MinTimestampMS int64
	MaxTimestampMS int64
}

// TrackStore is the minimal storage contract needed by the sync pipeline. The
// store guarantees ascending timestamp order and timestamp uniqueness within a
// track; appends with already-present timestamps are silently ignored.
type TrackStore interface {
	// HighWaterMark returns the maximum stored timestamp for a track. ok is
	// false when the track is empty.
	HighWaterMark(ctx context.Context, track string) (tsMS int64, ok bool, err error)
	// ExistingTimestamps returns the set of stored timestamps at or after
	// sinceMS, used as the deduplication set for a merge.
	ExistingTimestamps(ctx context.Context, track string, sinceMS int64) (map[int64]struct{}, error)
	// AppendPositions writes a batch in one transaction and reports how many
	// rows were actually added.
	AppendPositions(ctx context.Context, track string, records []PositionRecord) (int, error)
	// Stats reports row count and timestamp bounds for a track.
	Stats(ctx context.Context, track string) (TrackStats, error)
}
