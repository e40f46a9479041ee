// Package sqlite adapts the SQLite database to the storage ports consumed by
// the sync pipeline.
package sqlite

import (
	"context"

	"github.com/fr0stylo/tiletrack/internal/app/ports"
	"github.com/fr0stylo/tiletrack/internal/db"
)

type trackDatabase interface {
	MaxPositionTimestamp(ctx context.Context, track string) (int64, bool, error)
	ListPositionTimestampsSince(ctx context.Context, track string, sinceMs int64) ([]int64, error)
	AppendPositions(ctx context.Context, track string, positions []db.PositionRow) (int, error)
	GetTrackStats(ctx context.Context, track string) (db.TrackStats, error)
}

type trackStore struct {
	db trackDatabase
}

// NewTrackStore wraps the database as a ports.TrackStore.
func NewTrackStore(database trackDatabase) ports.TrackStore {
	return &trackStore{db: database}
}

func (s *trackStore) HighWaterMark(ctx context.Context, track string) (int64, bool, error) {
	return s.db.MaxPositionTimestamp(ctx, track)
}

func (s *trackStore) ExistingTimestamps(ctx context.Context, track string, sinceMS int64) (map[int64]struct{}, error) {
	timestamps, err := s.db.ListPositionTimestampsSince(ctx, track, sinceMS)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		set[ts] = struct{}{}
	}
	return set, nil
}

func (s *trackStore) AppendPositions(ctx context.Context, track string, records []ports.PositionRecord) (int, error) {
	rows := make([]db.PositionRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, db.PositionRow{
			TSMilli:   record.TimestampMS,
			Latitude:  record.Latitude,
			Longitude: record.Longitude,
		})
	}
	return s.db.AppendPositions(ctx, track, rows)
}

func (s *trackStore) Stats(ctx context.Context, track string) (ports.TrackStats, error) {
	stats, err := s.db.GetTrackStats(ctx, track)
	if err != nil {
		return ports.TrackStats{}, err
	}
	return ports.TrackStats{
		Count:          stats.Count,
		MinTimestampMS: stats.MinTSMs,
		MaxTimestampMS: stats.MaxTSMs,
	}, nil
}

var _ ports.TrackStore = (*trackStore)(nil)
