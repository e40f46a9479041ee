package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PositionRow is one stored location sample.
type PositionRow struct {
	TSMilli   int64
	Latitude  float64
	Longitude float64
}

// TrackStats summarizes one track's stored data region.
type TrackStats struct {
	Count   int64
	MinTSMs int64
	MaxTSMs int64
}

// GetMeta reads one durable key/value entry. Missing keys return
// sql.ErrNoRows.
func (c *Database) GetMeta(ctx context.Context, key string) (string, error) {
	ctx, done := c.instrument(ctx, "GetMeta", "select")
	defer done()

	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// EnsureMeta returns the stored value for key, inserting fallback when the key
// does not exist yet. The first caller wins; later fallbacks are ignored.
func (c *Database) EnsureMeta(ctx context.Context, key, fallback string) (string, error) {
	value, err := c.GetMeta(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read meta %q: %w", key, err)
	}

	ctx, done := c.instrument(ctx, "EnsureMeta", "insert")
	defer done()

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
		key, fallback,
	); err != nil {
		return "", fmt.Errorf("insert meta %q: %w", key, err)
	}

	var stored string
	if err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&stored); err != nil {
		return "", fmt.Errorf("reread meta %q: %w", key, err)
	}
	return stored, nil
}

// MaxPositionTimestamp returns the track's high-water mark in epoch
// milliseconds. ok is false for an empty track.
func (c *Database) MaxPositionTimestamp(ctx context.Context, track string) (int64, bool, error) {
	ctx, done := c.instrument(ctx, "MaxPositionTimestamp", "select")
	defer done()

	var maxTS sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT MAX(ts_ms) FROM positions WHERE track = ?`, track,
	).Scan(&maxTS)
	if err != nil {
		return 0, false, err
	}
	return maxTS.Int64, maxTS.Valid, nil
}

// ListPositionTimestampsSince returns all stored timestamps for a track at or
// after sinceMs, ascending.
func (c *Database) ListPositionTimestampsSince(ctx context.Context, track string, sinceMs int64) ([]int64, error) {
	ctx, done := c.instrument(ctx, "ListPositionTimestampsSince", "select")
	defer done()

	rows, err := c.db.QueryContext(ctx,
		`SELECT ts_ms FROM positions WHERE track = ? AND ts_ms >= ? ORDER BY ts_ms ASC`,
		track, sinceMs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// AppendPositions inserts rows for a track in a single transaction and
// returns the number of rows actually written. Timestamps already present are
// ignored, so a replayed batch is a no-op.
func (c *Database) AppendPositions(ctx context.Context, track string, positions []PositionRow) (int, error) {
	if len(positions) == 0 {
		return 0, nil
	}

	ctx, done := c.instrument(ctx, "AppendPositions", "insert")
	defer done()

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO positions (track, ts_ms, latitude, longitude) VALUES (?, ?, ?, ?)
		 ON CONFLICT (track, ts_ms) DO NOTHING`,
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	inserted := 0
	for _, pos := range positions {
		res, err := stmt.ExecContext(ctx, track, pos.TSMilli, pos.Latitude, pos.Longitude)
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, err
		}
		inserted += int(affected)
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListPositionsAscending returns all rows for a track ordered by timestamp.
func (c *Database) ListPositionsAscending(ctx context.Context, track string) ([]PositionRow, error) {
	ctx, done := c.instrument(ctx, "ListPositionsAscending", "select")
	defer done()

	rows, err := c.db.QueryContext(ctx,
		`SELECT ts_ms, latitude, longitude FROM positions WHERE track = ? ORDER BY ts_ms ASC`,
		track,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRow
	for rows.Next() {
		var row PositionRow
		if err := rows.Scan(&row.TSMilli, &row.Latitude, &row.Longitude); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetTrackStats returns row count and timestamp bounds for a track.
func (c *Database) GetTrackStats(ctx context.Context, track string) (TrackStats, error) {
	ctx, done := c.instrument(ctx, "GetTrackStats", "select")
	defer done()

	var stats TrackStats
	var minTS, maxTS sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(ts_ms), MAX(ts_ms) FROM positions WHERE track = ?`, track,
	).Scan(&stats.Count, &minTS, &maxTS)
	if err != nil {
		return TrackStats{}, err
	}
	stats.MinTSMs = minTS.Int64
	stats.MaxTSMs = maxTS.Int64
	return stats, nil
}
