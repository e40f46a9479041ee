// Package services holds the sync pipeline that pulls incremental location
// history for one device and merges it into the store.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fr0stylo/tiletrack/internal/app/ports"
	"github.com/fr0stylo/tiletrack/internal/observability"
	"github.com/fr0stylo/tiletrack/internal/tileapi"
	"github.com/fr0stylo/tiletrack/internal/track"
)

const (
	// highWaterBuffer is subtracted from the stored high-water mark when
	// deriving the next window, so points a prior run missed to upstream
	// eventual consistency are re-fetched and deduplicated.
	highWaterBuffer = time.Hour
	// clampLookback replaces a derived start that would land after "now"
	// (clock skew, stale buffer math).
	clampLookback = 24 * time.Hour
	// initialLookback is the window used when the store is empty.
	initialLookback = 30 * 24 * time.Hour
)

// Window is the [Start, End] time range requested from the history endpoint.
type Window struct {
	Start time.Time
	End   time.Time
}

// tileClient is the slice of the API client used by a sync run.
type tileClient interface {
	EstablishSession(ctx context.Context, email, password string) (tileapi.Session, error)
	ResolveDeviceByName(ctx context.Context, session tileapi.Session, name string) (string, error)
	LocationHistory(ctx context.Context, session tileapi.Session, deviceID string, start, end time.Time) (*tileapi.HistoryPayload, error)
}

// SyncOptions binds one run to an account, a device and a store track.
type SyncOptions struct {
	Email      string
	Password   string
	DeviceName string
	Track      string
	// DryRun executes the full pipeline but skips the store write.
	DryRun bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Window     Window
	DeviceID   string
	Fetched    int
	Dropped    int
	Duplicates int
	Appended   int
}

type SyncService struct {
	store ports.TrackStore
	api   tileClient
	log   *slog.Logger
	opts  SyncOptions
}

func NewSyncService(store ports.TrackStore, api tileClient, log *slog.Logger, opts SyncOptions) *SyncService {
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SyncService{store: store, api: api, log: log, opts: opts}
}

// Run executes the pipeline once: derive window, establish session, resolve
// device, fetch history, normalize, merge-append. Failures abort the run with
// the store untouched; there is no retry.
func (s *SyncService) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunMetadata(ctx, runID)
	summary := Summary{RunID: runID}

	window, err := s.deriveWindow(ctx)
	if err != nil {
		return summary, fmt.Errorf("derive fetch window: %w", err)
	}
	summary.Window = window
	s.log.InfoContext(ctx, "derived fetch window",
		"start", window.Start.UTC().Format(time.RFC3339),
		"end", window.End.UTC().Format(time.RFC3339),
	)

	session, err := s.establishSession(ctx)
	if err != nil {
		return summary, fmt.Errorf("establish session: %w", err)
	}

	deviceID, err := s.resolveDevice(ctx, session)
	if err != nil {
		return summary, err
	}
	summary.DeviceID = deviceID

	payload, err := s.fetchHistory(ctx, session, deviceID, window)
	if err != nil {
		return summary, fmt.Errorf("fetch history: %w", err)
	}
	summary.Fetched = len(payload.Updates)

	positions, dropped := s.normalize(ctx, payload)
	summary.Dropped = dropped

	appended, duplicates, err := s.merge(ctx, window, positions)
	if err != nil {
		return summary, fmt.Errorf("merge into store: %w", err)
	}
	summary.Appended = appended
	summary.Duplicates = duplicates

	s.log.InfoContext(ctx, "sync run complete",
		"device_id", deviceID,
		"fetched", summary.Fetched,
		"dropped", summary.Dropped,
		"duplicates", summary.Duplicates,
		"appended", summary.Appended,
		"dry_run", s.opts.DryRun,
	)
	return summary, nil
}

// deriveWindow computes the fetch window from the store's high-water mark:
// mark minus a fixed buffer, clamped to a short lookback if that would pass
// "now", or a long default lookback for an empty store.
func (s *SyncService) deriveWindow(ctx context.Context) (Window, error) {
	ctx, span := observability.StartStageSpan(ctx, "derive_window")
	defer span.End()

	now := s.opts.Now()
	mark, ok, err := s.store.HighWaterMark(ctx, s.opts.Track)
	if err != nil {
		span.RecordError(err)
		return Window{}, err
	}
	if !ok {
		return Window{Start: now.Add(-initialLookback), End: now}, nil
	}

	start := time.UnixMilli(mark).Add(-highWaterBuffer)
	if start.After(now) {
		start = now.Add(-clampLookback)
	}
	return Window{Start: start, End: now}, nil
}

func (s *SyncService) establishSession(ctx context.Context) (tileapi.Session, error) {
	ctx, span := observability.StartStageSpan(ctx, "establish_session")
	defer span.End()

	session, err := s.api.EstablishSession(ctx, s.opts.Email, s.opts.Password)
	if err != nil {
		span.RecordError(err)
		return tileapi.Session{}, err
	}
	return session, nil
}

func (s *SyncService) resolveDevice(ctx context.Context, session tileapi.Session) (string, error) {
	ctx, span := observability.StartStageSpan(ctx, "resolve_device")
	defer span.End()

	deviceID, err := s.api.ResolveDeviceByName(ctx, session, s.opts.DeviceName)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return deviceID, nil
}

func (s *SyncService) fetchHistory(ctx context.Context, session tileapi.Session, deviceID string, window Window) (*tileapi.HistoryPayload, error) {
	ctx, span := observability.StartStageSpan(ctx, "fetch_history")
	defer span.End()

	payload, err := s.api.LocationHistory(ctx, session, deviceID, window.Start, window.End)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return payload, nil
}

func (s *SyncService) normalize(ctx context.Context, payload *tileapi.HistoryPayload) ([]track.Position, int) {
	ctx, span := observability.StartStageSpan(ctx, "normalize")
	defer span.End()

	return track.Normalize(ctx, s.log, payload.Updates)
}

// merge filters the batch against the store's dedup set and batch-internal
// repeats, then appends the survivors in one transaction. Replaying the same
// batch is a no-op.
func (s *SyncService) merge(ctx context.Context, window Window, positions []track.Position) (appended, duplicates int, err error) {
	ctx, span := observability.StartStageSpan(ctx, "merge")
	defer span.End()

	if len(positions) == 0 {
		return 0, 0, nil
	}

	existing, err := s.store.ExistingTimestamps(ctx, s.opts.Track, window.Start.UnixMilli())
	if err != nil {
		span.RecordError(err)
		return 0, 0, err
	}

	seen := make(map[int64]struct{}, len(existing)+len(positions))
	for ts := range existing {
		seen[ts] = struct{}{}
	}

	fresh := make([]ports.PositionRecord, 0, len(positions))
	for _, pos := range positions {
		ts := pos.Timestamp.UnixMilli()
		if _, dup := seen[ts]; dup {
			duplicates++
			continue
		}
		seen[ts] = struct{}{}
		fresh = append(fresh, ports.PositionRecord{
			TimestampMS: ts,
			Latitude:    pos.Latitude,
			Longitude:   pos.Longitude,
		})
	}

	if s.opts.DryRun || len(fresh) == 0 {
		return len(fresh), duplicates, nil
	}

	appended, err = s.store.AppendPositions(ctx, s.opts.Track, fresh)
	if err != nil {
		span.RecordError(err)
		return 0, duplicates, err
	}
	return appended, duplicates, nil
}
