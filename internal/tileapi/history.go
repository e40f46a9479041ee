package tileapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// HistoryPayload is the raw history response for one device and window.
// Entries are kept untyped; normalization happens downstream.
type HistoryPayload struct {
	Updates []map[string]any
}

// LocationHistory fetches the location samples recorded for a device within
// [start, end]. A 2xx response lacking the expected sample array is treated as
// an empty window rather than a failure, so a quiet device produces zero new
// points instead of aborting the run. Non-2xx and transport errors are hard
// failures.
func (c *Client) LocationHistory(ctx context.Context, session Session, deviceID string, start, end time.Time) (*HistoryPayload, error) {
	query := url.Values{}
	query.Set("start_timestamp_ms", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("end_timestamp_ms", strconv.FormatInt(end.UnixMilli(), 10))

	req, err := c.newRequest(ctx, http.MethodGet, "/tiles/location/history/"+deviceID+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("location history: %w", err)
	}
	req.Header.Set("Cookie", session.CookieHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location history: %w", err)
	}
	defer drainAndClose(resp.Body)

	if !is2xx(resp.StatusCode) {
		return nil, &APIError{Op: "location history", StatusCode: resp.StatusCode}
	}

	var parsed struct {
		Result struct {
			// Pointer distinguishes a missing field from an empty array.
			LocationUpdates *[]map[string]any `json:"location_updates"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("location history: decode response: %w", err)
	}

	if parsed.Result.LocationUpdates == nil {
		c.log.Warn("history response missing location_updates, treating as empty window", "device_id", deviceID)
		return &HistoryPayload{Updates: []map[string]any{}}, nil
	}
	return &HistoryPayload{Updates: *parsed.Result.LocationUpdates}, nil
}
