package tileapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ListDeviceIDs returns the identifiers of every device state entry on the
// account, in list order. Any failure here aborts device resolution; there is
// no per-device fallback at this stage.
func (c *Client) ListDeviceIDs(ctx context.Context, session Session) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tiles/tile_states", nil)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	req.Header.Set("Cookie", session.CookieHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer drainAndClose(resp.Body)

	if !is2xx(resp.StatusCode) {
		return nil, &APIError{Op: "list devices", StatusCode: resp.StatusCode}
	}

	var parsed struct {
		Result []struct {
			TileID string `json:"tile_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("list devices: decode response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Result))
	for _, entry := range parsed.Result {
		id := strings.TrimSpace(entry.TileID)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetDeviceName fetches the details of one device and returns its name. The
// API answers 412 for group pseudo-entries that carry no details.
func (c *Client) GetDeviceName(ctx context.Context, session Session, deviceID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tiles/"+deviceID, nil)
	if err != nil {
		return "", fmt.Errorf("device details: %w", err)
	}
	req.Header.Set("Cookie", session.CookieHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("device details: %w", err)
	}
	defer drainAndClose(resp.Body)

	if !is2xx(resp.StatusCode) {
		return "", &APIError{Op: "device details", StatusCode: resp.StatusCode}
	}

	var parsed struct {
		Result struct {
			Name string `json:"name"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("device details: decode response: %w", err)
	}
	return parsed.Result.Name, nil
}

// ResolveDeviceByName maps a human-readable device name to its identifier by
// probing each candidate in list order. First exact match wins. Probes that
// fail are skipped rather than aborting the resolution: 412 marks a
// group pseudo-entry, and partial backend flakiness across many devices
// should not fail the whole run. A miss after exhausting all candidates
// returns ErrDeviceNotFound.
func (c *Client) ResolveDeviceByName(ctx context.Context, session Session, name string) (string, error) {
	ids, err := c.ListDeviceIDs(ctx, session)
	if err != nil {
		return "", err
	}

	for _, id := range ids {
		deviceName, err := c.GetDeviceName(ctx, session, id)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusPreconditionFailed {
				c.log.Debug("skipping device without details", "device_id", id)
			} else {
				c.log.Warn("skipping device after failed detail probe", "device_id", id, "error", err)
			}
			continue
		}
		if deviceName == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("resolve device %q: %w", name, ErrDeviceNotFound)
}
