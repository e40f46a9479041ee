// Package tileapi is a minimal client for the unofficial Tile tracker API:
// client registration, session establishment, device resolution and location
// history retrieval. It covers exactly the endpoints the sync pipeline needs.
package tileapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "1.0"

// Config carries the fixed application-identification values sent with every
// request. ClientID is the durable client identity registered with the API.
type Config struct {
	BaseURL    string
	ClientID   string
	AppID      string
	AppVersion string
	Locale     string
	UserAgent  string
}

// Session is the credential bundle produced by session establishment. It is
// valid for the lifetime of one run.
type Session struct {
	UserID       string
	CookieHeader string
}

type Client struct {
	baseURL    string
	clientID   string
	appID      string
	appVersion string
	locale     string
	userAgent  string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		clientID:   strings.TrimSpace(cfg.ClientID),
		appID:      strings.TrimSpace(cfg.AppID),
		appVersion: strings.TrimSpace(cfg.AppVersion),
		locale:     strings.TrimSpace(cfg.Locale),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("tile_api_version", apiVersion)
	req.Header.Set("tile_app_id", c.appID)
	req.Header.Set("tile_app_version", c.appVersion)
	req.Header.Set("tile_client_uuid", c.clientID)
	return req, nil
}

func is2xx(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
