package tileapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocationHistoryPassesWindowBounds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tiles/location/history/id-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("start_timestamp_ms"); got != "1000" {
			t.Errorf("unexpected start: %s", got)
		}
		if got := r.URL.Query().Get("end_timestamp_ms"); got != "5000" {
			t.Errorf("unexpected end: %s", got)
		}
		_, _ = w.Write([]byte(`{"result":{"location_updates":[{"location_timestamp":2000,"latitude":51.5,"longitude":-0.12}]}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	payload, err := client.LocationHistory(context.Background(), Session{CookieHeader: "session=abc123"},
		"id-1", time.UnixMilli(1000), time.UnixMilli(5000))
	if err != nil {
		t.Fatalf("LocationHistory error = %v", err)
	}
	if len(payload.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(payload.Updates))
	}
}

func TestLocationHistoryMissingFieldYieldsEmptyPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	payload, err := client.LocationHistory(context.Background(), Session{}, "id-1",
		time.UnixMilli(0), time.UnixMilli(1000))
	if err != nil {
		t.Fatalf("expected empty payload instead of error, got %v", err)
	}
	if payload == nil || len(payload.Updates) != 0 {
		t.Fatalf("expected well-formed empty payload, got %#v", payload)
	}
}

func TestLocationHistoryEmptyArrayIsNotMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"location_updates":[]}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	payload, err := client.LocationHistory(context.Background(), Session{}, "id-1",
		time.UnixMilli(0), time.UnixMilli(1000))
	if err != nil {
		t.Fatalf("LocationHistory error = %v", err)
	}
	if len(payload.Updates) != 0 {
		t.Fatalf("expected zero updates, got %d", len(payload.Updates))
	}
}

func TestLocationHistoryNon2xxIsHardFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.LocationHistory(context.Background(), Session{}, "id-1",
		time.UnixMilli(0), time.UnixMilli(1000))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected APIError with 500, got %v", err)
	}
}
