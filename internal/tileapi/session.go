package tileapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// EstablishSession performs the two-step handshake: register the client
// identity, then create a credential-bearing session. The returned Session is
// passed to every subsequent call within the run.
func (c *Client) EstablishSession(ctx context.Context, email, password string) (Session, error) {
	if err := c.RegisterClient(ctx); err != nil {
		return Session{}, err
	}
	return c.CreateSession(ctx, email, password)
}

// RegisterClient declares this client identity to the API. The call is
// idempotent for an already-registered client, so every run performs it before
// creating a session.
func (c *Client) RegisterClient(ctx context.Context) error {
	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("app_version", c.appVersion)
	form.Set("locale", c.locale)

	req, err := c.newRequest(ctx, http.MethodPut, "/clients/"+c.clientID, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("register client: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register client: %w", err)
	}
	defer drainAndClose(resp.Body)

	if !is2xx(resp.StatusCode) {
		return &APIError{Op: "register client", StatusCode: resp.StatusCode}
	}
	return nil
}

// CreateSession exchanges account credentials for a session cookie and the
// account identifier. A 2xx response without the nested account identifier is
// still a failure; schema drift must not produce an unusable session. An
// empty cookie after parsing is logged but tolerated.
func (c *Client) CreateSession(ctx context.Context, email, password string) (Session, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/clients/"+c.clientID+"/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	defer drainAndClose(resp.Body)

	if !is2xx(resp.StatusCode) {
		return Session{}, &APIError{Op: "create session", StatusCode: resp.StatusCode}
	}

	var parsed struct {
		Result struct {
			User struct {
				UserUUID string `json:"user_uuid"`
			} `json:"user"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Session{}, fmt.Errorf("create session: decode response: %w", err)
	}
	userID := strings.TrimSpace(parsed.Result.User.UserUUID)
	if userID == "" {
		return Session{}, fmt.Errorf("create session: response missing account identifier")
	}

	// Header name case varies across deployments; Values canonicalizes it.
	cookieHeader := ParseSetCookies(resp.Header.Values("Set-Cookie"))
	if cookieHeader == "" {
		c.log.Warn("session response carried no cookies, downstream calls may fail authorization")
	}

	return Session{UserID: userID, CookieHeader: cookieHeader}, nil
}
