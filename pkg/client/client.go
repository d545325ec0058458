// Package client is a Go client for the course marketplace API that keeps
// the signed-in session in a SessionStore.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired is returned when the server rejects the stored token.
// The session has already been cleared when it is returned.
var ErrSessionExpired = errors.New("session expired")

// ErrNotSignedIn is returned by calls that need a session when there is none
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx answer other than 401
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client talks to the API on behalf of one user
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore

	mu      sync.RWMutex
	session *Session
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for baseURL and loads the stored session once
func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	c.session = session
	return c, nil
}

// Session returns a copy of the current session, or nil when signed out
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

func (c *Client) setSession(session *Session) error {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return c.store.Save(session)
}

// updateUser refreshes the user snapshot of a session still holding token
func (c *Client) updateUser(token string, user *User) error {
	c.mu.Lock()
	if c.session == nil || c.session.Token != token {
		c.mu.Unlock()
		return nil
	}
	updated := Session{Token: token, User: user}
	c.session = &updated
	c.mu.Unlock()
	return c.store.Save(&updated)
}

// clearSession forgets the session if it still holds token. A session
// created by a concurrent sign in is left alone.
func (c *Client) clearSession(token string) error {
	c.mu.Lock()
	if c.session == nil || c.session.Token != token {
		c.mu.Unlock()
		return nil
	}
	c.session = nil
	c.mu.Unlock()
	return c.store.Clear()
}

// do sends one request and decodes a 2xx body into out.
// A 401 on an authenticated request clears the session.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token := c.token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		if err := c.clearSession(token); err != nil {
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
