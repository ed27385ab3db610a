package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"monitoring-workspace-be/pkg/site"
)

var (
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrUnavailable  = errors.New("backend unavailable")
)

// StatusError carries a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

// TokenPair is what the backend issues on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Client talks to the monitoring backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchSites lists the sites visible to the bearer of accessToken.
func (c *Client) FetchSites(ctx context.Context, accessToken string) ([]site.Site, error) {
	raw, err := c.do(ctx, http.MethodGet, "/sites", accessToken, nil)
	if err != nil {
		return nil, err
	}

	// the backend answers either a bare array or {"data": [...]}
	var sites []site.Site
	if err := json.Unmarshal(raw, &sites); err == nil {
		return sites, nil
	}
	var wrapped struct {
		Data []site.Site `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding site list: %w", err)
	}
	return wrapped.Data, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	return c.tokenCall(ctx, "/auth/login", "", body)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.tokenCall(ctx, "/auth/refresh", "", body)
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil)
	return err
}

func (c *Client) tokenCall(ctx context.Context, path, token string, body any) (*TokenPair, error) {
	raw, err := c.do(ctx, http.MethodPost, path, token, body)
	if err != nil {
		return nil, err
	}
	var pair TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("decoding token response: %w", ErrUnauthorized)
	}
	return &pair, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	case resp.StatusCode >= 300:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
