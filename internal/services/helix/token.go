// Package helix is a minimal Twitch Helix client covering what the registry
// needs: an app access token, the channel's archive VOD listing, and single
// VOD lookups.
package helix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const tokenExpiryBuffer = 60 * time.Second

// TokenSource fetches and caches an app access token via the client
// credentials flow. Helix never hands these tokens to a user context, so a
// single cached token serves every request.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	TokenURL     string

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Get returns a cached token, refreshing when it is within the expiry
// buffer.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.token != "" && time.Until(ts.expiresAt) > tokenExpiryBuffer {
		token := ts.token
		ts.mu.RUnlock()
		return token, nil
	}
	ts.mu.RUnlock()
	return ts.refresh(ctx)
}

func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token != "" && time.Until(ts.expiresAt) > tokenExpiryBuffer {
		return ts.token, nil
	}
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing twitch client id/secret")
	}

	endpoint := ts.TokenURL
	if endpoint == "" {
		endpoint = "https://id.twitch.tv/oauth2/token"
	}

	form := url.Values{}
	form.Set("client_id", ts.ClientID)
	form.Set("client_secret", ts.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := ts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twitch token request failed: %s: %s", resp.Status, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", errors.New("empty access_token in twitch response")
	}

	ts.token = payload.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return ts.token, nil
}
