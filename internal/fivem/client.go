package fivem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// PlayersSuffix is the only accepted path suffix for roster endpoints.
	PlayersSuffix = "/players.json"
	// InfoSuffix is the only accepted path suffix for info endpoints.
	InfoSuffix = "/info.json"

	// Retry-After values above this are not honoured.
	maxRetryAfter = 10 * time.Second

	userAgent = "legacybot/1.0"
)

// Client polls a FiveM server's public JSON endpoints. A Client performs
// plain GETs only and keeps no monitor state.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// ValidatePlayersURL checks that raw is an http(s) URL for a players.json
// endpoint.
func ValidatePlayersURL(raw string) error {
	return validateURL(raw, PlayersSuffix)
}

// ValidateInfoURL checks that raw is an http(s) URL for an info.json
// endpoint.
func ValidateInfoURL(raw string) error {
	return validateURL(raw, InfoSuffix)
}

func validateURL(raw, suffix string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %s must use http or https", raw)
	}
	if !strings.HasSuffix(u.Path, suffix) {
		return fmt.Errorf("url %s must end with %s", raw, suffix)
	}
	return nil
}

// FetchPlayers retrieves and normalizes the roster at playersURL.
func (c *Client) FetchPlayers(ctx context.Context, playersURL string) ([]Player, error) {
	body, err := c.get(ctx, playersURL)
	if err != nil {
		return nil, err
	}
	return DecodeRoster(body)
}

// FetchInfo retrieves the server's info.json.
func (c *Client) FetchInfo(ctx context.Context, infoURL string) (Info, error) {
	body, err := c.get(ctx, infoURL)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, ErrUnrecognizedShape
	}
	return info, nil
}

// FetchStatus polls info.json and players.json under base and combines
// them into a snapshot. A roster failure alone does not make the server
// offline; info.json is the liveness signal.
func (c *Client) FetchStatus(ctx context.Context, base string) (Snapshot, error) {
	base = strings.TrimSuffix(base, "/")

	info, err := c.FetchInfo(ctx, base+InfoSuffix)
	if err != nil {
		return Snapshot{}, err
	}

	players, err := c.FetchPlayers(ctx, base+PlayersSuffix)
	if err != nil {
		log.Warn().Err(err).Msg("Roster request failed, reporting empty roster")
		players = nil
	}

	name := info.Vars.Hostname
	if name == "" {
		name = info.Vars.ProjectName
	}
	maxPlayers, _ := strconv.Atoi(info.Vars.MaxClients)
	version := info.Server
	if version == "" {
		version = "unknown"
	}

	return Snapshot{
		Online:         true,
		ServerName:     name,
		Version:        version,
		CurrentPlayers: len(players),
		MaxPlayers:     maxPlayers,
		Players:        players,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("Request failed")
		return nil, ErrUnreachable
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, &StatusError{Code: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, ErrUnreachable
	}
	return body, nil
}

func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if delay > maxRetryAfter {
		return maxRetryAfter
	}
	return delay
}
