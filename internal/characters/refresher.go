package characters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Refresher periodically downloads the character dump and replaces the
// directory file on disk.
type Refresher struct {
	client   *http.Client
	url      string
	path     string
	interval time.Duration
	log      zerolog.Logger
}

func NewRefresher(url, path string, interval time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		client:   &http.Client{Timeout: 2 * time.Minute},
		url:      url,
		path:     path,
		interval: interval,
		log:      log.With().Str("component", "characters").Logger(),
	}
}

// Run refreshes once immediately and then on every interval until the
// context is cancelled. A failed refresh keeps the previous file.
func (r *Refresher) Run(ctx context.Context) {
	if r.url == "" {
		r.log.Info().Msg("no character source configured, refresh disabled")
		return
	}

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	count, err := r.fetchAndStore(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("character refresh failed")
		return
	}
	r.log.Info().Int("characters", count).Dur("took", time.Since(start)).Msg("character directory refreshed")
}

func (r *Refresher) fetchAndStore(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "legacybot/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not fetch character dump: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("character dump returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	// Validate the payload before replacing the file.
	var list []Character
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, fmt.Errorf("character dump is not a valid list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return 0, err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return 0, err
	}
	return len(list), nil
}
