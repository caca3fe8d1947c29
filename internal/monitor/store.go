package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Config is the persisted record for one monitored channel.
type Config struct {
	URL        string   `json:"url,omitempty"`
	MessageIDs []string `json:"messageIds,omitempty"`

	// messageId predates messageIds in the on-disk format. It is folded
	// into MessageIDs on load and never written back.
	LegacyMessageID string `json:"messageId,omitempty"`
}

// Patch is a partial update; nil fields leave the stored value untouched.
type Patch struct {
	URL        *string
	MessageIDs *[]string
}

// Store persists monitor configs for one monitor kind in a single JSON
// document keyed by channel id. Every save rewrites the whole document
// (read, merge, atomic replace), so a crash mid-write never corrupts
// entries for other channels.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the config for channelID and whether it exists.
func (s *Store) Load(channelID string) (Config, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return Config{}, false, err
	}
	cfg, ok := all[channelID]
	return cfg, ok, nil
}

// LoadAll returns every persisted config, keyed by channel id.
func (s *Store) LoadAll() (map[string]Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// Save merges patch into the stored config for channelID.
func (s *Store) Save(channelID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}

	cfg := all[channelID]
	if patch.URL != nil {
		cfg.URL = *patch.URL
	}
	if patch.MessageIDs != nil {
		cfg.MessageIDs = append([]string(nil), (*patch.MessageIDs)...)
	}
	all[channelID] = cfg

	return s.writeAll(all)
}

// Delete removes the config for channelID. Deleting a missing entry is
// not an error.
func (s *Store) Delete(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[channelID]; !ok {
		return nil
	}
	delete(all, channelID)
	return s.writeAll(all)
}

func (s *Store) readAll() (map[string]Config, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read monitor store %s: %w", s.path, err)
	}

	all := map[string]Config{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &all); err != nil {
			return nil, fmt.Errorf("monitor store %s is corrupt: %w", s.path, err)
		}
	}

	for id, cfg := range all {
		if cfg.LegacyMessageID != "" && len(cfg.MessageIDs) == 0 {
			cfg.MessageIDs = []string{cfg.LegacyMessageID}
		}
		cfg.LegacyMessageID = ""
		all[id] = cfg
	}
	return all, nil
}

func (s *Store) writeAll(all map[string]Config) error {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("could not write monitor store %s: %w", s.path, err)
	}
	return os.Rename(tmp, s.path)
}
