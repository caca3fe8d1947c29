package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Forward is one live-forwarding route from a source channel to the
// channel where it was configured.
type Forward struct {
	SourceGuildID     string    `json:"sourceGuildId"`
	SourceGuildName   string    `json:"sourceGuildName"`
	SourceChannelID   string    `json:"sourceChannelId"`
	SourceChannelName string    `json:"sourceChannelName"`
	TargetChannelID   string    `json:"targetChannelId"`
	TargetChannelName string    `json:"targetChannelName"`
	StartedBy         string    `json:"startedBy"`
	StartedAt         time.Time `json:"startedAt"`
}

// LiveStore persists forwarding routes keyed by source guild and
// channel.
type LiveStore struct {
	path string
	mu   sync.Mutex
}

func NewLiveStore(path string) *LiveStore {
	return &LiveStore{path: path}
}

func forwardKey(guildID, channelID string) string {
	return guildID + "_" + channelID
}

// Add stores a route, replacing any existing route for the same source.
func (s *LiveStore) Add(fw Forward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes, err := s.read()
	if err != nil {
		return err
	}
	routes[forwardKey(fw.SourceGuildID, fw.SourceChannelID)] = fw
	return s.write(routes)
}

// Targets returns the target channels subscribed to a source channel.
func (s *LiveStore) Targets(guildID, channelID string) []Forward {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes, err := s.read()
	if err != nil {
		return nil
	}
	fw, ok := routes[forwardKey(guildID, channelID)]
	if !ok {
		return nil
	}
	return []Forward{fw}
}

// Clear removes every route and returns how many were active.
func (s *LiveStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes, err := s.read()
	if err != nil {
		return 0, err
	}
	if err := s.write(map[string]Forward{}); err != nil {
		return 0, err
	}
	return len(routes), nil
}

func (s *LiveStore) read() (map[string]Forward, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Forward{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read live config %s: %w", s.path, err)
	}
	routes := map[string]Forward{}
	if err := json.Unmarshal(raw, &routes); err != nil {
		return map[string]Forward{}, nil
	}
	return routes, nil
}

func (s *LiveStore) write(routes map[string]Forward) error {
	raw, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
