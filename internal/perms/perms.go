// Package perms holds the flat-file permission allow-list: which users
// may run which prefix commands, and who may touch the whitelist.
package perms

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Roles backed by per-command allow-lists in the permissions file.
const (
	RoleAll         = "all"
	RoleSeniorStaff = "seniorstaff"
	RoleStaff       = "staff"
	RoleSuperAdmin  = "superadmin"
	RoleBan         = "ban"
	RoleUnban       = "unban"
	RoleCheck       = "check"
	RoleWhitelist   = "whitelist"
)

var prefixRoles = []string{RoleAll, RoleSeniorStaff, RoleStaff, RoleSuperAdmin, RoleBan, RoleUnban, RoleCheck}

// KnownRole reports whether role names a grantable allow-list.
func KnownRole(role string) bool {
	role = strings.ToLower(role)
	return role == RoleWhitelist || slices.Contains(prefixRoles, role)
}

type document struct {
	Prefix    map[string][]string `json:"prefix"`
	Whitelist []string            `json:"whitelist"`
}

func (d *document) normalize() {
	if d.Prefix == nil {
		d.Prefix = map[string][]string{}
	}
	for _, role := range prefixRoles {
		if d.Prefix[role] == nil {
			d.Prefix[role] = []string{}
		}
	}
	if d.Whitelist == nil {
		d.Whitelist = []string{}
	}
}

// Store reads and writes the permissions file. Admin ids bypass every
// check and cannot be revoked through the file.
type Store struct {
	path   string
	admins map[string]struct{}
	mu     sync.Mutex
}

func NewStore(path string, adminIDs []string) *Store {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Store{path: path, admins: admins}
}

// IsAdmin reports whether userID is a hardcoded admin.
func (s *Store) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

// Give adds userID to the role's allow-list.
func (s *Store) Give(role, userID string) error {
	return s.update(role, userID, func(list []string, id string) []string {
		if slices.Contains(list, id) {
			return list
		}
		return append(list, id)
	})
}

// Remove drops userID from the role's allow-list. Removing an absent id
// is not an error.
func (s *Store) Remove(role, userID string) error {
	return s.update(role, userID, func(list []string, id string) []string {
		return slices.DeleteFunc(list, func(x string) bool { return x == id })
	})
}

// CanUsePrefix reports whether userID may run the named prefix command.
func (s *Store) CanUsePrefix(userID, command string) bool {
	if s.IsAdmin(userID) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return false
	}

	if slices.Contains(doc.Prefix[RoleAll], userID) {
		return true
	}
	return slices.Contains(doc.Prefix[strings.ToLower(command)], userID)
}

// CanUseWhitelist reports whether userID may run whitelist commands.
func (s *Store) CanUseWhitelist(userID string) bool {
	if s.IsAdmin(userID) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return false
	}
	return slices.Contains(doc.Whitelist, userID) || slices.Contains(doc.Prefix[RoleAll], userID)
}

func (s *Store) update(role, userID string, apply func([]string, string) []string) error {
	role = strings.ToLower(role)
	if !KnownRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	if role == RoleWhitelist {
		doc.Whitelist = apply(doc.Whitelist, userID)
	} else {
		doc.Prefix[role] = apply(doc.Prefix[role], userID)
	}
	return s.write(doc)
}

// read loads the document, tolerating a missing file and any missing
// fields. A corrupt file resets to the empty shape rather than locking
// every operator out permanently.
func (s *Store) read() (document, error) {
	var doc document

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc.normalize()
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("could not read permissions file %s: %w", s.path, err)
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		doc = document{}
	}
	doc.normalize()
	return doc, nil
}

func (s *Store) write(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("could not write permissions file %s: %w", s.path, err)
	}
	return os.Rename(tmp, s.path)
}
