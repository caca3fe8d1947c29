// Package characters serves the roleplay character directory: a JSON
// dump refreshed from the game server's public endpoint and searched by
// staff lookup commands.
package characters

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Character mirrors one entry of the directory dump. The licence field
// keeps the source spelling.
type Character struct {
	CharacterID       int    `json:"character_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	PhoneNumber       string `json:"phone_number"`
	DateOfBirth       string `json:"date_of_birth"`
	LicenceIdentifier string `json:"licence_identifier"`
	JobName           string `json:"job_name"`
	DepartmentName    string `json:"department_name"`
	PositionName      string `json:"position_name"`
}

// FullName returns "First Last".
func (c Character) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Directory reads the character dump from disk. Reads always hit the
// file so a background refresh is picked up without coordination.
type Directory struct {
	path string
	mu   sync.Mutex
}

func NewDirectory(path string) *Directory {
	return &Directory{path: path}
}

// Load parses the directory file. A missing file yields an empty list.
func (d *Directory) Load() ([]Character, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read character directory %s: %w", d.path, err)
	}

	var list []Character
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("could not parse character directory %s: %w", d.path, err)
	}
	return list, nil
}

// ByCID finds characters with the given character id token.
func ByCID(list []Character, token string) []Character {
	id, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	var out []Character
	for _, c := range list {
		if c.CharacterID == id {
			out = append(out, c)
		}
	}
	return out
}

// ByLicense finds characters for a license token, with or without the
// "license:" prefix.
func ByLicense(list []Character, token string) []Character {
	token = strings.TrimSpace(token)
	bare := strings.TrimPrefix(token, "license:")
	var out []Character
	for _, c := range list {
		if c.LicenceIdentifier == token ||
			c.LicenceIdentifier == bare ||
			c.LicenceIdentifier == "license:"+bare {
			out = append(out, c)
		}
	}
	return out
}

// ByPhone finds characters with the exact phone number.
func ByPhone(list []Character, token string) []Character {
	token = strings.TrimSpace(token)
	var out []Character
	for _, c := range list {
		if c.PhoneNumber == token {
			out = append(out, c)
		}
	}
	return out
}

// ByName finds characters whose name contains every search term. Terms
// match case-insensitively against the first name, last name or the
// full "first last" string.
func ByName(list []Character, query string) []Character {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var out []Character
	for _, c := range list {
		first := strings.ToLower(c.FirstName)
		last := strings.ToLower(c.LastName)
		full := first + " " + last

		match := true
		for _, term := range terms {
			if !strings.Contains(first, term) && !strings.Contains(last, term) && !strings.Contains(full, term) {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}
