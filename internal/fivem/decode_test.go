package fivem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRosterFlatArray(t *testing.T) {
	body := []byte(`[
		{"id": 3, "name": "Krishna Soni", "ping": 40, "identifiers": ["license:abc"]},
		{"id": 7, "name": "John Doe", "ping": 85}
	]`)

	players, err := DecodeRoster(body)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, 3, players[0].ID)
	assert.Equal(t, "Krishna Soni", players[0].Name)
	assert.Equal(t, []string{"license:abc"}, players[0].Identifiers)
	assert.Equal(t, "John Doe", players[1].Name)
}

func TestDecodeRosterEnvelope(t *testing.T) {
	body := []byte(`{"statusCode": 200, "data": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]}`)

	players, err := DecodeRoster(body)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "A", players[0].Name)
	assert.Equal(t, "B", players[1].Name)
}

func TestDecodeRosterEnvelopeError(t *testing.T) {
	body := []byte(`{"statusCode": 503, "data": []}`)

	_, err := DecodeRoster(body)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.Code)
}

func TestDecodeRosterUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"scalar", `42`},
		{"missing data", `{"statusCode": 200}`},
		{"garbage", `<html>nope</html>`},
		{"wrong element type", `["just", "strings"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRoster([]byte(tt.body))
			assert.True(t, errors.Is(err, ErrUnrecognizedShape), "got %v", err)
		})
	}
}

func TestDecodeRosterEmptyArray(t *testing.T) {
	players, err := DecodeRoster([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, players)
}
