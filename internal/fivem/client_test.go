package fivem

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlayersURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://45.79.124.203:30120/players.json", false},
		{"valid https", "https://game.example.com/players.json", false},
		{"wrong suffix", "http://45.79.124.203:30120/info.json", true},
		{"no suffix", "http://45.79.124.203:30120", true},
		{"bad scheme", "ftp://host/players.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlayersURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchStatusOnline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"server": "FXServer 1.0", "vars": {"sv_hostname": "Legacy RP", "sv_maxClients": "128"}}`))
	})
	mux.HandleFunc("/players.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(2 * time.Second)
	snapshot, err := client.FetchStatus(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, snapshot.Online)
	assert.Equal(t, "Legacy RP", snapshot.ServerName)
	assert.Equal(t, "FXServer 1.0", snapshot.Version)
	assert.Equal(t, 2, snapshot.CurrentPlayers)
	assert.Equal(t, 128, snapshot.MaxPlayers)
}

func TestFetchStatusRosterFailureIsNotOffline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/info.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"server": "FXServer 1.0", "vars": {"sv_projectName": "Legacy RP"}}`))
	})
	mux.HandleFunc("/players.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(2 * time.Second)
	snapshot, err := client.FetchStatus(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, snapshot.Online)
	assert.Equal(t, "Legacy RP", snapshot.ServerName)
	assert.Zero(t, snapshot.CurrentPlayers)
	assert.Empty(t, snapshot.Players)
}

func TestFetchPlayersHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.FetchPlayers(context.Background(), srv.URL+"/players.json")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetchPlayersRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.FetchPlayers(context.Background(), srv.URL+"/players.json")

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 2*time.Second, rateErr.RetryAfter)
}

func TestFetchPlayersRetryAfterClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.FetchPlayers(context.Background(), srv.URL+"/players.json")

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, maxRetryAfter, rateErr.RetryAfter)
}

func TestFetchPlayersUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing is listening any more

	client := NewClient(500 * time.Millisecond)
	_, err := client.FetchPlayers(context.Background(), srv.URL+"/players.json")
	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}

func TestFetchPlayersTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewClient(100 * time.Millisecond)
	_, err := client.FetchPlayers(context.Background(), srv.URL+"/players.json")
	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}
