package monitor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacyrp/legacybot/internal/fivem"
)

func roster(n int) []fivem.Player {
	players := make([]fivem.Player, n)
	for i := range players {
		players[i] = fivem.Player{ID: i + 1, Name: fmt.Sprintf("Player %d", i+1)}
	}
	return players
}

func playerLines(pages []Page) []string {
	var lines []string
	for _, page := range pages {
		for _, line := range strings.Split(page.Body, "\n") {
			if strings.HasPrefix(line, "`") {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func TestStatusPagesOffline(t *testing.T) {
	p := NewPresenter(DefaultPageCapacity)

	pages := p.StatusPages(fivem.Snapshot{}, "Legacy RP", "0m", time.Now())

	require.Len(t, pages, 1)
	assert.Equal(t, "Legacy RP", pages[0].Title)
	assert.Contains(t, pages[0].Body, OfflineMarker)
	assert.True(t, pages[0].First)
}

func TestStatusPagesOfflineGenericName(t *testing.T) {
	p := NewPresenter(DefaultPageCapacity)

	pages := p.StatusPages(fivem.Snapshot{}, "", "0m", time.Now())

	require.Len(t, pages, 1)
	assert.Equal(t, GenericServerName, pages[0].Title)
}

func TestStatusPagesOnline(t *testing.T) {
	p := NewPresenter(DefaultPageCapacity)
	snapshot := fivem.Snapshot{
		Online:         true,
		ServerName:     "Legacy RP",
		Version:        "FXServer 1.0",
		CurrentPlayers: 57,
		MaxPlayers:     128,
	}

	pages := p.StatusPages(snapshot, "", "2d 3h 4m", time.Unix(1700000000, 0))

	require.Len(t, pages, 1)
	body := pages[0].Body
	assert.Contains(t, body, OnlineMarker)
	assert.Contains(t, body, "57 / 128")
	assert.Contains(t, body, "FXServer 1.0")
	assert.Contains(t, body, "2d 3h 4m")
	assert.Contains(t, body, "<t:1700000000:R>")
}

func TestPlayerPagesOffline(t *testing.T) {
	p := NewPresenter(DefaultPageCapacity)

	pages := p.PlayerPages(fivem.Snapshot{}, "", time.Now())

	require.Len(t, pages, 1)
	assert.Equal(t, OfflineMarker, pages[0].Body)
}

func TestPlayerPagesEmptyRoster(t *testing.T) {
	p := NewPresenter(DefaultPageCapacity)
	snapshot := fivem.Snapshot{Online: true, ServerName: "Legacy RP"}

	pages := p.PlayerPages(snapshot, "", time.Now())

	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Body, NoPlayersMarker)
	assert.True(t, pages[0].First)
}

// 85 players at capacity 40 paginate 40/40/5; only the first page takes
// the summary line.
func TestPlayerPagesPagination(t *testing.T) {
	p := NewPresenter(40)
	snapshot := fivem.Snapshot{Online: true, ServerName: "Legacy RP", Players: roster(85)}

	pages := p.PlayerPages(snapshot, "", time.Now())

	require.Len(t, pages, 3)
	assert.True(t, pages[0].First)
	assert.False(t, pages[1].First)
	assert.False(t, pages[2].First)
	assert.Contains(t, pages[0].Body, OnlineMarker)
	assert.NotContains(t, pages[1].Body, OnlineMarker)
	assert.Equal(t, "Legacy RP (1/3)", pages[0].Title)
	assert.Equal(t, "Legacy RP (3/3)", pages[2].Title)

	lines := playerLines(pages)
	require.Len(t, lines, 85)
	assert.Equal(t, "`1` Player 1", lines[0])
	assert.Equal(t, "`85` Player 85", lines[84])

	// 40 / 40 / 5 split
	assert.Len(t, playerLines(pages[:1]), 40)
	assert.Len(t, playerLines(pages[1:2]), 40)
	assert.Len(t, playerLines(pages[2:]), 5)
}

func TestPlayerPagesPageCountFormula(t *testing.T) {
	tests := []struct {
		players  int
		capacity int
		pages    int
	}{
		{0, 40, 1},
		{1, 40, 1},
		{40, 40, 1},
		{41, 40, 2},
		{80, 40, 2},
		{85, 40, 3},
		{10, 20, 1},
		{21, 20, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d players capacity %d", tt.players, tt.capacity), func(t *testing.T) {
			p := NewPresenter(tt.capacity)
			snapshot := fivem.Snapshot{Online: true, Players: roster(tt.players)}
			pages := p.PlayerPages(snapshot, "", time.Now())
			assert.Len(t, pages, tt.pages)
			assert.Len(t, playerLines(pages), tt.players)
		})
	}
}

func TestPlayerPagesDeterministic(t *testing.T) {
	p := NewPresenter(40)
	snapshot := fivem.Snapshot{Online: true, ServerName: "Legacy RP", Players: roster(123)}
	now := time.Unix(1700000000, 0)

	first := p.PlayerPages(snapshot, "", now)
	second := p.PlayerPages(snapshot, "", now)
	assert.Equal(t, first, second)
}

func TestPlayerPagesLastKnownName(t *testing.T) {
	p := NewPresenter(40)

	pages := p.PlayerPages(fivem.Snapshot{}, "Legacy RP", time.Now())

	require.Len(t, pages, 1)
	assert.Equal(t, "Legacy RP", pages[0].Title)
}

func TestJoinBounded(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = strings.Repeat("x", 80)
	}

	joined := joinBounded(lines, 1000)
	assert.LessOrEqual(t, len(joined), 1000)
	assert.Contains(t, joined, "more")

	// No truncation when everything fits.
	short := joinBounded(lines[:3], 1000)
	assert.NotContains(t, short, "more")
	assert.Equal(t, strings.Join(lines[:3], "\n"), short)
}

func TestPageBodyNeverExceedsLimit(t *testing.T) {
	longName := strings.Repeat("N", 120)
	players := make([]fivem.Player, 40)
	for i := range players {
		players[i] = fivem.Player{ID: i + 1, Name: longName}
	}
	p := NewPresenter(40)

	pages := p.PlayerPages(fivem.Snapshot{Online: true, Players: players}, "", time.Now())
	for _, page := range pages {
		assert.LessOrEqual(t, len(page.Body), MaxBodyLen)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{-time.Minute, "0m"},
		{90 * time.Second, "1m"},
		{3 * time.Hour, "3h 0m"},
		{26*time.Hour + 5*time.Minute, "1d 2h 5m"},
		{48 * time.Hour, "2d 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
