package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/legacyrp/legacybot/internal/fivem"
)

const (
	// MaxBodyLen is Discord's hard limit for an embed description.
	MaxBodyLen = 4096

	// DefaultPageCapacity is the fixed number of roster entries per page.
	// The source history wavered between 20 and 40; 40 keeps a full page
	// well under MaxBodyLen even with maximum-length player names.
	DefaultPageCapacity = 40

	// OfflineMarker is the fixed indicator shown when the server cannot
	// be reached.
	OfflineMarker = "🔴 Offline"

	// OnlineMarker opens the summary of a reachable server.
	OnlineMarker = "🟢 Online"

	// NoPlayersMarker is the placeholder body line for an empty roster.
	NoPlayersMarker = "No players online."

	reconnectHint = "Trying to reconnect..."

	// GenericServerName is used until a real server name has been seen.
	GenericServerName = "FiveM Server"

	colorOnline  = 0x57F287
	colorOffline = 0xED4245
)

// Page is one rendered unit of monitor output. The first page of a set
// carries the summary fields; later pages carry roster continuation only.
type Page struct {
	Title string
	Body  string
	Color int
	First bool
}

// Presenter converts snapshots into pages. Pagination is a pure function
// of the roster size and Capacity.
type Presenter struct {
	Capacity int
}

func NewPresenter(capacity int) Presenter {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	return Presenter{Capacity: capacity}
}

// StatusPages renders the aggregate status monitor. It always returns
// exactly one page.
func (p Presenter) StatusPages(snapshot fivem.Snapshot, lastName, uptime string, now time.Time) []Page {
	title := snapshot.ServerName
	if title == "" {
		title = lastName
	}
	if title == "" {
		title = GenericServerName
	}

	if !snapshot.Online {
		body := OfflineMarker + "\n" + reconnectHint
		return []Page{{Title: title, Body: body, Color: colorOffline, First: true}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", OnlineMarker)
	fmt.Fprintf(&b, "**Players:** %d / %d\n", snapshot.CurrentPlayers, snapshot.MaxPlayers)
	fmt.Fprintf(&b, "**Version:** %s\n", snapshot.Version)
	fmt.Fprintf(&b, "**Uptime:** %s\n", uptime)
	fmt.Fprintf(&b, "**Last Updated:** <t:%d:R>", now.Unix())

	return []Page{{Title: title, Body: b.String(), Color: colorOnline, First: true}}
}

// PlayerPages renders the roster monitor. Offline and empty rosters both
// yield exactly one page; otherwise the roster is cut into Capacity-sized
// chunks, one page each, in roster order.
func (p Presenter) PlayerPages(snapshot fivem.Snapshot, lastName string, now time.Time) []Page {
	name := snapshot.ServerName
	if name == "" {
		name = lastName
	}
	if name == "" {
		name = GenericServerName
	}

	if !snapshot.Online {
		return []Page{{Title: name, Body: OfflineMarker, Color: colorOffline, First: true}}
	}

	summary := fmt.Sprintf("%s — **%d** online — <t:%d:R>", OnlineMarker, len(snapshot.Players), now.Unix())

	if len(snapshot.Players) == 0 {
		body := summary + "\n\n" + NoPlayersMarker
		return []Page{{Title: name, Body: body, Color: colorOnline, First: true}}
	}

	capacity := p.Capacity
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	total := (len(snapshot.Players) + capacity - 1) / capacity

	pages := make([]Page, 0, total)
	for start := 0; start < len(snapshot.Players); start += capacity {
		end := start + capacity
		if end > len(snapshot.Players) {
			end = len(snapshot.Players)
		}
		index := start/capacity + 1

		lines := make([]string, 0, end-start)
		for _, player := range snapshot.Players[start:end] {
			lines = append(lines, fmt.Sprintf("`%d` %s", player.ID, player.Name))
		}

		var body string
		if index == 1 {
			body = summary + "\n\n" + joinBounded(lines, MaxBodyLen-len(summary)-2)
		} else {
			body = joinBounded(lines, MaxBodyLen)
		}

		title := name
		if total > 1 {
			title = fmt.Sprintf("%s (%d/%d)", name, index, total)
		}
		pages = append(pages, Page{Title: title, Body: body, Color: colorOnline, First: index == 1})
	}
	return pages
}

// joinBounded joins lines with newlines, never exceeding limit. When
// lines must be dropped, the result ends with an explicit "and N more"
// marker instead of silent truncation.
func joinBounded(lines []string, limit int) string {
	full := strings.Join(lines, "\n")
	if len(full) <= limit {
		return full
	}

	for kept := len(lines) - 1; kept > 0; kept-- {
		marker := fmt.Sprintf("...and %d more", len(lines)-kept)
		joined := strings.Join(lines[:kept], "\n") + "\n" + marker
		if len(joined) <= limit {
			return joined
		}
	}
	return fmt.Sprintf("...and %d more", len(lines))
}
