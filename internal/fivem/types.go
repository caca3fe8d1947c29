package fivem

// Player is one entry of a players.json roster.
type Player struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Ping        int      `json:"ping"`
	Identifiers []string `json:"identifiers"`
}

// Info carries the subset of info.json the bot cares about.
type Info struct {
	Server string `json:"server"`
	Vars   struct {
		Hostname    string `json:"sv_hostname"`
		ProjectName string `json:"sv_projectName"`
		MaxClients  string `json:"sv_maxClients"`
	} `json:"vars"`
}

// Snapshot is the canonical per-poll status record. It is ephemeral and
// never persisted.
type Snapshot struct {
	Online         bool
	ServerName     string
	Version        string
	CurrentPlayers int
	MaxPlayers     int
	Players        []Player
}
