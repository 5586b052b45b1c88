package relay

// Event names exchanged with editor clients.
const (
	EventJoin         = "join"
	EventJoined       = "joined"
	EventCodeChange   = "code-change"
	EventSyncCode     = "sync-code"
	EventLeave        = "leave"
	EventDisconnected = "disconnected"
)

type Member struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}

// Joined goes to every member of a room whenever someone joins it.
type Joined struct {
	Members      []Member `json:"members"`
	Username     string   `json:"username"`
	ConnectionID string   `json:"connectionId"`
	CurrentCode  string   `json:"currentCode"`
	Version      int64    `json:"version"`
}

type CodeChange struct {
	Code    string `json:"code"`
	Version int64  `json:"version"`
}

type Disconnected struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}
