package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "code-change"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// ──────────────────────────── Inbound bodies ─────────────────────────────────

// JoinRequest is the body for "join".
type JoinRequest struct {
	RoomID   string `json:"roomId"   validate:"required,max=256"`
	Username string `json:"username" validate:"required,max=128"`
}

// CodeChangeRequest is the body for "code-change".
type CodeChangeRequest struct {
	RoomID  string `json:"roomId"  validate:"required,max=256"`
	Code    string `json:"code"`
	Version int64  `json:"version" validate:"min=0"`
}

// SyncCodeRequest is the body for "sync-code": push code to one peer.
type SyncCodeRequest struct {
	ConnectionID string `json:"connectionId" validate:"required"`
	Code         string `json:"code"`
	Version      int64  `json:"version"      validate:"min=0"`
}

// LeaveRequest is the body for "leave".
type LeaveRequest struct {
	RoomID string `json:"roomId" validate:"required,max=256"`
}
