package types

import "github.com/DoyleJ11/auction-room-backend/internal/engine"

type ClientMessage struct {
	Type     string `json:"type"`
	Team     string `json:"team,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgRejected      = "Rejected"
	MsgError         = "Error"
)

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Rejected" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Command string        `json:"command,omitempty"`
	Error   string        `json:"error,omitempty"`
}
