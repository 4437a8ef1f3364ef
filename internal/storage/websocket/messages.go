package websocket

import (
	"encoding/json"

	"github.com/sceneannotate/annotator/pkg/core"
)

// Message types of the viewer protocol.
const (
	TypeSaveSnapshot = "save_snapshot"
	TypeAck          = "ack"
)

// Envelope wraps every message sent over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the viewer's reply. ID echoes the request ID; a non-empty
// Error means the viewer rejected the request.
type AckMessage struct {
	Type  string `json:"type"`
	For   string `json:"for"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// SaveSnapshotPayload carries one snapshot under a client-chosen ID.
type SaveSnapshotPayload struct {
	ID       string         `json:"id"`
	Snapshot *core.Snapshot `json:"snapshot"`
}
