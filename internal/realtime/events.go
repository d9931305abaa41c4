// Package realtime fans out project mutations to websocket clients that
// joined the project's room. Delivery is best effort: no ack, no replay.
package realtime

import "encoding/json"

const (
	EventProjectUpdated = "project-updated"
	EventTaskCreated    = "task-created"
	EventTaskUpdated    = "task-updated"
	EventTaskDeleted    = "task-deleted"
)

// Control frames exchanged with a single client.
const (
	TypeConnected    = "connected"
	TypeJoined       = "joined"
	TypeLeft         = "left"
	TypeError        = "error"
	TypeJoinProject  = "join-project"
	TypeLeaveProject = "leave-project"
)

// Broadcaster is what request handlers depend on. Emit must only be called
// after the corresponding write committed.
type Broadcaster interface {
	Emit(projectID uint, event string, payload any)
}

// Frame is the wire shape of every server to client message.
type Frame struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

func encodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(uint, string, any) {}
