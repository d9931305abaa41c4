package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/monocle-dev/taskforge/internal/apperr"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// JoinAuthorizer decides whether userID may join the project's room.
type JoinAuthorizer func(ctx context.Context, userID, projectID uint) error

type inboundMessage struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id"`
}

// Serve runs the socket until the peer goes away. It registers client with
// hub and always unregisters it on return.
func Serve(ctx context.Context, conn *websocket.Conn, hub *Hub, client *Client, authorize JoinAuthorizer) {
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		writePump(conn, client)
		close(done)
	}()

	hub.sendTo(client, Frame{Type: TypeConnected, Data: map[string]string{"client_id": client.ID}})

	readPump(ctx, conn, hub, client, authorize)

	hub.Unregister(client)
	<-done

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"user_id":   client.UserID,
	}).Info("WebSocket connection closed")
}

func readPump(ctx context.Context, conn *websocket.Conn, hub *Hub, client *Client, authorize JoinAuthorizer) {
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("client_id", client.ID).Warn("WebSocket read error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.ProjectID == 0 {
			hub.sendTo(client, Frame{Type: TypeError, Message: "Invalid message"})
			continue
		}

		switch msg.Type {
		case TypeJoinProject:
			if err := authorize(ctx, client.UserID, msg.ProjectID); err != nil {
				hub.sendTo(client, Frame{Type: TypeError, ProjectID: msg.ProjectID, Message: apperr.PublicMessage(err)})
				continue
			}
			hub.Join(client, msg.ProjectID)
			hub.sendTo(client, Frame{Type: TypeJoined, ProjectID: msg.ProjectID})
		case TypeLeaveProject:
			hub.Leave(client, msg.ProjectID)
			hub.sendTo(client, Frame{Type: TypeLeft, ProjectID: msg.ProjectID})
		default:
			hub.sendTo(client, Frame{Type: TypeError, ProjectID: msg.ProjectID, Message: "Unknown message type"})
		}
	}
}

// writePump owns all writes to conn. It exits once the client queue is
// closed or a write fails, closing the connection either way.
func writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithError(err).WithField("client_id", client.ID).Warn("Failed to write frame")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
