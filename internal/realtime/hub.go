package realtime

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sendBuffer = 64

type Client struct {
	ID     string
	UserID uint

	send  chan []byte
	rooms map[uint]struct{} // guarded by Hub.mu
}

func NewClient(userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uint]struct{}),
	}
}

// Messages yields queued frames. It is closed when the client is unregistered.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Hub tracks which clients sit in which project rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[uint]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister drops every room membership of c and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	for projectID := range c.rooms {
		h.removeFromRoom(c, projectID)
	}

	delete(h.clients, c)
	close(c.send)
}

// Join adds c to the project's room. Unregistered clients are ignored.
func (h *Hub) Join(c *Client, projectID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}

	if h.rooms[projectID] == nil {
		h.rooms[projectID] = make(map[*Client]struct{})
	}
	h.rooms[projectID][c] = struct{}{}
	c.rooms[projectID] = struct{}{}

	return true
}

func (h *Hub) Leave(c *Client, projectID uint) {
	h.mu.Lock()
	h.removeFromRoom(c, projectID)
	h.mu.Unlock()
}

func (h *Hub) removeFromRoom(c *Client, projectID uint) {
	delete(c.rooms, projectID)

	if clients, ok := h.rooms[projectID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, projectID)
		}
	}
}

func (h *Hub) RoomSize(projectID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// Rooms lists the projects c has joined.
func (h *Hub) Rooms(c *Client) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]uint, 0, len(c.rooms))
	for projectID := range c.rooms {
		rooms = append(rooms, projectID)
	}
	return rooms
}

func (h *Hub) Emit(projectID uint, event string, payload any) {
	data, err := encodeFrame(Frame{Type: event, ProjectID: projectID, Data: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("Failed to encode realtime event")
		return
	}
	h.Deliver(projectID, data)
}

// Deliver queues an encoded frame for every client currently in the room.
// A client whose queue is full misses the frame.
func (h *Hub) Deliver(projectID uint, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[projectID] {
		select {
		case c.send <- data:
		default:
			log.WithFields(log.Fields{
				"client_id":  c.ID,
				"project_id": projectID,
			}).Warn("Dropping realtime frame for slow client")
		}
	}
}

// sendTo queues a control frame for a single client.
func (h *Hub) sendTo(c *Client, f Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		log.WithError(err).Error("Failed to encode control frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- data:
	default:
		log.WithField("client_id", c.ID).Warn("Dropping control frame for slow client")
	}
}
