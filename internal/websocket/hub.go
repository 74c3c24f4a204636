package chatws

import (
	"sync"

	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

// Hub tracks open connections per user so they can be counted and torn
// down together on shutdown. Live data flows through the broker, not here.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	count      chan countRequest
	done       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
}

type countRequest struct {
	userID string
	reply  chan int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.viewer.ID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.viewer.ID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.viewer.ID]
			if !ok {
				continue
			}
			delete(set, client)
			if len(set) == 0 {
				delete(h.clients, client.viewer.ID)
			}
		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])
		case <-h.done:
			total := 0
			for _, set := range h.clients {
				for client := range set {
					client.close()
					total++
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			logger.Info().Int("connections", total).Msg("websocket hub stopped")
			return
		}
	}
}

// Register reports false once the hub has been shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Connections returns how many sockets userID currently holds open.
func (h *Hub) Connections(userID string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{userID: userID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Shutdown closes every registered connection and waits for Run to exit.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}
