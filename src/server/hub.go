package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"orderbook-observer/src/metrics"
	"orderbook-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const commandTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub owns the client set; every view is fanned out from here.
func (s *APIServer) runHub() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			metrics.ViewClients.Set(float64(len(s.clients)))

			// Send the current view on connect
			initial := s.Service.CurrentView()
			initial.Type = "INITIAL"
			client.send <- initial

		case client := <-s.unregister:
			s.dropClient(client)

		case msg := <-s.direct:
			if _, ok := s.clients[msg.client]; !ok {
				continue
			}
			select {
			case msg.client.send <- msg.payload:
			default:
				s.Logger.Warning("Dropping slow view client %s", msg.client.id)
				metrics.ViewDroppedTotal.WithLabelValues("slow_client").Inc()
				s.dropClient(msg.client)
			}

		case view := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestView = view
			s.stateMutex.Unlock()

			for client := range s.clients {
				select {
				case client.send <- view:
				default:
					// Client too slow, disconnect to keep the hub moving
					s.Logger.Warning("Dropping slow view client %s", client.id)
					metrics.ViewDroppedTotal.WithLabelValues("slow_client").Inc()
					s.dropClient(client)
				}
			}

		case <-s.quit:
			for client := range s.clients {
				s.dropClient(client)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) dropClient(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
	metrics.ViewClients.Set(float64(len(s.clients)))
}

// -----------------------------------------------------------------------------

// reply hands a message for one client to the hub. Replies to clients the hub
// has already dropped are discarded.
func (s *APIServer) reply(client *Client, payload interface{}) {
	select {
	case s.direct <- clientMessage{client: client, payload: payload}:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) clientCount() int {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.connections
}

// -----------------------------------------------------------------------------
// IViewPublisher
// -----------------------------------------------------------------------------

// Publish queues a view for broadcast and never blocks the caller.
func (s *APIServer) Publish(view models.MBookView) {
	view.Type = "UPDATE"
	select {
	case s.broadcast <- view:
	default:
		metrics.ViewDroppedTotal.WithLabelValues("queue_full").Inc()
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}
	s.trackConnection(1)
	s.Logger.Debug("View client %s connected from %s", client.id, c.ClientIP())

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------

func (s *APIServer) trackConnection(delta int) {
	s.stateMutex.Lock()
	s.connections += delta
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

type commandReply struct {
	Type    string `json:"type"` // "ACK" or "ERROR"
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
}

// HandleClientMessage applies one view command. Views resulting from the
// command arrive through the normal broadcast.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MViewCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client %s", err, client.id)
		client.conn.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Command {
	case "set_symbol":
		err = s.Service.SetSymbol(ctx, cmd.Symbol)
	case "set_time_travel":
		err = s.Service.SetTimeTravel(ctx, cmd.Enabled)
	case "toggle_time_travel":
		err = s.Service.ToggleTimeTravel(ctx)
	case "scrub":
		err = s.Service.Scrub(ctx, cmd.Index)
	case "get_view":
		view := s.Service.CurrentView()
		view.Type = "INITIAL"
		s.reply(client, view)
		return
	default:
		s.reply(client, commandReply{Type: "ERROR", Command: cmd.Command, Error: "unknown command"})
		return
	}

	reply := commandReply{Type: "ACK", Command: cmd.Command}
	if err != nil {
		reply.Type = "ERROR"
		reply.Error = err.Error()
	}
	s.reply(client, reply)
}
