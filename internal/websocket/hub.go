package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"collisio/internal/infrastructure"
	"collisio/internal/report"
)

// Message types
const (
	TypeConnection = "connection"
	TypeProgress   = "progress"
	TypeComplete   = "complete"
	TypeError      = "error"
)

// broadcastBuffer bounds queued messages; a full queue drops the newest message
const broadcastBuffer = 256

// Message is the envelope of every frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

type envelope struct {
	runID string
	data  []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.Metrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine; calling it twice is a no-op
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.RecordWSConnection(ctx, 1)
			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("run_filter", client.runID),
				slog.String("remote_addr", client.remoteAddr))

			hello, err := encode(Message{
				Type:    TypeConnection,
				RunID:   client.runID,
				Data:    map[string]string{"status": "connected", "client_id": client.id},
				TraceID: client.traceID,
			})
			if err == nil {
				select {
				case client.send <- hello:
				default:
				}
			}

		case client := <-h.unregister:
			h.remove(client, "closed")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.wants(msg.runID) {
					targets = append(targets, client)
				}
			}
			h.mu.RUnlock()

			sent, dropped := 0, 0
			for _, client := range targets {
				select {
				case client.send <- msg.data:
					sent++
				default:
					dropped++
					h.remove(client, "send buffer full")
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(sent)
			h.messagesDropped += int64(dropped)
			h.mu.Unlock()
			h.metrics.RecordWSBroadcast(ctx, sent, dropped)
		}
	}
}

// remove unregisters client and closes its send channel exactly once
func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.RecordWSConnection(context.Background(), -1)
	h.logger.InfoContext(client.context(), "Client unregistered",
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// Publish queues msg for every client listening to its run. It never blocks;
// when the queue is full or the hub is stopped the message is dropped.
func (h *Hub) Publish(msg Message) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msg.Type))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{runID: msg.RunID, data: data}:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.Warn("Broadcast queue full, message dropped",
			slog.String("message_type", msg.Type),
			slog.String("run_id", msg.RunID))
	}
}

// Progress returns a report.Progress that publishes updates for runID
func (h *Hub) Progress(runID string) report.Progress {
	return report.ProgressFunc(func(ctx context.Context, u report.Update) {
		h.Publish(Message{
			Type:    TypeProgress,
			RunID:   runID,
			Data:    u,
			TraceID: infrastructure.GetTraceID(ctx),
		})
	})
}

// Complete announces the end of a run with its result payload
func (h *Hub) Complete(runID string, data interface{}) {
	h.Publish(Message{Type: TypeComplete, RunID: runID, Data: data})
}

// Fail announces a failed run
func (h *Hub) Fail(runID string, err error) {
	h.Publish(Message{Type: TypeError, RunID: runID, Data: map[string]string{"message": err.Error()}})
}

// Register hands client to the hub loop. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes client; it is safe to call after Stop.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters
func (h *Hub) Stats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]int64{
		"active_clients":    int64(len(h.clients)),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}
