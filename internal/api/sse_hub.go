package api

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"cloneops/domain/run"
	"cloneops/internal"
	"cloneops/ports"
)

// SSEHub fans run events out to connected dashboard clients. Every client
// sees every event; there is no per-session routing because the board state
// is global.
type SSEHub struct {
	register   chan chan run.Event
	unregister chan chan run.Event
	broadcast  chan run.Event
	logger     *internal.Logger
}

// NewSSEHub creates the hub and starts its dispatch loop.
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		register:   make(chan chan run.Event, 10),
		unregister: make(chan chan run.Event, 10),
		broadcast:  make(chan run.Event, 100),
		logger:     logger,
	}
	go hub.run()
	return hub
}

// Bridge subscribes the hub to the event bus and forwards until the context
// ends. Launch once at startup.
func (h *SSEHub) Bridge(ctx context.Context, bus ports.EventSubscriber) {
	events, cancel := bus.Subscribe(100)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(e)
		}
	}
}

func (h *SSEHub) run() {
	clients := make(map[chan run.Event]bool)
	for {
		select {
		case ch := <-h.register:
			clients[ch] = true
			h.logger.Debug("sse client connected (total: %d)", len(clients))

		case ch := <-h.unregister:
			if clients[ch] {
				delete(clients, ch)
				close(ch)
			}
			h.logger.Debug("sse client disconnected (remaining: %d)", len(clients))

		case event := <-h.broadcast:
			for ch := range clients {
				select {
				case ch <- event:
				default:
					// Slow client, drop rather than stall the loop.
				}
			}
		}
	}
}

// Broadcast queues one event for delivery to every connected client. Drops
// when the hub itself is saturated.
func (h *SSEHub) Broadcast(event run.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("sse broadcast queue full, dropping %s event", event.Kind)
	}
}

// HandleSSE streams run events to one client until it disconnects.
func (h *SSEHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan := make(chan run.Event, 10)
	select {
	case h.register <- clientChan:
	default:
		c.JSON(500, gin.H{"ok": false, "error": "event hub registration failed"})
		return
	}
	defer func() {
		select {
		case h.unregister <- clientChan:
		default:
		}
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-clientChan:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent(string(event.Kind), string(payload))
			return true

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status":"alive"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
