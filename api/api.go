// Package api streams frame statistics to websocket clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is how often stats are broadcast.
	DefaultInterval = time.Second

	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// API is the websocket hub. Run owns the client set; everything else talks
// to it over channels.
type API struct {
	source   SnapshotSource
	log      *zap.Logger
	interval time.Duration
	upgrader websocket.Upgrader

	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	handlers   map[MessageType]MessageHandler
	done       chan struct{}
}

// WSClient is one websocket connection.
type WSClient struct {
	conn      *websocket.Conn
	send      chan WSMessage
	api       *API
	id        string
	done      chan struct{}
	closeOnce sync.Once
}

func NewAPI(source SnapshotSource, log *zap.Logger, interval time.Duration) *API {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	api := &API{
		source:   source,
		log:      log.Named("api"),
		interval: interval,
		upgrader: websocket.Upgrader{
			// Stats are read-only; any page may watch them.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		handlers:   make(map[MessageType]MessageHandler),
		done:       make(chan struct{}),
	}

	api.handlers[MessageTypeGetStats] = api.handleGetStats

	return api
}

// Handler serves the websocket endpoint on /ws.
func (api *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", api.handleWebSocket)
	return mux
}

// Serve runs the hub and an HTTP server on addr until ctx ends.
func (api *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: api.Handler()}
	go api.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		api.log.Info("websocket server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Run handles the main hub logic until ctx ends.
func (api *API) Run(ctx context.Context) {
	ticker := time.NewTicker(api.interval)
	defer func() {
		ticker.Stop()
		for client := range api.clients {
			api.drop(client)
		}
		close(api.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-api.register:
			api.clients[client] = true
			if !client.trySend(WSMessage{
				Type:      MessageTypeAck,
				Data:      client.id,
				Timestamp: time.Now(),
			}) {
				api.drop(client)
				continue
			}
			api.log.Info("client connected", zap.String("client", client.id))

		case client := <-api.unregister:
			if api.clients[client] {
				api.drop(client)
				api.log.Info("client disconnected", zap.String("client", client.id))
			}

		case <-ticker.C:
			if len(api.clients) == 0 {
				continue
			}
			message := api.statsMessage("")
			for client := range api.clients {
				if !client.trySend(message) {
					api.drop(client)
				}
			}
		}
	}
}

func (api *API) drop(client *WSClient) {
	delete(api.clients, client)
	client.close()
}

func (api *API) statsMessage(requestID string) WSMessage {
	message := WSMessage{Type: MessageTypeStats, RequestID: requestID, Timestamp: time.Now()}
	if api.source != nil {
		message.Data = api.source.Snapshot()
	}
	return message
}

func (api *API) handleGetStats(c *WSClient, message WSMessage) error {
	c.reply(api.statsMessage(message.RequestID))
	return nil
}

func (api *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WSMessage, 256),
		api:  api,
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}

	select {
	case api.register <- client:
	case <-api.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// trySend queues a message without blocking; false means the client is
// too slow and should be dropped.
func (c *WSClient) trySend(message WSMessage) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// reply queues a message from the read side, giving up once the client is gone.
func (c *WSClient) reply(message WSMessage) {
	select {
	case c.send <- message:
	case <-c.done:
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.api.log.Debug("write failed", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(WSMessage{
				Type:      MessageTypePing,
				Timestamp: time.Now(),
			}); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump pumps messages from the websocket connection to the handlers
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.api.unregister <- c:
		case <-c.api.done:
		}
		c.conn.Close()
	}()

	for {
		var message WSMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.api.log.Debug("websocket read failed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		if err := c.handleMessage(message); err != nil {
			c.reply(WSMessage{
				Type:      MessageTypeError,
				RequestID: message.RequestID,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
		}
	}
}

func (c *WSClient) handleMessage(message WSMessage) error {
	handler, exists := c.api.handlers[message.Type]
	if !exists {
		return fmt.Errorf("unknown message type: %s", message.Type)
	}
	return handler(c, message)
}
