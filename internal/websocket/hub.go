package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
	"github.com/satriahrh/rev-voice/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Maximum number of queued outbound frames per client.
	sendBuffer = 16
)

// Messages sent on protocol misuse.
const (
	MessageRecordingActive = "A recording is already in progress"
	MessageNotRecording    = "No recording in progress"
)

var upgrader = websocket.Upgrader{
	// The relay is served to any origin, like the HTTP endpoint behind CORS.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected chunked-upload clients.
type Hub struct {
	// Registered clients, keyed by connection ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run has returned.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	relay  *usecase.RelayService
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(relay *usecase.RelayService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		relay:      relay,
		logger:     logger,
	}
}

// Run starts the hub's main loop. When ctx is done every connection is closed
// and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("connectionID", client.id))

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for _, client := range h.clients {
				client.closeSend()
				client.cancel()
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		client.closeSend()
	}
}

// WriteData is one outbound frame.
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub. It
// accumulates one recording at a time and relays it on listening_end.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id     string
	logger *zap.Logger

	// Cancelled when the connection goes away; aborts an in-flight relay.
	ctx    context.Context
	cancel context.CancelFunc

	mutex      sync.Mutex
	closed     bool
	recording  bool
	processing bool
	buffer     entities.ChunkBuffer
	mimeType   string
	filename   string
	started    time.Time
}

// HandleProcessAudio upgrades the request and serves the chunked-upload
// protocol on it.
func HandleProcessAudio(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, sendBuffer),
		id:     uuid.NewString(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the client state.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the client to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues a text frame. Frames for a closed client, or beyond the
// buffer, are dropped.
func (c *Client) enqueue(payload []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping outbound frame, send buffer full", zap.String("connectionID", c.id))
	}
}

func (c *Client) closeSend() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// processMessage dispatches a control frame.
func (c *Client) processMessage(message []byte) {
	msg, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Warn("Ignoring control message", zap.String("connectionID", c.id), zap.Error(err))
		c.enqueue(CreateErrorMessage(http.StatusBadRequest, err.Error()))
		return
	}

	switch msg.Type {
	case domain.MessageTypeListeningStart:
		c.handleListeningStart(msg)
	case domain.MessageTypeListeningEnd:
		c.handleListeningEnd()
	}
}

// processBinaryAudioChunk appends one recorded chunk in arrival order.
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.recording {
		c.logger.Warn("Received binary audio chunk but no recording in progress",
			zap.String("connectionID", c.id),
			zap.Int("size", len(data)))
		return
	}

	c.buffer.Append(data)

	c.logger.Debug("Received binary audio chunk",
		zap.String("connectionID", c.id),
		zap.Int("size", len(data)),
		zap.Int("totalChunks", c.buffer.Len()))
}

func (c *Client) handleListeningStart(msg domain.ControlMessage) {
	c.mutex.Lock()
	if c.recording || c.processing {
		c.mutex.Unlock()
		c.logger.Warn("Rejected listening_start while busy", zap.String("connectionID", c.id))
		c.enqueue(CreateErrorMessage(http.StatusConflict, MessageRecordingActive))
		return
	}

	c.recording = true
	c.buffer.Reset()
	c.mimeType = msg.MIMEType
	c.filename = msg.Filename
	c.started = time.Now()
	c.mutex.Unlock()

	c.logger.Info("Recording started",
		zap.String("connectionID", c.id),
		zap.String("mimeType", msg.MIMEType))
}

func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	if !c.recording {
		c.mutex.Unlock()
		c.enqueue(CreateErrorMessage(http.StatusBadRequest, MessageNotRecording))
		return
	}

	blob := c.buffer.Drain(c.mimeType, c.filename)
	c.recording = false
	elapsed := time.Since(c.started)
	if blob.Size() == 0 {
		c.mutex.Unlock()
		c.enqueue(CreateErrorMessage(http.StatusBadRequest, usecase.MessageNoAudio))
		return
	}
	c.processing = true
	c.mutex.Unlock()

	c.logger.Info("Recording finished",
		zap.String("connectionID", c.id),
		zap.Int("audioBytes", blob.Size()),
		zap.Duration("duration", elapsed))

	go c.relayRecording(blob)
}

// relayRecording runs the upstream request off the read loop so pings and
// close frames keep flowing.
func (c *Client) relayRecording(blob entities.AudioBlob) {
	var frame []byte
	text, err := c.hub.relay.ProcessAudio(c.ctx, blob.Data, blob.MIMEType)
	if err != nil {
		status, message := usecase.RelayFailure(err)
		c.logger.Error("Failed to process audio",
			zap.String("connectionID", c.id),
			zap.Int("status", status),
			zap.Error(err))
		frame = CreateErrorMessage(status, message)
	} else {
		frame = CreateResponseMessage(text)
	}

	// The connection is free again before the reply reaches the peer.
	c.mutex.Lock()
	c.processing = false
	c.mutex.Unlock()

	c.enqueue(frame)
}
