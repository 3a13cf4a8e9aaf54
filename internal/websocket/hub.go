package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/adapters"
	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/usecase"
	"github.com/satriahrh/arunika/interview/usecase/interview"
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

	sendBufferSize = 256

	reportTimeout = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HubConfig holds the hub settings
type HubConfig struct {
	// ReportURLPrefix is joined with the report ID in report_ready messages
	ReportURLPrefix string
}

// Hub keeps track of connected candidates. At most one of them may run an
// interview at a time.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	active *Client

	interviews      *usecase.InterviewService
	reportURLPrefix string
	logger          *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(interviews *usecase.InterviewService, config HubConfig, logger *zap.Logger) *Hub {
	if config.ReportURLPrefix == "" {
		config.ReportURLPrefix = "/api/v1/reports/"
	}
	return &Hub{
		clients:         make(map[string]*Client),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		done:            make(chan struct{}),
		interviews:      interviews,
		reportURLPrefix: config.ReportURLPrefix,
		logger:          logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			clients := make([]*Client, 0, len(h.clients))
			for id, client := range h.clients {
				client.closeSend()
				clients = append(clients, client)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			for _, client := range clients {
				client.shutdown()
			}
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id), zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.closeSend()
			}
			h.mu.Unlock()
			client.shutdown()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Busy reports whether an interview is in progress
func (h *Hub) Busy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active != nil
}

func (h *Hub) acquire(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != nil && h.active != c {
		return false
	}
	h.active = c
	return true
}

func (h *Hub) release(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == c {
		h.active = nil
	}
}

// WriteData is one outbound frame
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	id     string
	userID string
	logger *zap.Logger

	validator *MessageValidator
	devices   *adapters.MemoryMediaDevices

	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
	send   chan WriteData
	closed bool

	mu         sync.Mutex
	candidate  *entities.Candidate
	topicID    string
	camera     bool
	microphone bool
	live       *usecase.LiveInterview
}

// HandleWebSocket upgrades the request and serves an interview client. An
// empty userID marks the candidate as anonymous.
func HandleWebSocket(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	if userID == "" {
		userID = entities.AnonymousUserID
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:       hub,
		conn:      conn,
		id:        id,
		userID:    userID,
		logger:    logger.With(zap.String("clientID", id)),
		validator: NewMessageValidator(),
		devices:   adapters.NewMemoryMediaDevices(logger),
		ctx:       ctx,
		cancel:    cancel,
		send:      make(chan WriteData, sendBufferSize),
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		cancel()
		conn.Close()
		return errors.New("hub is shutting down")
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processMicrophoneFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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

// enqueue hands a frame to the write pump. Frames are dropped once the client
// is closed or when the buffer is full.
func (c *Client) enqueue(data WriteData) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("Send buffer full, dropping frame", zap.Int("type", data.Type))
		return false
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

func (c *Client) sendError(code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.sendJSON(CreateErrorMessage(code, message, details))
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// shutdown stops a running interview when the connection goes away. The
// interview still terminates normally and its report is stored.
func (c *Client) shutdown() {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		c.hub.release(c)
		c.cancel()
		return
	}
	if err := live.Controller.Stop(); err != nil {
		c.logger.Warn("Failed to stop interview on disconnect", zap.Error(err))
	}
	c.cancel()
}

// processMessage handles a JSON control message from the candidate
func (c *Client) processMessage(message []byte) {
	msg, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendError(ErrorCodeInvalidMessage, "Invalid message", err)
		return
	}

	switch m := msg.(type) {
	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))

	case *CandidateMessage:
		c.mu.Lock()
		c.candidate = &entities.Candidate{UserID: c.userID, Name: m.Name, Email: m.Email, Role: m.Role}
		c.mu.Unlock()

	case *SelectTopicMessage:
		c.mu.Lock()
		c.topicID = m.TopicID
		c.mu.Unlock()

	case *PermissionsMessage:
		c.mu.Lock()
		c.camera, c.microphone = m.Camera, m.Microphone
		live := c.live
		c.mu.Unlock()
		if live != nil {
			live.Gate().ConfirmPermissions(m.Camera, m.Microphone)
		}

	case *StartMessage:
		c.handleStart(m)

	case *ControlMessage:
		c.handleControl(m.Type)

	case *AnswerTextMessage:
		c.withInterview(func(ctrl *interview.Controller) error { return ctrl.SubmitAnswer(m.Text) })

	case *ConfirmStopMessage:
		c.withInterview(func(ctrl *interview.Controller) error { return ctrl.ConfirmStop(m.Confirm) })
	}
}

func (c *Client) handleControl(t MessageType) {
	switch t {
	case MessageTypeListeningStart:
		c.withInterview(func(ctrl *interview.Controller) error { return ctrl.BeginAnswer() })
	case MessageTypeListeningEnd:
		c.withInterview(func(ctrl *interview.Controller) error { return ctrl.FinishAnswer() })
	case MessageTypeStop:
		c.withInterview(func(ctrl *interview.Controller) error { return ctrl.Stop() })
	}
}

func (c *Client) withInterview(fn func(ctrl *interview.Controller) error) {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		c.sendError(ErrorCodeNotStarted, "No interview in progress", nil)
		return
	}
	if err := fn(live.Controller); err != nil {
		c.sendError(ErrorCodeRejected, "Command rejected", err)
	}
}

// handleStart prepares the interview on first use and starts it. A device
// failure leaves the interview idle so the candidate can fix permissions and
// send start again.
func (c *Client) handleStart(msg *StartMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == nil {
		if c.candidate == nil {
			c.sendError(ErrorCodeCandidateRequired, "Name and email are required before starting", nil)
			return
		}
		if c.topicID == "" {
			c.sendError(ErrorCodeTopicRequired, "Select a topic before starting", nil)
			return
		}
		if !c.hub.acquire(c) {
			c.sendError(ErrorCodeBusy, "Another interview is in progress", nil)
			return
		}

		live, err := c.hub.interviews.Prepare(c.ctx, usecase.SessionRequest{
			TopicID:    c.topicID,
			Candidate:  *c.candidate,
			UserID:     c.userID,
			Devices:    c.devices,
			Sink:       &clientSink{client: c},
			Camera:     c.camera,
			Microphone: c.microphone,
			TextOnly:   msg.TextOnly,
			Observer:   c.observe,
		})
		if err != nil {
			c.hub.release(c)
			code := ErrorCodeInvalidMessage
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoQuestions) {
				code = ErrorCodeTopicUnavailable
			}
			c.sendError(code, "Unable to prepare interview", err)
			return
		}

		c.live = live
		go live.Controller.Run(c.ctx)
	}

	live := c.live
	if err := live.Controller.Start(c.ctx); err != nil {
		if errors.Is(err, domain.ErrDevice) {
			c.sendError(ErrorCodeDevice, "Camera or microphone unavailable", err)
			return
		}
		c.sendError(ErrorCodeRejected, "Unable to start interview", err)
	}
}

// processMicrophoneFrame forwards binary microphone audio to the open stream
func (c *Client) processMicrophoneFrame(frame []byte) {
	if !c.devices.Push(frame) {
		c.logger.Debug("Dropped microphone frame", zap.Int("size", len(frame)))
	}
}

// observe runs on the interview's control goroutine and must not block
func (c *Client) observe(n interview.Notification) {
	sessionID := n.Session.ID
	switch n.Kind {
	case interview.NotifyState:
		c.sendJSON(CreateStateMessage(n.Session))
	case interview.NotifyCountdown:
		c.sendJSON(CreateCountdownMessage(sessionID, n.Remaining))
	case interview.NotifyStatus:
		c.sendJSON(CreateTextMessage(MessageTypeStatusMessage, sessionID, n.Message))
	case interview.NotifySpeakingStart:
		c.sendJSON(CreateTextMessage(MessageTypeSpeakingStart, sessionID, n.Message))
	case interview.NotifySpeakingEnd:
		c.sendJSON(CreateTextMessage(MessageTypeSpeakingEnd, sessionID, ""))
	case interview.NotifyStopConfirmation:
		c.sendJSON(CreateTextMessage(MessageTypeStopConfirmation, sessionID, n.Message))
	case interview.NotifyTerminated:
		go c.finish()
	}
}

// finish generates the report once the interview has terminated and frees
// the hub for the next candidate
func (c *Client) finish() {
	defer c.hub.release(c)

	c.mu.Lock()
	live := c.live
	c.mu.Unlock()
	if live == nil {
		return
	}
	<-live.Controller.Done()

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	report, err := c.hub.interviews.Report(ctx, live)
	if err != nil {
		c.logger.Error("Failed to generate report", zap.Error(err))
		c.sendError(ErrorCodeReportFailed, "The report could not be generated", err)
		return
	}

	c.logger.Info("Report ready", zap.String("reportID", report.ID))
	c.sendJSON(CreateReportReadyMessage(report, c.hub.reportURLPrefix+report.ID))
}

// clientSink streams synthesized speech to the client as binary frames
type clientSink struct {
	client *Client
}

// Play implements repositories.AudioSink
func (s *clientSink) Play(ctx context.Context, audio <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-audio:
			if !ok {
				return nil
			}
			s.client.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk})
		}
	}
}
