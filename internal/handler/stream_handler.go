package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/service"
	"github.com/gobwas/ws"
	"github.com/google/uuid"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsMaxMessageSize = 64 * 1024
)

// clientMessage is a message sent by a websocket client
type clientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Context string `json:"context,omitempty"`
}

// WebSocketObserver pushes broadcast events to one websocket client
type WebSocketObserver struct {
	id   string
	conn net.Conn

	mu     sync.Mutex // serializes frame writes
	closed bool
}

func newWebSocketObserver(conn net.Conn) *WebSocketObserver {
	return &WebSocketObserver{id: "ws:" + uuid.New().String(), conn: conn}
}

// ID identifies the observer in the broadcaster
func (o *WebSocketObserver) ID() string {
	return o.id
}

// Deliver writes the event as a text frame
func (o *WebSocketObserver) Deliver(_ context.Context, event broadcast.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return o.writeFrame(ws.NewTextFrame(data))
}

func (o *WebSocketObserver) sendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return o.writeFrame(ws.NewTextFrame(data))
}

// writeFrame encodes the whole frame first so concurrent writers never interleave
func (o *WebSocketObserver) writeFrame(f ws.Frame) error {
	var buf bytes.Buffer
	if err := ws.WriteFrame(&buf, f); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return net.ErrClosed
	}
	if err := o.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	_, err := o.conn.Write(buf.Bytes())
	return err
}

// Close closes the connection once
func (o *WebSocketObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.conn.Close()
}

// StreamHandler serves GET /api/v1/ws: lifecycle events out, ping and chat in
type StreamHandler struct {
	broadcaster *broadcast.Broadcaster
	queue       TaskQueue
	text        *service.TextService

	mu    sync.Mutex
	conns map[string]*WebSocketObserver
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(broadcaster *broadcast.Broadcaster, queue TaskQueue, text *service.TextService) *StreamHandler {
	return &StreamHandler{
		broadcaster: broadcaster,
		queue:       queue,
		text:        text,
		conns:       make(map[string]*WebSocketObserver),
	}
}

// ServeHTTP upgrades the connection and runs the read loop until the client leaves
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	obs := newWebSocketObserver(conn)
	h.track(obs)
	h.broadcaster.Subscribe(obs)
	slog.Info("WebSocket client connected", "observer_id", obs.ID(), "remote_addr", r.RemoteAddr)

	defer func() {
		h.broadcaster.Unsubscribe(obs.ID())
		h.untrack(obs)
		obs.Close()
		slog.Info("WebSocket client disconnected", "observer_id", obs.ID())
	}()

	for {
		header, payload, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("WebSocket read ended", "observer_id", obs.ID(), "error", err)
			}
			return
		}

		switch header.OpCode {
		case ws.OpClose:
			_ = obs.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
			return
		case ws.OpPing:
			if err := obs.writeFrame(ws.NewPongFrame(payload)); err != nil {
				return
			}
		case ws.OpText:
			h.handleMessage(obs, payload)
		}
	}
}

func (h *StreamHandler) handleMessage(obs *WebSocketObserver, payload []byte) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("Invalid JSON received on websocket", "observer_id", obs.ID(), "error", err)
		return
	}

	switch msg.Type {
	case "ping":
		_ = obs.sendJSON(map[string]string{"type": "pong"})
	case "chat":
		req := service.ChatRequest{Message: msg.Message, JobID: msg.JobID, Context: msg.Context}
		if req.Message == "" {
			_ = obs.sendJSON(map[string]string{"type": "error", "message": "message is required"})
			return
		}
		taskID, err := h.queue.Submit(service.KindChat, h.text.ChatTask(req))
		if err != nil {
			_ = obs.sendJSON(map[string]string{"type": "error", "message": err.Error()})
			return
		}
		_ = obs.sendJSON(map[string]string{"type": "chat_queued", "task_id": taskID})
	default:
		slog.Debug("Unknown websocket message type", "observer_id", obs.ID(), "type", msg.Type)
	}
}

// readFrame reads one client frame and unmasks its payload
func readFrame(conn net.Conn) (ws.Header, []byte, error) {
	header, err := ws.ReadHeader(conn)
	if err != nil {
		return header, nil, err
	}
	if header.Length > wsMaxMessageSize {
		return header, nil, fmt.Errorf("websocket frame of %d bytes exceeds limit", header.Length)
	}

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return header, nil, err
	}
	if header.Masked {
		ws.Cipher(payload, header.Mask, 0)
	}
	return header, payload, nil
}

func (h *StreamHandler) track(obs *WebSocketObserver) {
	h.mu.Lock()
	h.conns[obs.ID()] = obs
	h.mu.Unlock()
}

func (h *StreamHandler) untrack(obs *WebSocketObserver) {
	h.mu.Lock()
	delete(h.conns, obs.ID())
	h.mu.Unlock()
}

// Close disconnects every client. Hijacked connections are not closed by http.Server.Shutdown.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	conns := make([]*WebSocketObserver, 0, len(h.conns))
	for _, obs := range h.conns {
		conns = append(conns, obs)
	}
	h.mu.Unlock()

	for _, obs := range conns {
		_ = obs.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusGoingAway, "server shutting down")))
		obs.Close()
	}
}

// Connections returns the number of connected clients
func (h *StreamHandler) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
