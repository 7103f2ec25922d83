// Package ws provides the websocket chat transport.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/domain"
	"github.com/waegarcia/conversational-assistant/internal/service"
)

// Server handles websocket connections.
type Server struct {
	cfg      config.WSConfig
	svc      *service.Service
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a websocket server. Zero timeouts fall back to defaults.
func NewServer(cfg config.WSConfig, svc *service.Service, logger *zap.Logger) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		svc:    svc,
		hub:    NewHub(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Hub exposes the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

// HandleWebSocket upgrades the request and starts the connection pumps.
// GET /ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump handles frames in arrival order, one turn at a time.
func (s *Server) readPump(conn *Connection) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.handleMessage(ctx, conn, data)
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{}, deadline)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message, deadline); err != nil {
				s.logger.Debug("websocket write failed", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, data)
	case TypeMessage:
		s.handleUserMessage(ctx, conn, data)
	case TypeEnd:
		s.handleEnd(ctx, conn, base)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

func (s *Server) handleHello(conn *Connection, data []byte) {
	var msg HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid hello message")
		return
	}
	if strings.TrimSpace(msg.UserID) == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidMessage, "user_id is required")
		return
	}

	conn.UserID = msg.UserID
	s.hub.BindSession(conn, msg.SessionID)

	s.send(conn, HelloAckMessage{
		BaseMessage: newBase(TypeHelloAck, msg.RequestID, conn.SessionID),
		UserID:      conn.UserID,
	})
	s.logger.Info("websocket hello", zap.String("conn_id", conn.ID),
		zap.String("user_id", conn.UserID), zap.String("session_id", conn.SessionID))
}

func (s *Server) handleUserMessage(ctx context.Context, conn *Connection, data []byte) {
	var msg UserMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid message frame")
		return
	}
	if conn.UserID == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}

	res, err := s.svc.ProcessMessage(ctx, domain.TurnRequest{
		SessionID: conn.SessionID,
		UserID:    conn.UserID,
		Message:   msg.Content,
	})
	if err != nil {
		s.sendServiceError(conn, msg.RequestID, err)
		return
	}

	// The service may have started a fresh conversation.
	s.hub.BindSession(conn, res.SessionID)
	s.send(conn, newReply(msg.RequestID, res))
}

func (s *Server) handleEnd(ctx context.Context, conn *Connection, base BaseMessage) {
	if conn.UserID == "" || conn.SessionID == "" {
		s.sendError(conn, base.RequestID, ErrorCodeSessionRequired, "no conversation to end")
		return
	}

	sessionID := conn.SessionID
	if err := s.svc.EndConversation(ctx, sessionID); err != nil {
		s.sendServiceError(conn, base.RequestID, err)
		return
	}

	if err := s.hub.BroadcastJSON(sessionID, EndedMessage{
		BaseMessage: newBase(TypeEnded, base.RequestID, sessionID),
	}); err != nil {
		s.logger.Warn("failed to broadcast ended", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Server) sendServiceError(conn *Connection, requestID string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		s.sendError(conn, requestID, ErrorCodeValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.sendError(conn, requestID, ErrorCodeNotFound, "conversation not found")
	default:
		s.logger.Error("websocket turn failed", zap.String("conn_id", conn.ID), zap.Error(err))
		s.sendError(conn, requestID, ErrorCodeInternalError, "internal server error")
	}
}

func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.send(conn, ErrorMessage{
		BaseMessage: newBase(TypeError, requestID, conn.SessionID),
		Code:        code,
		Message:     message,
	})
}

func (s *Server) send(conn *Connection, v any) {
	if err := s.hub.SendJSON(conn, v); err != nil {
		s.logger.Warn("failed to queue frame", zap.String("conn_id", conn.ID), zap.Error(err))
	}
}
